package prime_test

import (
	"fmt"
	"log"
	"os"

	"github.com/go-logr/stdr"
	"github.com/smcprime/prime"
)

func Example() {
	// Route package logs to stderr; by default logging is discarded.
	prime.SetLogger(stdr.New(log.New(os.Stderr, "", log.Lshortfile)))

	fmt.Println(prime.IsPrime(17))
	fmt.Println(prime.IsPrime(18))
	if p, ok := prime.NextPrime(100); ok {
		fmt.Println(p)
	}
	if p, ok := prime.PrevPrime(100); ok {
		fmt.Println(p)
	}
	// Output:
	// true
	// false
	// 101
	// 97
}

package prime

import (
	"fmt"
	"math/bits"
	"math/rand"
	"testing"
)

// Sample moduli for Montgomery cross-checks; all odd, all above 2^32.
var testModuli = []uint64{
	4294967311,
	1000000000000000003,
	2305843009213693951,
	3825123056546413051,
	9223372036854775783,
	18446744073709551557,
	18446744073709551615,
}

// Reference (a*b) mod m through a 128-bit intermediate, no Montgomery
// form involved.
func mulmod64(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a%m, b%m)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// Reference (a^b) mod m built on mulmod64.
func powmod64(a, b, m uint64) uint64 {
	r := uint64(1)
	a %= m
	for b > 0 {
		if b&1 == 1 {
			r = mulmod64(r, a, m)
		}
		b >>= 1
		if b > 0 {
			a = mulmod64(a, a, m)
		}
	}
	return r
}

// Reference strong probable prime test built on the naive modular
// primitives above.
func sprp64(n, a uint64) bool {
	if a%n == 0 {
		return true
	}
	d := n - 1
	s := 0
	for d&1 == 0 {
		d >>= 1
		s++
	}
	x := powmod64(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for i := 1; i < s; i++ {
		x = mulmod64(x, x, n)
		if x == n-1 {
			return true
		}
		if x == 1 {
			return false
		}
	}
	return false
}

// The Newton-Hensel inverse must satisfy n * inv == 1 mod 2^64 for
// every odd n.
func TestMontInverse(t *testing.T) {
	t.Parallel()
	for _, n := range testModuli {
		if product := n * montInverse(n); product != 1 {
			t.Errorf("Checking n: %d: n*inv is %d, expected 1", n, product)
		}
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		n := rng.Uint64() | 1
		if product := n * montInverse(n); product != 1 {
			t.Errorf("Checking n: %d: n*inv is %d, expected 1", n, product)
		}
	}
}

// Conversion into Montgomery form of 1 must agree with the closed-form
// montOne for moduli above 2^32.
func TestMontOne(t *testing.T) {
	t.Parallel()
	for _, n := range testModuli {
		if expected, actual := toMont(1, n), montOne(n); actual != expected {
			t.Errorf("Checking n: %d: expected %d got %d", n, expected, actual)
		}
	}
}

// Montgomery multiplication must match the naive 128-bit-intermediate
// multiplication for random reduced operands.
func TestMontMul_MatchesNaive(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(2))
	for _, n := range testModuli {
		nInv := montInverse(n)
		for i := 0; i < 1000; i++ {
			a := rng.Uint64() % n
			b := rng.Uint64() % n
			expected := toMont(mulmod64(a, b, n), n)
			actual := montMul(toMont(a, n), toMont(b, n), n, nInv)
			if actual != expected {
				t.Errorf("Checking n: %d a: %d b: %d: expected %d got %d", n, a, b, expected, actual)
			}
		}
	}
}

// Montgomery exponentiation must match the naive reference: the result
// converted out of Montgomery form (by multiplying with the plain
// value 1) equals powmod64.
func TestMontPow_MatchesNaive(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))
	for _, n := range testModuli {
		nInv := montInverse(n)
		one := montOne(n)
		for i := 0; i < 200; i++ {
			base := rng.Uint64() % n
			exp := rng.Uint64()
			expected := powmod64(base, exp, n)
			actual := montReduce(montPow(toMont(base, n), exp, n, nInv, one), 0, n, nInv)
			if actual != expected {
				t.Errorf("Checking n: %d base: %d exp: %d: expected %d got %d", n, base, exp, expected, actual)
			}
		}
	}
}

// The Montgomery strong probable prime test must agree with the naive
// reference for every witness over sampled odd moduli above 2^32.
func TestMontSprp_MatchesNaive(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(4))
	moduli := append([]uint64{}, testModuli...)
	for i := 0; i < 200; i++ {
		moduli = append(moduli, rng.Uint64()|1|1<<63)
	}
	for _, n := range moduli {
		nInv := montInverse(n)
		one := montOne(n)
		for _, a := range witnesses64 {
			expected := sprp64(n, a)
			actual := montSprp(n, a, nInv, one)
			if actual != expected {
				t.Errorf("Checking n: %d witness: %d: expected %t got %t", n, a, expected, actual)
			}
		}
	}
}

func BenchmarkMontMul(b *testing.B) {
	n := uint64(18446744073709551557)
	nInv := montInverse(n)
	x := toMont(12345678901234567, n)
	for i := 0; i < b.N; i++ {
		x = montMul(x, x, n, nInv)
	}
	benchSink = x
}

func BenchmarkMulmod64(b *testing.B) {
	n := uint64(18446744073709551557)
	x := uint64(12345678901234567)
	for i := 0; i < b.N; i++ {
		x = mulmod64(x, x, n)
	}
	benchSink = x
}

var benchSink uint64

func BenchmarkIsPrime64(b *testing.B) {
	for exp := 2; exp <= 18; exp += 4 {
		start := uint64(1)
		for i := 0; i < exp; i++ {
			start *= 10
		}
		b.Run(fmt.Sprintf("n=%d", start+1), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = IsPrime64(start + 1)
			}
		})
	}
}

func BenchmarkNextPrime64(b *testing.B) {
	for exp := 2; exp <= 18; exp += 4 {
		start := uint64(1)
		for i := 0; i < exp; i++ {
			start *= 10
		}
		b.Run(fmt.Sprintf("start=%d", start), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = NextPrime64(start)
			}
		})
	}
}

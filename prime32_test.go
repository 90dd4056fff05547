package prime

import (
	"fmt"
	"testing"
)

const (
	// Upper bound (exclusive) for exhaustive agreement checks against
	// trial division.
	TEST_VERIFY_LIMIT = 10000
)

// Primes used for inclusive-boundary checks of the adjacent searches.
var verificationPrimes = []uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61,
	67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137,
	139, 149, 151, 157, 163, 167, 173, 179, 181, 191, 193, 197, 199,
}

// Reference predicate: trial division by every integer up to sqrt(n).
func trialIsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for d := uint64(2); d <= n/d; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Verify that the deterministic 32-bit test agrees with trial division
// over a representative small range.
func TestIsPrime32_AgreesWithTrialDivision(t *testing.T) {
	t.Parallel()
	for n := uint32(0); n < TEST_VERIFY_LIMIT; n++ {
		if actual, expected := IsPrime32(n), trialIsPrime(uint64(n)); actual != expected {
			t.Errorf("Checking n: %d: expected %t got %t", n, expected, actual)
		}
	}
}

// 3215031751 is composite (151 * 751 * 28351) but passes witnesses 2
// and 7 spuriously; the predicate rejects it before the witness loop.
func TestIsPrime32_Pseudoprime(t *testing.T) {
	t.Parallel()
	if IsPrime32(3215031751) {
		t.Error("3215031751 should not be prime")
	}
	if !sprp32(3215031751, 2) || !sprp32(3215031751, 7) {
		t.Error("3215031751 should pass witnesses 2 and 7 spuriously")
	}
	if sprp32(3215031751, 61) {
		t.Error("witness 61 should expose 3215031751 as composite")
	}
}

func TestPowmod32(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b, m  uint32
		expected uint32
	}{
		{2, 0, 7, 1},
		{2, 10, 1000, 24},
		{3, 7, 10, 7},
		{4294967295, 2, 4294967291, 16},
		{7, 4294967290, 4294967291, 1}, // Fermat: a^(p-1) = 1 mod p
	}
	for _, tc := range tests {
		if actual := powmod32(tc.a, tc.b, tc.m); actual != tc.expected {
			t.Errorf("powmod32(%d, %d, %d): expected %d got %d", tc.a, tc.b, tc.m, tc.expected, actual)
		}
	}
}

func TestNextPrime32(t *testing.T) {
	t.Parallel()
	tests := []struct {
		start    uint32
		expected uint32
		found    bool
	}{
		{0, 2, true},
		{1, 2, true},
		{2, 2, true},
		{3, 3, true},
		{4, 5, true},
		{100, 101, true},
		{4294967291, 4294967291, true}, // largest 32-bit prime, inclusive
		{4294967292, 0, false},         // nothing above it in range
		{4294967295, 0, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("start=%d", tc.start), func(t *testing.T) {
			t.Parallel()
			actual, found := NextPrime32(tc.start)
			if actual != tc.expected || found != tc.found {
				t.Errorf("Checking start: %d: expected (%d, %t) got (%d, %t)", tc.start, tc.expected, tc.found, actual, found)
			}
		})
	}
}

func TestPrevPrime32(t *testing.T) {
	t.Parallel()
	tests := []struct {
		start    uint32
		expected uint32
		found    bool
	}{
		{0, 0, false},
		{1, 0, false},
		{2, 2, true},
		{3, 3, true},
		{4, 3, true},
		{100, 97, true},
		{4294967295, 4294967291, true},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("start=%d", tc.start), func(t *testing.T) {
			t.Parallel()
			actual, found := PrevPrime32(tc.start)
			if actual != tc.expected || found != tc.found {
				t.Errorf("Checking start: %d: expected (%d, %t) got (%d, %t)", tc.start, tc.expected, tc.found, actual, found)
			}
		})
	}
}

// Both searches are inclusive of a prime starting point.
func TestAdjacentPrime32_InclusiveAtPrimes(t *testing.T) {
	t.Parallel()
	for _, p := range verificationPrimes {
		p32 := uint32(p)
		if next, found := NextPrime32(p32); !found || next != p32 {
			t.Errorf("NextPrime32(%d): expected %d got %d", p32, p32, next)
		}
		if prev, found := PrevPrime32(p32); !found || prev != p32 {
			t.Errorf("PrevPrime32(%d): expected %d got %d", p32, p32, prev)
		}
	}
}

// No prime may exist strictly between the starting point and the
// search result in either direction.
func TestAdjacentPrime32_NoGaps(t *testing.T) {
	t.Parallel()
	for n := uint32(0); n < 2000; n++ {
		next, found := NextPrime32(n)
		if !found {
			t.Errorf("NextPrime32(%d): unexpected not-found", n)
			continue
		}
		if next < n {
			t.Errorf("NextPrime32(%d): result %d below start", n, next)
		}
		if !IsPrime32(next) {
			t.Errorf("NextPrime32(%d): result %d is not prime", n, next)
		}
		for k := n; k < next; k++ {
			if IsPrime32(k) {
				t.Errorf("NextPrime32(%d): skipped prime %d", n, k)
			}
		}
	}
	for n := uint32(2); n < 2000; n++ {
		prev, found := PrevPrime32(n)
		if !found {
			t.Errorf("PrevPrime32(%d): unexpected not-found", n)
			continue
		}
		if prev > n {
			t.Errorf("PrevPrime32(%d): result %d above start", n, prev)
		}
		if !IsPrime32(prev) {
			t.Errorf("PrevPrime32(%d): result %d is not prime", n, prev)
		}
		for k := prev + 1; k <= n; k++ {
			if IsPrime32(k) {
				t.Errorf("PrevPrime32(%d): skipped prime %d", n, k)
			}
		}
	}
}

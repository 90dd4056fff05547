package prime

import "math"

// The first twelve primes; a witness set proven sufficient to make the
// strong probable prime test deterministic for every n < 2^64.
var witnesses64 = [12]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// IsPrime64 reports whether n is prime. The result is deterministic
// for the entire 64-bit range. Values that fit in 32 bits delegate to
// IsPrime32; the Montgomery machinery is reserved for moduli large
// enough to justify its setup cost.
func IsPrime64(n uint64) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n&1 == 0 {
		return false
	}
	if n < 9 {
		return true
	}
	if n%3 == 0 || n%5 == 0 || n%7 == 0 {
		return false
	}
	if n == pseudoprime32 {
		return false
	}
	if n <= math.MaxUint32 {
		return IsPrime32(uint32(n))
	}
	nInv := montInverse(n)
	one := montOne(n)
	for _, a := range witnesses64 {
		if !montSprp(n, a, nInv, one) {
			return false
		}
	}
	return true
}

// IsPrime reports whether n is prime; it is the 64-bit IsPrime64.
func IsPrime(n uint64) bool {
	return IsPrime64(n)
}

// NextPrime64 returns the smallest prime >= n. The search is
// inclusive: NextPrime64(p) of a prime p is p itself. The second
// return value is false when no prime exists between n and the top of
// the 64-bit range; the largest representable prime is
// 18446744073709551557.
func NextPrime64(n uint64) (uint64, bool) {
	l := logger.V(1).WithValues("n", n)
	l.Info("NextPrime64: enter")
	if n <= 2 {
		l.Info("NextPrime64: exit", "result", 2)
		return 2, true
	}
	if n&1 == 0 {
		n++
	}
	for !IsPrime64(n) {
		n += 2
		if n < 2 {
			// Wrapped past the top of the range.
			l.Info("NextPrime64: exit", "found", false)
			return 0, false
		}
	}
	l.Info("NextPrime64: exit", "result", n)
	return n, true
}

// PrevPrime64 returns the largest prime <= n. The search is inclusive:
// PrevPrime64(p) of a prime p is p itself. The second return value is
// false when n < 2.
func PrevPrime64(n uint64) (uint64, bool) {
	l := logger.V(1).WithValues("n", n)
	l.Info("PrevPrime64: enter")
	if n < 2 {
		l.Info("PrevPrime64: exit", "found", false)
		return 0, false
	}
	if n == 2 {
		l.Info("PrevPrime64: exit", "result", 2)
		return 2, true
	}
	if n&1 == 0 {
		n--
	}
	for !IsPrime64(n) {
		if n < 3 {
			l.Info("PrevPrime64: exit", "result", 2)
			return 2, true
		}
		n -= 2
	}
	l.Info("PrevPrime64: exit", "result", n)
	return n, true
}

// NextPrime returns the smallest prime >= n; it is the 64-bit
// NextPrime64.
func NextPrime(n uint64) (uint64, bool) {
	return NextPrime64(n)
}

// PrevPrime returns the largest prime <= n; it is the 64-bit
// PrevPrime64.
func PrevPrime(n uint64) (uint64, bool) {
	return PrevPrime64(n)
}

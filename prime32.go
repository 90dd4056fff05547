package prime

// Witnesses that make the strong probable prime test deterministic for
// every n < 2^32.
var witnesses32 = [3]uint32{2, 7, 61}

// Composite that is a strong pseudoprime to bases 2 and 7; it is
// rejected explicitly before the witness loop runs.
const pseudoprime32 = 3215031751

// Returns (a*b) mod m. The product is widened to 64 bits before
// reduction so the full 32-bit input range cannot overflow. m must be
// non-zero; callers guarantee m >= 3.
func mulmod32(a, b, m uint32) uint32 {
	return uint32(uint64(a) * uint64(b) % uint64(m))
}

// Returns (a^b) mod m by binary exponentiation, squaring the base only
// while exponent bits remain. powmod32(a, 0, m) is 1.
func powmod32(a, b, m uint32) uint32 {
	r := uint32(1)
	a %= m
	for b > 0 {
		if b&1 == 1 {
			r = mulmod32(r, a, m)
		}
		b >>= 1
		if b > 0 {
			a = mulmod32(a, a, m)
		}
	}
	return r
}

// Reports whether odd n is a strong probable prime to base a. A base
// congruent to 0 mod n cannot expose compositeness and passes
// trivially.
func sprp32(n, a uint32) bool {
	if a%n == 0 {
		return true
	}
	d := n - 1
	s := uint32(0)
	for d&1 == 0 {
		d >>= 1
		s++
	}
	x := powmod32(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for i := uint32(1); i < s; i++ {
		x = mulmod32(x, x, n)
		if x == n-1 {
			return true
		}
		if x == 1 {
			return false
		}
	}
	return false
}

// IsPrime32 reports whether n is prime. The result is deterministic
// for the entire 32-bit range.
func IsPrime32(n uint32) bool {
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
	for _, a := range witnesses32 {
		if !sprp32(n, a) {
			return false
		}
	}
	return true
}

// NextPrime32 returns the smallest prime >= n. The search is inclusive:
// NextPrime32(p) of a prime p is p itself. The second return value is
// false when no prime exists between n and the top of the 32-bit range.
func NextPrime32(n uint32) (uint32, bool) {
	l := logger.V(1).WithValues("n", n)
	l.Info("NextPrime32: enter")
	if n <= 2 {
		l.Info("NextPrime32: exit", "result", 2)
		return 2, true
	}
	if n&1 == 0 {
		n++
	}
	for !IsPrime32(n) {
		n += 2
		if n < 2 {
			// Wrapped past the top of the range.
			l.Info("NextPrime32: exit", "found", false)
			return 0, false
		}
	}
	l.Info("NextPrime32: exit", "result", n)
	return n, true
}

// PrevPrime32 returns the largest prime <= n. The search is inclusive:
// PrevPrime32(p) of a prime p is p itself. The second return value is
// false when n < 2, since no prime exists at or below it.
func PrevPrime32(n uint32) (uint32, bool) {
	l := logger.V(1).WithValues("n", n)
	l.Info("PrevPrime32: enter")
	if n < 2 {
		l.Info("PrevPrime32: exit", "found", false)
		return 0, false
	}
	if n == 2 {
		l.Info("PrevPrime32: exit", "result", 2)
		return 2, true
	}
	if n&1 == 0 {
		n--
	}
	for !IsPrime32(n) {
		if n < 3 {
			l.Info("PrevPrime32: exit", "result", 2)
			return 2, true
		}
		n -= 2
	}
	l.Info("PrevPrime32: exit", "result", n)
	return n, true
}

package prime

import "math/bits"

// Montgomery arithmetic modulo an odd 64-bit n. Residues are held as
// (x * 2^64) mod n so that the REDC step replaces the division in each
// modular multiply with shifts and word multiplications. The context
// for a modulus is just the pair (nInv, one) computed below; it is
// rebuilt on every top-level primality call and never cached.

// montInverse computes n^-1 mod 2^64 for odd n by Newton-Hensel
// lifting. The seed (3n xor 2) is correct to at least 5 low-order bits
// and each iteration doubles the number of correct bits, so four
// iterations reach full word precision. All arithmetic wraps mod 2^64.
func montInverse(n uint64) uint64 {
	inv := (3 * n) ^ 2
	inv *= 2 - n*inv
	inv *= 2 - n*inv
	inv *= 2 - n*inv
	inv *= 2 - n*inv
	return inv
}

// montReduce applies REDC to the 128-bit value hi*2^64+lo, returning
// that value divided by 2^64 mod n. The result is always < n.
func montReduce(lo, hi, n, nInv uint64) uint64 {
	m := lo * nInv
	t, _ := bits.Mul64(m, n)
	r := hi - t
	if hi < t {
		r += n
	}
	return r
}

// montMul multiplies two Montgomery-form residues, taking the full
// 128-bit product before reduction.
func montMul(a, b, n, nInv uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return montReduce(lo, hi, n, nInv)
}

// toMont converts x to Montgomery form, (x * 2^64) mod n. The shift is
// applied to the 128-bit value before the reduction so nothing is
// truncated.
func toMont(x, n uint64) uint64 {
	_, r := bits.Div64(x%n, 0, n)
	return r
}

// montOne returns 1 in Montgomery form, 2^64 mod n, computed without a
// 128-bit intermediate as (2^64-1 mod n) + 1. n is odd so the sum
// never reaches 2^64.
func montOne(n uint64) uint64 {
	return ^uint64(0)%n + 1
}

// montPow raises a Montgomery-form base to exp by binary
// exponentiation. The accumulator starts at one, the Montgomery
// representation of 1, not the literal value.
func montPow(base, exp, n, nInv, one uint64) uint64 {
	r := one
	for exp > 0 {
		if exp&1 == 1 {
			r = montMul(r, base, n, nInv)
		}
		base = montMul(base, base, n, nInv)
		exp >>= 1
	}
	return r
}

// montSprp reports whether odd n is a strong probable prime to base a,
// with the inner loop entirely in Montgomery form. Only equality
// against one and n-1 (negOne) is ever tested, so results never need
// converting back out of Montgomery space.
func montSprp(n, a, nInv, one uint64) bool {
	d := n - 1
	s := 0
	for d&1 == 0 {
		d >>= 1
		s++
	}
	aMont := toMont(a%n, n)
	if aMont == 0 {
		return true
	}
	x := montPow(aMont, d, n, nInv, one)
	negOne := n - one
	if x == one || x == negOne {
		return true
	}
	for i := 1; i < s; i++ {
		x = montMul(x, x, n, nInv)
		if x == negOne {
			return true
		}
		if x == one {
			return false
		}
	}
	return false
}

package raffle

import "math/bits"

// MulChecked multiplies two unsigned amounts and reports whether the
// product fits in 64 bits. Used for totalPayment = ticketPrice * amount,
// where both factors are attacker-influenced.
func MulChecked(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, false
	}
	return lo, true
}

// AddChecked adds two unsigned amounts and reports whether the sum fits
// in 64 bits.
func AddChecked(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, false
	}
	return sum, true
}

package session

import "math"

// Price derives the token price from the two reserve balances. The
// ratio is canonicalized below 1 by taking the reciprocal, so the
// result is always tokens-per-quote regardless of reserve ordering.
func Price(pool1, pool2 float64) float64 {
	if pool2 <= 0 {
		return math.Inf(1)
	}
	price := pool1 / pool2
	if price >= 1 {
		if pool1 <= 0 {
			return math.Inf(1)
		}
		price = pool2 / pool1
	}
	return price
}

// ChangePct is the percentage change from open to current. A zero open
// price yields zero rather than a division error.
func ChangePct(open, current float64) float64 {
	if open == 0 {
		return 0
	}
	return (current - open) / open * 100
}

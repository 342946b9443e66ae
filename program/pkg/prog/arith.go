package prog

// Checked uint64 arithmetic. Overflow never wraps: it surfaces as
// ErrOverflow and aborts the enclosing operation.

func checkedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	r := a * b
	if r/a != b {
		return 0, ErrOverflow
	}
	return r, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	r := a + b
	if r < a {
		return 0, ErrOverflow
	}
	return r, nil
}

// feeSplit computes the fee and streamer portions of a gross amount.
// feePercent is an integer percentage; the fee rounds down, the remainder
// goes to the streamer, and fee + streamer always equals amount exactly.
func feeSplit(amount, feePercent uint64) (fee, streamer uint64, err error) {
	scaled, err := checkedMul(amount, feePercent)
	if err != nil {
		return 0, 0, err
	}
	fee = scaled / 100
	streamer, err = checkedSub(amount, fee)
	if err != nil {
		return 0, 0, err
	}
	return fee, streamer, nil
}

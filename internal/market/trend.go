package market

// minTrendHistory is the shortest benchmark series the mode classifier will
// accept; shorter series classify as NEUTRAL to avoid unstable calls.
const minTrendHistory = 200

// SMA computes the simple moving average over the first period points of a
// newest-first series. Returns 0 when the series is too short.
func SMA(series []float64, period int) float64 {
	if period <= 0 || len(series) < period {
		return 0
	}
	sum := 0.0
	for _, v := range series[:period] {
		sum += v
	}
	return sum / float64(period)
}

// ClassifyMode derives a coarse BULL/BEAR/NEUTRAL call from the benchmark
// price against its 50- and 200-period averages. history is newest first.
// The price-vs-200 comparison carries double weight; a tie is NEUTRAL.
func ClassifyMode(price float64, history []float64) Mode {
	if len(history) < minTrendHistory {
		return ModeNeutral
	}

	sma50 := SMA(history, 50)
	sma200 := SMA(history, 200)

	bull, bear := 0, 0
	if price > sma200 {
		bull += 2
	} else {
		bear += 2
	}
	if price > sma50 {
		bull++
	} else {
		bear++
	}
	if sma50 > sma200 {
		bull++
	} else {
		bear++
	}

	switch {
	case bull > bear:
		return ModeBull
	case bear > bull:
		return ModeBear
	default:
		return ModeNeutral
	}
}

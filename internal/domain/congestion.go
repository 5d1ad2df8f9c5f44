package domain

// Ratio thresholds in percent of the traffic-free baseline.
const (
	highCongestionPercent     = 130
	moderateCongestionPercent = 110
)

// ClassifyCongestion compares the live duration of a leg against its
// traffic-free baseline: at least 130% is high, above 110% is moderate.
// Without a usable baseline the leg is reported as low.
func ClassifyCongestion(liveSeconds int, staticSeconds *int) Congestion {
	if staticSeconds == nil || *staticSeconds <= 0 {
		return CongestionLow
	}

	live := int64(liveSeconds) * 100
	static := int64(*staticSeconds)
	switch {
	case live >= static*highCongestionPercent:
		return CongestionHigh
	case live > static*moderateCongestionPercent:
		return CongestionModerate
	default:
		return CongestionLow
	}
}

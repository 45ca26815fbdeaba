package retrieval

// Calibrate maps a raw vector distance into a similarity score in [0,1].
// Raw high-dimensional distances cluster in a narrow band and are not
// directly interpretable as confidence, so the mapping compresses small
// distances toward 1.0 and large distances toward 0.0:
//
//	d < 0.5        -> 1.0
//	0.5 <= d < 1.0 -> linear 1.0 -> 0.4
//	1.0 <= d < 1.5 -> linear 0.4 -> 0.1
//	d >= 1.5       -> linear 0.1 -> 0.0, floored at 0
//
// The function is non-increasing and continuous at the breakpoints.
func Calibrate(distance float64) float64 {
	switch {
	case distance < 0.5:
		return 1.0
	case distance < 1.0:
		return 1.0 - 1.2*(distance-0.5)
	case distance < 1.5:
		return 0.4 - 0.6*(distance-1.0)
	default:
		s := 0.1 - 0.2*(distance-1.5)
		if s < 0 {
			return 0
		}
		return s
	}
}

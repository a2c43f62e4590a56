package slider

// SpeedForOffset picks the scrubbing speed for a vertical distance from the anchor.
// The tier is the one belonging to the highest change position not yet reached;
// past the last position the slowest tier wins. ok is false when speeds is empty,
// in which case callers keep whatever speed they had
func SpeedForOffset(speeds []float64, changePositions []float64, verticalOffset float64) (speed float64, ok bool) {
	if len(speeds) == 0 {
		return 0, false
	}

	idx := indexOfLower(changePositions, verticalOffset)
	if idx < 0 {
		idx = len(speeds)
	}

	// the two lists are parallel, but nothing forces them to be the same length
	tier := idx - 1
	if tier < 0 {
		tier = 0
	}
	if tier > len(speeds)-1 {
		tier = len(speeds) - 1
	}

	return speeds[tier], true
}

// indexOfLower returns the first index whose position is strictly greater than offset, or -1
func indexOfLower(changePositions []float64, offset float64) int {
	for i, position := range changePositions {
		if offset < position {
			return i
		}
	}

	return -1
}

package comic

// ResolveDisplayPages maps a requested page index to the set of page indices
// to show under the given layout mode. The result is in ascending order,
// deduplicated, and always within [0, pageCount); an out-of-range request
// yields nil.
//
// Double mode pairs pages at even boundaries: an odd index is pulled back to
// its pair start. Double-center-first shows page 0 alone so covers line up,
// then pairs at odd boundaries: (1,2), (3,4), and so on.
func ResolveDisplayPages(mode PageMode, index, pageCount int) []int {
	if pageCount <= 0 || index < 0 || index >= pageCount {
		return nil
	}

	switch mode {
	case PageModeDouble:
		if index%2 == 1 {
			index--
		}
	case PageModeDoubleCenterFirst:
		if index == 0 {
			return []int{0}
		}
		if index%2 == 0 {
			index--
		}
	default:
		return []int{index}
	}

	if index+1 < pageCount {
		return []int{index, index + 1}
	}
	return []int{index}
}

// DisplayStride is how far a next/previous step moves under a layout mode
// starting from index. Center-first moves one page off the cover and two
// pages everywhere else.
func DisplayStride(mode PageMode, index int) int {
	switch mode {
	case PageModeDouble:
		return 2
	case PageModeDoubleCenterFirst:
		if index == 0 {
			return 1
		}
		return 2
	default:
		return 1
	}
}

package sequence

// ScanRef points at one page of one file
type ScanRef struct {
	FileIndex int `json:"file_index"`
	Page      int `json:"page"`
}

// Scans flattens files into the list of (file, page) pairs a user steps
// through. pageCounts below 1 count as a single page.
func Scans(pageCounts []int) []ScanRef {
	var list []ScanRef
	for fi, n := range pageCounts {
		n = max(n, 1)
		for p := 1; p <= n; p++ {
			list = append(list, ScanRef{FileIndex: fi, Page: p})
		}
	}
	return list
}

// Position returns the index of ref in scans, or -1
func Position(scans []ScanRef, ref ScanRef) int {
	for i, s := range scans {
		if s == ref {
			return i
		}
	}
	return -1
}

// Next returns the scan after ref. ok is false at the end of the list or
// when ref is not in it.
func Next(scans []ScanRef, ref ScanRef) (ScanRef, bool) {
	i := Position(scans, ref)
	if i < 0 || i >= len(scans)-1 {
		return ScanRef{}, false
	}
	return scans[i+1], true
}

// Prev returns the scan before ref. ok is false at the start of the list or
// when ref is not in it.
func Prev(scans []ScanRef, ref ScanRef) (ScanRef, bool) {
	i := Position(scans, ref)
	if i <= 0 {
		return ScanRef{}, false
	}
	return scans[i-1], true
}

package sqlio

const (
	DefaultPageSize   = 10
	DefaultMaxButtons = 10
)

// PageCount returns the number of pages needed for total rows at size rows
// per page. A non-positive size is a usage error.
func PageCount(total int64, size int) (int, error) {
	if size <= 0 {
		return 0, usageErrorf("page size must be positive, got %d", size)
	}
	if total <= 0 {
		return 0, nil
	}
	return int((total + int64(size) - 1) / int64(size)), nil
}

// Pages lists the 1-based page numbers to offer for numPages pages.
//
// When numPages exceeds maxButtons (> 0) and a current page (> 0) is given,
// the list is a window of up to maxButtons pages starting maxButtons/2
// before current, with page 1 forced to the front and the last page forced
// to the end. The window is not shifted back near the end, so it narrows
// there. Otherwise the list is the full range. The result always starts
// with 1, so zero pages yield [1].
func Pages(numPages, maxButtons, current int) []int {
	if numPages <= 0 {
		return []int{1}
	}
	if maxButtons <= 0 || numPages <= maxButtons || current <= 0 {
		return pageRange(1, numPages, 0)
	}

	current = min(current, numPages)
	start := max(current-maxButtons/2, 1)
	end := min(start+maxButtons-1, numPages)

	pages := pageRange(start, end, 2)
	if start > 1 {
		pages = append([]int{1}, pages...)
	}
	if end < numPages {
		pages = append(pages, numPages)
	}
	return pages
}

func pageRange(from, to, extra int) []int {
	out := make([]int, 0, to-from+1+extra)
	for p := from; p <= to; p++ {
		out = append(out, p)
	}
	return out
}

package search

// DefaultPageSize is the number of results per page.
const DefaultPageSize = 8

// Paginate returns the 1-based page of items and the total page count.
// Pages past the end are empty. Page numbers below 1 are treated as 1 and
// non-positive sizes use DefaultPageSize.
func Paginate[T any](items []T, page, size int) (pageItems []T, current, totalPages int) {
	if size <= 0 {
		size = DefaultPageSize
	}

	if page < 1 {
		page = 1
	}

	totalPages = (len(items) + size - 1) / size

	// Checked before multiplying so huge page numbers cannot overflow.
	if page > totalPages {
		return []T{}, page, totalPages
	}

	start := (page - 1) * size
	end := min(start+size, len(items))

	return items[start:end], page, totalPages
}

package pagination

// ClampPage returns page, or 1 when page is below 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Offset returns the zero-based offset of a 1-based page.
func Offset(page, size int) int {
	if size <= 0 {
		return 0
	}
	return (ClampPage(page) - 1) * size
}

// TotalPages returns how many pages of size cover count items.
func TotalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// Slice returns the items of a 1-based page. Pages past the end are empty.
func Slice[T any](items []T, page, size int) []T {
	if size <= 0 {
		return []T{}
	}
	start := Offset(page, size)
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

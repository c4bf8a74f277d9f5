package catalog

// Page returns items[offset:offset+pageSize] clipped to bounds, and whether
// items remain after the page. pageSize <= 0 disables paging; a negative
// offset is treated as 0.
func Page[T any](items []T, pageSize, offset int) ([]T, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil, false
	}
	if pageSize <= 0 {
		return items[offset:], false
	}
	end := offset + pageSize
	if end >= len(items) {
		return items[offset:], false
	}
	return items[offset:end], true
}

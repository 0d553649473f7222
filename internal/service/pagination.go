package service

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Page struct {
	Number int
	Size   int
}

// Bounds clamps the page to sane values and returns offset and limit.
func (p Page) Bounds() (from, limit int) {
	page, size := p.Number, p.Size
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return (page - 1) * size, size
}

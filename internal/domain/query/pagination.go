package query

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination is a limit/offset window over an ordered result set.
type Pagination struct {
	Limit  int
	Offset int
}

// Normalize clamps limit into (0, MaxLimit] and offset to >= 0.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// NextOffset returns the offset of the following page.
func (p Pagination) NextOffset() int {
	return p.Offset + p.Limit
}

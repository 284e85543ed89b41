package store

// Page size bounds for listings.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// PageRequest is an offset/limit window into an ordered listing.
type PageRequest struct {
	Offset int
	Limit  int
}

// Normalize clamps the request into the supported window: limit in
// [1, MaxPageLimit] with DefaultPageLimit for non-positive values, and a
// non-negative offset.
func (p PageRequest) Normalize() PageRequest {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Page is one window of a listing plus the total number of matching rows.
// Total is counted independently of the window.
type Page[T any] struct {
	Items  []T
	Offset int
	Limit  int
	Total  int
}

// HasMore reports whether rows exist past this window.
func (p Page[T]) HasMore() bool {
	return p.Offset+p.Limit < p.Total
}

// NextOffset is the offset of the following window.
func (p Page[T]) NextOffset() int {
	return p.Offset + len(p.Items)
}

// Package domain holds shared domain-layer contracts.
package domain

// ListFilter carries common pagination parameters.
type ListFilter struct {
	Limit  int
	Offset int
}

// Normalize applies defaults and caps.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult is a paginated query result.
type ListResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

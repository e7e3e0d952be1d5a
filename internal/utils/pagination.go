package utils

import (
	"math"

	"commentservice/internal/apperr"
)

const (
	DefaultPageNo   = 0
	DefaultPageSize = 10
)

// Paginate returns the pageNo-th window of pageSize items from seq and its length.
// A page past the end yields an empty, non-nil window.
func Paginate[T any](seq []T, pageNo, pageSize int) ([]T, int, error) {
	if pageSize <= 0 {
		return nil, 0, apperr.InvalidArgument("pageSize must be positive, got %d", pageSize)
	}
	if pageNo < 0 {
		return nil, 0, apperr.InvalidArgument("pageNo must not be negative, got %d", pageNo)
	}

	// pageNo*pageSize may overflow
	if pageNo > 0 && pageNo > (math.MaxInt-pageSize)/pageSize {
		return []T{}, 0, nil
	}
	start := pageNo * pageSize
	if start >= len(seq) {
		return []T{}, 0, nil
	}
	end := start + pageSize
	if end > len(seq) {
		end = len(seq)
	}

	window := make([]T, end-start)
	copy(window, seq[start:end])
	return window, len(window), nil
}

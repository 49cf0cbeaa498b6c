package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type OffsetPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

type OrderCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

// endOfTime sorts after every real order, so the empty cursor starts at the
// newest row.
var endOfTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return OrderCursor{
			CreatedAt: endOfTime,
			ID:        math.MaxInt64,
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, err
	}

	err = json.Unmarshal(data, &cursor)
	return cursor, err
}

// MaxPage bounds offset pagination so the OFFSET always fits the column types.
const MaxPage = 100000

// pageOffset clamps page to [1, MaxPage] and returns it with its row offset.
func pageOffset(page, pageSize int) (int, int64) {
	page = min(max(page, 1), MaxPage)
	return page, int64(page-1) * int64(pageSize)
}

func totalPages(total int64, pageSize int) int {
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}

package store

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), ID: 42}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)

	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeEmptyCursorStartsAfterEverything(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)

	assert.True(t, cursor.CreatedAt.After(time.Now().AddDate(100, 0, 0)))
	assert.Equal(t, int64(1<<63-1), cursor.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not base64!")
	assert.Error(t, err)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
}

func TestPageOffset(t *testing.T) {
	page, offset := pageOffset(3, 20)
	assert.Equal(t, 3, page)
	assert.Equal(t, int64(40), offset)

	page, offset = pageOffset(0, 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, int64(0), offset)

	page, offset = pageOffset(math.MaxInt, 100)
	assert.Equal(t, MaxPage, page)
	assert.Equal(t, int64(MaxPage-1)*100, offset)
	assert.Positive(t, offset)
}

func TestParseProductSort(t *testing.T) {
	assert.Equal(t, SortByPrice, ParseProductSort("price"))
	assert.Equal(t, SortByName, ParseProductSort("name"))
	assert.Equal(t, SortByName, ParseProductSort("popularity"))
	assert.Equal(t, "price ASC, id ASC", SortByPrice.orderBy())
}

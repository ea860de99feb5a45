package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id string
	at time.Time
}

func itemKey(i item) (string, time.Time) { return i.id, i.at }

func newestFirst() []item {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []item{
		{"e", base.Add(4 * time.Second)},
		{"c", base.Add(2 * time.Second)},
		{"d", base.Add(2 * time.Second)},
		{"b", base.Add(time.Second)},
		{"a", base},
	}
}

func ids(items []item) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.id)
	}
	return out
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

	decoded, err := DecodeCursor(EncodeCursor("task-1", ts))
	require.NoError(t, err)
	assert.Equal(t, "task-1", decoded.LastID)
	assert.True(t, ts.Equal(decoded.Timestamp))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, raw := range []string{"!!!", "bm8tc2VwYXJhdG9y", "aWR8bm90LWEtdGltZQ"} {
		_, err := DecodeCursor(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor, raw)
	}

	c, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestParseLimit(t *testing.T) {
	limit, err := ParseLimit("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, limit)

	limit, err = ParseLimit("10")
	require.NoError(t, err)
	assert.Equal(t, 10, limit)

	limit, err = ParseLimit("100000")
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, limit)

	_, err = ParseLimit("0")
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = ParseLimit("ten")
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestPaginate_WalksAllPages(t *testing.T) {
	items := newestFirst()

	first := Paginate(items, nil, 2, itemKey)
	assert.Equal(t, []string{"e", "c"}, ids(first.Items))
	require.True(t, first.HasMore)

	c, err := DecodeCursor(first.Cursor)
	require.NoError(t, err)
	second := Paginate(items, c, 2, itemKey)
	assert.Equal(t, []string{"d", "b"}, ids(second.Items))
	require.True(t, second.HasMore)

	c, err = DecodeCursor(second.Cursor)
	require.NoError(t, err)
	last := Paginate(items, c, 2, itemKey)
	assert.Equal(t, []string{"a"}, ids(last.Items))
	assert.False(t, last.HasMore)
	assert.Empty(t, last.Cursor)
}

func TestPaginate_CursorPastEnd(t *testing.T) {
	items := newestFirst()
	c := &Cursor{LastID: "a", Timestamp: items[4].at}

	page := Paginate(items, c, 10, itemKey)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
}

func TestPaginate_CursorForDeletedItem(t *testing.T) {
	items := newestFirst()
	c := &Cursor{LastID: "zz", Timestamp: items[0].at.Add(-500 * time.Millisecond)}

	page := Paginate(items, c, 10, itemKey)
	assert.Equal(t, []string{"c", "d", "b", "a"}, ids(page.Items))
}

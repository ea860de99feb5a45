// Package pagination pages newest-first listings with opaque cursors.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
)

// Cursor marks the last item of the previous page.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor returns nil for an empty cursor.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	id, ts, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// ParseLimit reads a limit query value, clamping it to MaxLimit.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, ErrInvalidLimit
	}
	return min(limit, MaxLimit), nil
}

// Paginate slices items that are already sorted newest first, ties broken by
// ascending ID. Items at or before the cursor position are skipped.
func Paginate[T any](items []T, cursor *Cursor, limit int, key func(T) (string, time.Time)) PageResult[T] {
	start := 0
	if cursor != nil {
		start = len(items)
		for i, item := range items {
			id, ts := key(item)
			if ts.Before(cursor.Timestamp) || (ts.Equal(cursor.Timestamp) && id > cursor.LastID) {
				start = i
				break
			}
		}
	}

	rest := items[start:]
	if len(rest) <= limit {
		return PageResult[T]{Items: rest}
	}

	page := rest[:limit]
	id, ts := key(page[len(page)-1])
	return PageResult[T]{
		Items:   page,
		Cursor:  EncodeCursor(id, ts),
		HasMore: true,
	}
}

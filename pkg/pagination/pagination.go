// Package pagination implements keyset (created_at, id) cursors for list
// endpoints. Cursors are opaque to clients and URL safe.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is one page request as received from a controller.
type Params struct {
	Limit  int
	Cursor string
}

// Size clamps Limit into [1, MaxLimit], defaulting to DefaultLimit.
func (p Params) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Fetch is the row count to query: one extra row reveals a further page.
func (p Params) Fetch() int {
	return p.Size() + 1
}

// Key is the position of the last row on a page. Rows are ordered by
// created_at DESC, id DESC.
type Key struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (k Key) Encode() string {
	raw := strconv.FormatInt(k.CreatedAt.UTC().UnixNano(), 10) + ":" + k.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor. An empty cursor means the first page and yields nil.
func Decode(cursor string) (*Key, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, fmt.Errorf("malformed cursor")
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &Key{CreatedAt: time.Unix(0, ts).UTC(), ID: parsed}, nil
}

// Trim cuts rows fetched with Fetch() down to one page and returns the
// cursor for the next page, or "" on the last page.
func Trim[T any](rows []T, p Params, key func(T) Key) ([]T, string) {
	size := p.Size()
	if len(rows) <= size {
		return rows, ""
	}
	page := rows[:size]
	return page, key(page[size-1]).Encode()
}

package chesscom

import (
	"net/url"
	"path"
	"time"

	"chess-explorer/internal/api"
)

// payload tracks which required fields a response lacked.
type payload struct {
	doc     api.Document
	missing []string
}

// put receives a required field. When the field is absent the cell is left
// stale so that reads of it report DataUnavailable.
func put[T any](pl *payload, c *Cell[T], key string, read func(api.Document, string) (T, bool)) {
	if v, ok := read(pl.doc, key); ok {
		c.receive(v)
		return
	}
	pl.missing = append(pl.missing, key)
}

// putOptional receives nil for an absent field.
func putOptional[T any](pl *payload, c *Cell[*T], key string, read func(api.Document, string) (T, bool)) {
	if v, ok := read(pl.doc, key); ok {
		c.receive(&v)
		return
	}
	c.receive(nil)
}

func stringField(d api.Document, key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

func boolField(d api.Document, key string) (bool, bool) {
	b, ok := d[key].(bool)
	return b, ok
}

func int64Field(d api.Document, key string) (int64, bool) {
	switch n := d[key].(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case interface{ Int64() (int64, error) }:
		v, err := n.Int64()
		return v, err == nil
	default:
		return 0, false
	}
}

func intField(d api.Document, key string) (int, bool) {
	n, ok := int64Field(d, key)
	return int(n), ok
}

// timeField reads a unix timestamp in seconds.
func timeField(d api.Document, key string) (time.Time, bool) {
	n, ok := int64Field(d, key)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}

func asDocument(v any) (api.Document, bool) {
	switch m := v.(type) {
	case map[string]any:
		return api.Document(m), true
	case api.Document:
		return m, true
	default:
		return nil, false
	}
}

func objectField(d api.Document, key string) (api.Document, bool) {
	return asDocument(d[key])
}

func listField(d api.Document, key string) ([]any, bool) {
	l, ok := d[key].([]any)
	return l, ok
}

// stringList reads a list of strings, skipping entries of any other type.
func stringList(d api.Document, key string) ([]string, bool) {
	l, ok := listField(d, key)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(l))
	for _, v := range l {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// KeyFromURL returns the last path segment of an entity URL, e.g. "BR" for
// "https://api.chess.com/pub/country/BR". It returns "" when the reference
// names no entity.
func KeyFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	switch key := path.Base(p); key {
	case ".", "..", "/":
		return ""
	default:
		return key
	}
}

func endpoint(kind, key, suffix string) string {
	e := kind + "/" + url.PathEscape(key)
	if suffix != "" {
		e += "/" + suffix
	}
	return e
}

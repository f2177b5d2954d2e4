package adsql

import (
	"strings"

	"github.com/pkg/errors"
)

// PlaceholderStyle selects how the driver treats parameter markers.
type PlaceholderStyle int

const (
	// PlaceholderFormat expects "%s" markers and rewrites them to "?".
	// A literal percent sign must be written as "%%".
	PlaceholderFormat PlaceholderStyle = iota
	// PlaceholderQMark passes queries through untouched.
	PlaceholderQMark
)

var (
	ErrBadPlaceholder   = errors.New("adsql: unsupported placeholder")
	ErrPlaceholderCount = errors.New("adsql: placeholder count does not match arguments")
)

// ConvertQuery rewrites "format" style placeholders into the "qmark"
// style understood by Advantage. The query must carry exactly numParams
// "%s" markers.
func ConvertQuery(query string, numParams int) (string, error) {
	out, n, err := rewritePlaceholders(query)
	if err != nil {
		return "", err
	}
	if n != numParams {
		return "", errors.Wrapf(ErrPlaceholderCount, "query has %d markers, got %d arguments", n, numParams)
	}
	return out, nil
}

func rewritePlaceholders(query string) (string, int, error) {
	if strings.IndexByte(query, '%') < 0 {
		return query, 0, nil
	}

	var b strings.Builder
	b.Grow(len(query))
	n := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(query) {
			return "", 0, errors.Wrap(ErrBadPlaceholder, "incomplete marker at end of query")
		}
		i++
		switch query[i] {
		case 's':
			b.WriteByte('?')
			n++
		case '%':
			b.WriteByte('%')
		default:
			return "", 0, errors.Wrapf(ErrBadPlaceholder, "%%%c at offset %d", query[i], i-1)
		}
	}
	return b.String(), n, nil
}

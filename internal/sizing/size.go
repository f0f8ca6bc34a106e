// Package sizing provides bounded reads and size conversions.
package sizing

import (
	"bytes"
	"io"
	"math"
)

// ToInt converts an int64 to int, returning overflowErr if it doesn't fit.
func ToInt(size int64, overflowErr error) (int, error) {
	if size < 0 || size > int64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// ReadExact reads a payload that is declared to be exactly size bytes.
// It returns mismatchErr when r yields fewer or more bytes than declared.
// A negative size means unknown; r is then read to EOF.
func ReadExact(r io.Reader, size int64, mismatchErr error) ([]byte, error) {
	if size < 0 {
		return io.ReadAll(r)
	}
	n, err := ToInt(size, mismatchErr)
	if err != nil {
		return nil, err
	}
	if n == math.MaxInt {
		return nil, mismatchErr
	}

	var buf bytes.Buffer
	buf.Grow(n)
	// Read one byte past the declared size to detect growth.
	if _, err := io.Copy(&buf, io.LimitReader(r, size+1)); err != nil {
		return nil, err
	}
	if buf.Len() != n {
		return nil, mismatchErr
	}
	return buf.Bytes(), nil
}

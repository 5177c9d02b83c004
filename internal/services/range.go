package services

import (
	"mime"
	"path"
	"strconv"
	"strings"

	cloud_errors "pats-cloud/pkg/errors"
)

// ByteRange is the effective slice a Range header resolved to against a
// file of known size.
type ByteRange struct {
	Start int64
	End   int64 // inclusive
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ParseRange resolves a "bytes=start-end" header (either bound optional)
// against size. Returns (nil, nil) when the whole file should be served
// with a plain 200: no header, a malformed header, or a range covering the
// entire file such as "bytes=0-". Unsatisfiable ranges (start at or past
// EOF, start beyond end) return ErrRangeNotSatisfiable.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, nil
	}
	// Multi-range requests are served whole, like any malformed header.
	if strings.Contains(spec, ",") {
		return nil, nil
	}
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return nil, nil
	}

	var start, end int64
	switch {
	case startStr == "" && endStr == "":
		return nil, nil
	case startStr == "":
		// Suffix range: the final N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, nil
		}
		if n > size {
			n = size
		}
		start, end = size-n, size-1
	default:
		var err error
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return nil, nil
		}
		if endStr == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return nil, nil
			}
		}
	}

	if start >= size || start > end {
		return nil, cloud_errors.ErrRangeNotSatisfiable
	}
	if end > size-1 {
		end = size - 1
	}
	if start == 0 && end == size-1 {
		// The whole file; no point in a 206.
		return nil, nil
	}
	return &ByteRange{Start: start, End: end}, nil
}

// ContentTypeFor maps a filename extension to a content type, falling back
// to a generic binary type.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

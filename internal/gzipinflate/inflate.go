// Package gzipinflate wraps standard gzip decompression behind the small
// contract the Huobi handler needs: inflate(bytes) -> bytes. Huobi is the
// only venue that gzips its frames (spec.md §4.5).
package gzipinflate

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
)

// MaxOutput bounds the decompressed size; a frame whose inflated body would
// exceed it is dropped rather than risk unbounded memory growth from a
// malformed or hostile frame.
const MaxOutput = 8 * 1024

// ErrOverflow is returned when the inflated payload would exceed MaxOutput.
var ErrOverflow = errors.New("gzipinflate: inflated payload exceeds buffer")

// Inflate decompresses raw gzip-framed bytes. It never returns more than
// MaxOutput bytes; exceeding that is a failure, and the caller must drop
// the frame (spec.md §4.5, §7).
func Inflate(raw []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	limited := io.LimitReader(reader, MaxOutput+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(out) > MaxOutput {
		return nil, ErrOverflow
	}
	return out, nil
}

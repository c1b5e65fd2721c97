package encoding

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compressed reports whether data looks like a zlib stream rather than a JSON document.
// JSON frames start with an object or array, possibly after whitespace.
func Compressed(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	return len(data) > 0 && data[0] != '{' && data[0] != '['
}

// Inflate decompresses a zlib compressed frame.
func Inflate(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to create zlib reader. %w", err)
	}
	defer reader.Close()

	inflated, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate frame. %w", err)
	}
	return inflated, nil
}

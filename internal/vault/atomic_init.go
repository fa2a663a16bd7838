package vault

import (
	"io"

	"github.com/natefinch/atomic"
)

// atomicCreateZeroed writes a new, zero-filled file of exactly length bytes
// at path via a temp-file-plus-rename so the file either doesn't exist or
// exists complete, matching the atomic-replace idiom the teacher codebase
// used for its own disk-image writes (internal/diskimage/atomic.go),
// generalized here with github.com/natefinch/atomic instead of a hand-rolled
// temp+rename helper.
func atomicCreateZeroed(path string, length int) error {
	return atomic.WriteFile(path, io.LimitReader(zeroReader{}, int64(length)))
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

package vault

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// region is the abstract "persistent byte array with flush" of §4.1: a
// fixed-length byte buffer that can be read, written, and flushed to stable
// storage. It is implemented by memory-mapping a host file, the same way
// other_examples/marmos91-dittofs backs its write-ahead log with
// golang.org/x/sys/unix.Mmap rather than issuing pread/pwrite per access.
type region struct {
	f    *os.File
	data []byte
}

// openRegion mmaps path with MAP_SHARED so writes are visible to other
// mappings of the same file and persisted by flush. The file must already
// exist with exactly wantLen bytes; size mismatches are a hard failure per
// §4.1 (regions never resize themselves).
func openRegion(path string, wantLen int) (*region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("vault: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	if wantLen < 0 || st.Size() != int64(wantLen) {
		f.Close()
		return nil, fmt.Errorf("vault: %s has size %d, want %d", path, st.Size(), wantLen)
	}
	if wantLen == 0 {
		return &region{f: f, data: nil}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, wantLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("vault: mmap %s: %w", path, err)
	}
	return &region{f: f, data: data}, nil
}

// createRegion creates a new, zero-filled host file of exactly length bytes
// using an atomic rename so a half-initialized volume can never be observed
// by a concurrent opener, then opens it as a region.
func createRegion(path string, length int) (*region, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("vault: %s already exists", path)
	}
	if err := atomicCreateZeroed(path, length); err != nil {
		return nil, err
	}
	return openRegion(path, length)
}

// openRegionSizeOnly stats a backing file without mapping it, used by Open
// to discover DATA_LEN/DIR_LEN/HASH_LEN before any region is mmapped.
func openRegionSizeOnly(path string) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	return int(st.Size()), nil
}

func (r *region) len() int { return len(r.data) }

func (r *region) bytesAt(off, n int) []byte {
	if off < 0 || n < 0 || off+n > len(r.data) {
		fatalf("vault: region: out-of-range access off=%d n=%d len=%d", off, n, len(r.data))
	}
	return r.data[off : off+n]
}

func (r *region) writeAt(off int, buf []byte) {
	dst := r.bytesAt(off, len(buf))
	copy(dst, buf)
}

// copyWithin performs an overlap-safe move inside the region, required by
// the repack engine (§4.5) when a file's new position overlaps its old one.
func (r *region) copyWithin(dst, src, n int) {
	d := r.bytesAt(dst, n)
	s := r.bytesAt(src, n)
	copy(d, s)
}

func (r *region) flush() {
	if len(r.data) == 0 {
		return
	}
	if err := unix.Msync(r.data, unix.MS_SYNC); err != nil {
		fatalf("vault: msync: %v", err)
	}
}

func (r *region) close() {
	if len(r.data) > 0 {
		if err := unix.Munmap(r.data); err != nil {
			fatalf("vault: munmap: %v", err)
		}
		r.data = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
}

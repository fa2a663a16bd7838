// Package adapter exposes the store's command surface (§6.3) over a plain
// TCP binary protocol: a one-byte opcode request, little-endian fixed-width
// arguments, and a one-byte status response followed by any output payload.
package adapter

import (
	"encoding/binary"
	"fmt"
)

// Decoder reads little-endian primitives from a byte slice. Adapted from
// internal/proto/codec.go, extended with a 64-bit read to pair with
// Encoder.WriteU64; request offset and length fields are all u32.
type Decoder struct {
	b []byte
	o int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{b: b, o: 0}
}

func (d *Decoder) Remaining() int { return len(d.b) - d.o }

func (d *Decoder) ReadU8() (byte, error) {
	if d.Remaining() < 1 {
		return 0, fmt.Errorf("need 1 byte")
	}
	v := d.b[d.o]
	d.o++
	return v, nil
}

func (d *Decoder) ReadU32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, fmt.Errorf("need 4 bytes")
	}
	v := binary.LittleEndian.Uint32(d.b[d.o : d.o+4])
	d.o += 4
	return v, nil
}

func (d *Decoder) ReadU64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, fmt.Errorf("need 8 bytes")
	}
	v := binary.LittleEndian.Uint64(d.b[d.o : d.o+8])
	d.o += 8
	return v, nil
}

func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length")
	}
	if d.Remaining() < n {
		return nil, fmt.Errorf("need %d bytes", n)
	}
	v := d.b[d.o : d.o+n]
	d.o += n
	return v, nil
}

// ReadName reads a u8 length-prefixed file name (at most vault.MaxNameBytes).
func (d *Decoder) ReadName(maxLen int) (string, error) {
	ln, err := d.ReadU8()
	if err != nil {
		return "", err
	}
	if int(ln) > maxLen {
		return "", fmt.Errorf("name length %d exceeds limit %d", ln, maxLen)
	}
	b, err := d.ReadBytes(int(ln))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Encoder builds little-endian protocol payloads.
type Encoder struct {
	b []byte
}

func NewEncoder(capacity int) *Encoder {
	if capacity < 0 {
		capacity = 0
	}
	return &Encoder{b: make([]byte, 0, capacity)}
}

func (e *Encoder) Bytes() []byte { return e.b }

func (e *Encoder) WriteU8(v byte) {
	e.b = append(e.b, v)
}

func (e *Encoder) WriteU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.b = append(e.b, tmp[:]...)
}

func (e *Encoder) WriteU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.b = append(e.b, tmp[:]...)
}

func (e *Encoder) WriteBytes(b []byte) {
	e.b = append(e.b, b...)
}

func (e *Encoder) WriteName(s string) error {
	b := []byte(s)
	if len(b) > 0xFF {
		return fmt.Errorf("name too long: %d", len(b))
	}
	e.WriteU8(byte(len(b)))
	e.WriteBytes(b)
	return nil
}

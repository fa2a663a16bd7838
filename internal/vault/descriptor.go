package vault

import "encoding/binary"

// descriptor is the in-memory record for one live file. It is shared by
// reference between the by-offset and by-name sorted views (index.go); the
// offsetIdx/nameIdx fields always mirror its current position in each, or -1
// when it has been temporarily detached (e.g. mid-relocate).
type descriptor struct {
	name   [MaxNameBytes]byte
	nameLn int // number of significant bytes in name

	offset uint64 // OutOfBand for zero-length files
	length uint32

	slot int

	offsetIdx int
	nameIdx   int
}

func newDescriptor(name string, slot int) *descriptor {
	d := &descriptor{slot: slot, offsetIdx: -1, nameIdx: -1}
	d.setName(name)
	return d
}

// setName truncates to MaxNameBytes, matching the §4.7 rename_file contract.
func (d *descriptor) setName(name string) {
	b := []byte(name)
	if len(b) > MaxNameBytes {
		b = b[:MaxNameBytes]
	}
	d.name = [MaxNameBytes]byte{}
	copy(d.name[:], b)
	d.nameLn = len(b)
}

func (d *descriptor) nameBytes() []byte {
	return d.name[:d.nameLn]
}

func (d *descriptor) nameString() string {
	return string(d.nameBytes())
}

// diskOffset returns the 32-bit offset written to the directory table: 0 for
// zero-length files regardless of the in-memory OutOfBand sentinel (§3.2.5).
func (d *descriptor) diskOffset() uint32 {
	if d.length == 0 {
		return 0
	}
	return uint32(d.offset)
}

// encodeRow serializes this descriptor into one MetaLen-byte directory row.
func (d *descriptor) encodeRow(row []byte) {
	if len(row) != MetaLen {
		fatalf("vault: encodeRow: row must be %d bytes, got %d", MetaLen, len(row))
	}
	for i := range row {
		row[i] = 0
	}
	copy(row[0:MaxNameBytes], d.nameBytes())
	binary.LittleEndian.PutUint32(row[NameLen:NameLen+4], d.diskOffset())
	binary.LittleEndian.PutUint32(row[NameLen+4:NameLen+8], d.length)
}

// decodeRow parses one directory row into a fresh descriptor for the given
// slot. ok is false when the slot is free (first name byte is 0).
func decodeRow(row []byte, slot int) (d *descriptor, ok bool) {
	if len(row) != MetaLen {
		fatalf("vault: decodeRow: row must be %d bytes, got %d", MetaLen, len(row))
	}
	if row[0] == 0 {
		return nil, false
	}
	nameLn := 0
	for nameLn < MaxNameBytes && row[nameLn] != 0 {
		nameLn++
	}
	d = &descriptor{slot: slot, offsetIdx: -1, nameIdx: -1}
	copy(d.name[:], row[0:MaxNameBytes])
	d.nameLn = nameLn
	off := binary.LittleEndian.Uint32(row[NameLen : NameLen+4])
	d.length = binary.LittleEndian.Uint32(row[NameLen+4 : NameLen+8])
	if d.length == 0 {
		d.offset = OutOfBand
	} else {
		d.offset = uint64(off)
	}
	return d, true
}

// clearRow zeroes the first name byte of a freed slot, marking it unused on
// disk per §4.7 delete_file.
func clearRow(row []byte) {
	row[0] = 0
}

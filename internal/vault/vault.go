// Package vault implements a persistent, single-volume file store backed by
// three fixed-size host files: a packed data region, a fixed-length directory
// table, and a hash region holding a Merkle tree over the data.
//
// The store keeps two in-memory sorted views over the same set of file
// descriptors (by data offset and by name) so that name lookups are binary
// searches and space allocation and repack walk files in data order, and a
// flat binary hash tree so that
// any byte range can be integrity-checked without rereading the whole volume.
package vault

const (
	// NameLen is the on-disk width of a descriptor's name field, including the
	// reserved NUL terminator byte.
	NameLen = 64
	// MaxNameBytes is the usable portion of NameLen available for the name
	// itself; the comparator and disk mirror both operate on this many bytes.
	MaxNameBytes = NameLen - 1

	// MetaLen is the width of one directory-table row: name + offset + length.
	MetaLen = NameLen + 4 + 4

	// HashNodeLen is the width of one Merkle tree node (four LE u32 words).
	HashNodeLen = 16

	// BlockLen is the number of data bytes covered by one hash leaf.
	BlockLen = 256

	// OutOfBand is the in-memory sentinel offset carried by every zero-length
	// descriptor so it sorts after all real offsets in the by-offset view.
	OutOfBand uint64 = 1 << 32
)

// Public commands return a small per-operation integer code rather than a
// shared enum: the same number means different things on different
// operations (e.g. 1 means "name exists" on CreateFile but "name absent" on
// ResizeFile). The doc comment on each method spells out its own codes. The
// Err* sentinels in errors.go are used only by internal helpers; no exported
// method returns them.
const (
	CodeOK = 0
)

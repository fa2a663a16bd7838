package vault

// resizeInPlaceOrRelocate implements §4.6: grow or shrink d to newLen,
// relocating it only when growth can't be satisfied in place.
// bytesToPreserve lets write_file skip copying bytes it is about to
// overwrite anyway. Returns the lowest offset whose bytes were moved, by the
// repack or by relocating d itself, or -1 if nothing moved.
//
// Grounded on internal/diskimage/d81_write.go / d64_write.go's
// grow-in-place-or-reallocate handling for a file chain that outgrows its
// current blocks.
func (s *Store) resizeInPlaceOrRelocate(d *descriptor, newLen uint32, bytesToPreserve uint32) int {
	oldLen := d.length
	repackedFrom := -1

	if newLen > oldLen {
		if oldLen == 0 {
			pos := d.offsetIdx
			s.byOffset.removeDescriptor(d, pos)
			if s.headRoomFor(newLen) {
				d.offset = 0
			} else {
				repackedFrom = s.repack()
				d.offset = uint64(s.used)
			}
			// reinsertByOffset routes by d.length == 0; update it before the
			// reinsert so a zero-length descriptor growing in place lands at
			// its real new offset instead of unconditionally at the tail.
			d.length = newLen
			s.reinsertByOffset(d)
		} else {
			if !s.roomAfter(d, newLen) {
				preserve := bytesToPreserve
				if preserve > oldLen {
					preserve = oldLen
				}
				scratch := make([]byte, preserve)
				copy(scratch, s.data.bytesAt(int(d.offset), int(preserve)))

				pos := d.offsetIdx
				s.byOffset.removeDescriptor(d, pos)
				repackedFrom = s.repack()

				newOffset := uint64(s.used) - uint64(oldLen)
				if preserve > 0 {
					s.data.writeAt(int(newOffset), scratch)
				}
				if repackedFrom < 0 {
					// The repack moved nothing, but d's own bytes did move.
					repackedFrom = int(newOffset)
				}
				d.offset = newOffset
				s.reinsertByOffset(d)
			}
		}
	}

	if newLen != oldLen {
		if newLen == 0 {
			// A file shrunk to zero length takes the OutOfBand sentinel and
			// joins the other zero-length entries at the by-offset tail.
			s.byOffset.removeDescriptor(d, d.offsetIdx)
			d.offset = OutOfBand
			d.length = 0
			s.byOffset.appendAtEnd(d)
		}
		d.length = newLen
		s.writeDescriptorRow(d)
		s.used = s.used - oldLen + newLen
	}

	return repackedFrom
}

// headRoomFor reports whether the first live (non-zero-length) block starts
// at or after newLen, i.e. there is room for a zero-length descriptor
// growing in place at offset 0.
func (s *Store) headRoomFor(newLen uint32) bool {
	n := s.byOffset.size()
	if n == 0 {
		return true
	}
	first := s.byOffset.at(0)
	if first.length == 0 {
		return true
	}
	return first.offset >= uint64(newLen)
}

// roomAfter reports whether d (still at its current offset) has room to
// grow to newLen before its next non-zero neighbor (or DATA_LEN if none).
func (s *Store) roomAfter(d *descriptor, newLen uint32) bool {
	limit := uint64(s.dataLen)
	pos := d.offsetIdx
	if pos >= 0 && pos+1 < s.byOffset.size() {
		next := s.byOffset.at(pos + 1)
		if next.length != 0 {
			limit = next.offset
		}
	}
	return d.offset+uint64(newLen) <= limit
}

// reinsertByOffset places d back into the by-offset view, routing
// zero-length descriptors to the O(1) tail append per §4.3.
func (s *Store) reinsertByOffset(d *descriptor) {
	if d.length == 0 {
		s.byOffset.appendAtEnd(d)
		return
	}
	s.byOffset.insert(d)
}

package vault

// nextOffset implements §4.4 next_offset: find the first gap in the
// by-offset view (skipping zero-length entries, which live past end of
// data) at least `length` bytes wide, or trigger a repack and append at the
// new end of the contiguous live region.
//
// Grounded on internal/diskimage/d81_repack.go's computeD81RepackTracks,
// which walks a sorted block list looking for the first span with enough
// free room; here the span search is over byte offsets instead of track
// counts.
// didRepack tells the caller whether a repack pass was invoked at all (it
// may have moved nothing); repackedFrom is only meaningful when didRepack is
// true, and is -1 when the repack moved nothing.
func (s *Store) nextOffset(length uint32) (offset uint64, repackedFrom int, didRepack bool) {
	if length == 0 {
		return OutOfBand, -1, false
	}

	prevEnd := uint64(0)
	n := s.byOffset.size()
	for i := 0; i < n; i++ {
		d := s.byOffset.at(i)
		if d.length == 0 {
			break // zero-length entries are parked at the end; nothing more to scan
		}
		gap := d.offset - prevEnd
		if gap >= uint64(length) {
			return prevEnd, -1, false
		}
		prevEnd = d.offset + uint64(d.length)
	}
	if uint64(s.dataLen)-prevEnd >= uint64(length) {
		return prevEnd, -1, false
	}

	from := s.repack()
	return uint64(s.used), from, true
}

// nextSlot implements §4.4 next_slot: the lowest index not marked in use, or
// -1 when the directory table is full.
func (s *Store) nextSlot() int {
	return s.slots.nextFree()
}

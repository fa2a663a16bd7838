package vault

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Store is the operation layer of §4.7: the public command surface,
// coordinating the sorted indices, allocator, repack/resize engines, and
// Merkle tree under one store-wide lock.
//
// Grounded on internal/server/server.go's single writeMu-guarded request
// handling: every public method here acquires mu at entry and releases it
// at exit, exactly like that server serialized every request behind one
// mutex.
type Store struct {
	mu sync.Mutex

	data *region
	dir  *region
	hash *region

	dataLen int
	maxSlots int

	used uint32

	slots       *slotBitmap
	descriptors []*descriptor // indexed by slot; nil when free

	byOffset *sortedIndex
	byName   *sortedIndex

	tree *hashTree

	log *zap.Logger
}

// Open implements §4.7 open: maps the three backing regions, validates
// their sizes against §4.1, loads every occupied directory-table row into a
// descriptor, and builds both sorted views plus the initial hash tree.
func Open(dataPath, dirPath, hashPath string, nProcessors int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dirSt, err := openRegionSizeOnly(dirPath)
	if err != nil {
		return nil, err
	}
	if dirSt%MetaLen != 0 {
		fatalf("vault: directory table size %d is not a multiple of %d", dirSt, MetaLen)
	}
	maxSlots := dirSt / MetaLen

	dataSt, err := openRegionSizeOnly(dataPath)
	if err != nil {
		return nil, err
	}

	hashSt, err := openRegionSizeOnly(hashPath)
	if err != nil {
		return nil, err
	}

	data, err := openRegion(dataPath, dataSt)
	if err != nil {
		return nil, err
	}
	dir, err := openRegion(dirPath, dirSt)
	if err != nil {
		data.close()
		return nil, err
	}
	hash, err := openRegion(hashPath, hashSt)
	if err != nil {
		data.close()
		dir.close()
		return nil, err
	}

	s := &Store{
		data:        data,
		dir:         dir,
		hash:        hash,
		dataLen:     dataSt,
		maxSlots:    maxSlots,
		slots:       newSlotBitmap(maxSlots),
		descriptors: make([]*descriptor, maxSlots),
		log:         log,
	}
	s.byOffset = newSortedIndex(maxSlots, byOffsetLess, func(d *descriptor, pos int) { d.offsetIdx = pos })
	s.byName = newSortedIndex(maxSlots, byNameLess, func(d *descriptor, pos int) { d.nameIdx = pos })
	s.tree = newHashTree(hash, data, dataSt, nProcessors)

	s.loadDirectory()
	s.tree.computeTree()

	s.log.Info("volume opened",
		zap.Int("data_len", dataSt), zap.Int("max_slots", maxSlots),
		zap.Int("slot_count", s.slots.count()), zap.Uint32("used", s.used))
	return s, nil
}

func (s *Store) loadDirectory() {
	for slot := 0; slot < s.maxSlots; slot++ {
		row := s.dir.bytesAt(slot*MetaLen, MetaLen)
		d, ok := decodeRow(row, slot)
		if !ok {
			continue
		}
		s.descriptors[slot] = d
		s.slots.set(slot)
		s.used += d.length
		s.reinsertByOffset(d)
		s.byName.insert(d)
	}
}

// Close implements §4.7 close: flushes and unmaps all three regions.
// Safe to call on a nil store.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.flush()
	s.dir.flush()
	s.hash.flush()
	s.data.close()
	s.dir.close()
	s.hash.close()
	s.descriptors = nil
	s.byOffset = nil
	s.byName = nil
	s.log.Info("volume closed")
}

func (s *Store) writeDescriptorRow(d *descriptor) {
	row := s.dir.bytesAt(d.slot*MetaLen, MetaLen)
	d.encodeRow(row)
}

// CreateFile implements §4.7 create_file. Returns 0 on success, 1 if name
// already exists, 2 if there is no space (data region or directory table).
func (s *Store) CreateFile(name string, length uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	nameBytes := truncatedName(name)
	switch err := s.createCheck(nameBytes, length); {
	case errors.Is(err, ErrExists):
		return 1
	case errors.Is(err, ErrNoSpace):
		return 2
	}

	slot := s.nextSlot()
	if slot < 0 {
		return 2
	}
	offset, repackedFrom, _ := s.nextOffset(length)

	d := newDescriptor(name, slot)
	d.offset = offset
	d.length = length

	s.descriptors[slot] = d
	s.slots.set(slot)
	s.reinsertByOffset(d)
	s.byName.insert(d)
	s.writeDescriptorRow(d)

	if length > 0 {
		s.data.writeAt(int(offset), make([]byte, length))
		s.used += length
		if repackedFrom >= 0 {
			s.tree.computeBlockRange(repackedFrom, int(s.used)-repackedFrom)
		} else {
			s.tree.computeBlockRange(int(offset), int(length))
		}
	}

	s.data.flush()
	s.dir.flush()
	return 0
}

// ResizeFile implements §4.7 resize_file. Returns 0 on success (including
// the no-op new_len == old_len case), 1 if name is absent, 2 if the new
// length would exceed the data region's capacity.
func (s *Store) ResizeFile(name string, newLen uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupByName(name)
	if err != nil {
		return 1
	}
	oldLen := d.length
	if newLen == oldLen {
		return 0
	}
	if newLen > oldLen {
		grow := uint64(newLen - oldLen)
		if uint64(s.used)+grow > uint64(s.dataLen) {
			return 2
		}
	}

	repackedFrom := s.resizeInPlaceOrRelocate(d, newLen, oldLen)

	if newLen > oldLen {
		tailStart := int(d.offset) + int(oldLen)
		tailLen := int(newLen - oldLen)
		s.data.writeAt(tailStart, make([]byte, tailLen))
		if repackedFrom >= 0 {
			s.tree.computeBlockRange(repackedFrom, int(s.used)-repackedFrom)
		} else {
			s.tree.computeBlockRange(tailStart, tailLen)
		}
	} else if repackedFrom >= 0 {
		s.tree.computeBlockRange(repackedFrom, int(s.used)-repackedFrom)
	}

	s.data.flush()
	s.dir.flush()
	return 0
}

// Repack implements §4.7 repack: run the repack engine directly and rehash
// whatever moved.
func (s *Store) Repack() {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.repack()
	if from >= 0 {
		s.tree.computeBlockRange(from, int(s.used)-from)
	}
	s.data.flush()
	s.dir.flush()
}

// DeleteFile implements §4.7 delete_file. Returns 0 on success, 1 if
// absent. Data bytes are left in place; only the directory/index state is
// updated (§9, resolved open question).
func (s *Store) DeleteFile(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupByName(name)
	if err != nil {
		return 1
	}

	s.used -= d.length
	s.slots.clear(d.slot)
	s.byOffset.removeDescriptor(d, d.offsetIdx)
	s.byName.removeDescriptor(d, d.nameIdx)

	row := s.dir.bytesAt(d.slot*MetaLen, MetaLen)
	clearRow(row)
	s.descriptors[d.slot] = nil

	s.dir.flush()
	return 0
}

// RenameFile implements §4.7 rename_file. Returns 0 on success (including
// the rename-to-self no-op per the resolved open question in §9), 1 if old
// is absent or new already exists under a different name.
func (s *Store) RenameFile(oldName, newName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupByName(oldName)
	if err != nil {
		return 1
	}
	if oldName == newName {
		return 0
	}
	if _, exists := s.byName.findByName(truncatedName(newName)); exists {
		return 1
	}

	s.byName.removeDescriptor(d, d.nameIdx)
	d.setName(newName)
	s.byName.insert(d)
	s.writeDescriptorRow(d)

	s.dir.flush()
	return 0
}

// ReadFile implements §4.7 read_file. Returns 0 on success, 1 if absent, 2
// if the requested range exceeds the file's length, 3 if Merkle
// verification of the range fails.
func (s *Store) ReadFile(name string, off, count uint32, out []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupByName(name)
	if err != nil {
		return 1
	}
	switch err := s.readCheck(d, off, count); {
	case errors.Is(err, ErrBadArg):
		return 2
	case errors.Is(err, ErrIntegrityFailure):
		return 3
	}
	if count == 0 {
		return 0
	}
	start := int(d.offset) + int(off)
	copy(out, s.data.bytesAt(start, int(count)))
	return 0
}

// WriteFile implements §4.7 write_file. Returns 0 on success, 1 if absent,
// 2 if off is beyond the current length, 3 if there is no space for the
// resulting growth.
func (s *Store) WriteFile(name string, off, count uint32, in []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupByName(name)
	if err != nil {
		return 1
	}
	if off > d.length {
		return 2
	}
	if count == 0 {
		return 0
	}
	newEnd := uint64(off) + uint64(count)
	if newEnd > uint64(d.length) {
		grow := newEnd - uint64(d.length)
		if uint64(s.used)+grow > uint64(s.dataLen) {
			return 3
		}
	}

	repackedFrom := -1
	if newEnd > uint64(d.length) {
		repackedFrom = s.resizeInPlaceOrRelocate(d, uint32(newEnd), off)
	}

	dest := int(d.offset) + int(off)
	s.data.writeAt(dest, in[:count])
	if repackedFrom >= 0 {
		s.tree.computeBlockRange(repackedFrom, int(s.used)-repackedFrom)
	} else {
		s.tree.computeBlockRange(dest, int(count))
	}

	s.data.flush()
	s.dir.flush()
	return 0
}

// FileSize implements §4.7 file_size: returns the file's length, or -1 if
// absent.
func (s *Store) FileSize(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupByName(name)
	if err != nil {
		return -1
	}
	return int64(d.length)
}

// ComputeHashTree implements the §6.3 compute_hash_tree surface operation:
// a full bottom-up rebuild of every leaf and inner node from the current
// data region.
func (s *Store) ComputeHashTree() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.computeTree()
}

// ComputeHashBlock implements the §6.3 compute_hash_block surface
// operation: recompute one leaf and walk parent() to the root.
func (s *Store) ComputeHashBlock(blockIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.computeBlock(blockIndex)
}

// FileInfo is one row of List's output: a live file's name and length.
type FileInfo struct {
	Name   string
	Length uint32
}

// List returns every live file in by-name order, for the CLI's `ls`.
func (s *Store) List() []FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FileInfo, s.byName.size())
	for i := range out {
		d := s.byName.at(i)
		out[i] = FileInfo{Name: d.nameString(), Length: d.length}
	}
	return out
}

// VerifyAll checks every live file's Merkle range against the stored hash
// tree without mutating it, for the CLI's `verify`. It returns the names of
// any files whose stored hash disagrees with their current data.
func (s *Store) VerifyAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bad []string
	for i := 0; i < s.byName.size(); i++ {
		d := s.byName.at(i)
		if d.length == 0 {
			continue
		}
		if !s.tree.verifyRange(int(d.offset), int(d.length)) {
			bad = append(bad, d.nameString())
		}
	}
	return bad
}

// lookupByName threads ErrNotFound internally (§10.5) so the public methods
// below can translate it to their own documented "absent" code without each
// repeating the same bool-to-int conversion.
func (s *Store) lookupByName(name string) (*descriptor, error) {
	i, ok := s.byName.findByName(truncatedName(name))
	if !ok {
		return nil, ErrNotFound
	}
	return s.byName.at(i), nil
}

// createCheck threads ErrExists/ErrNoSpace (§10.5) through CreateFile's
// duplicate-name and space checks, mirroring lookupByName's pattern.
func (s *Store) createCheck(nameBytes []byte, length uint32) error {
	if _, ok := s.byName.findByName(nameBytes); ok {
		return ErrExists
	}
	if uint64(s.used)+uint64(length) > uint64(s.dataLen) || s.slots.count() >= s.maxSlots {
		return ErrNoSpace
	}
	return nil
}

// readCheck threads ErrBadArg/ErrIntegrityFailure (§10.5) through ReadFile's
// range and Merkle verification checks.
func (s *Store) readCheck(d *descriptor, off, count uint32) error {
	if uint64(off)+uint64(count) > uint64(d.length) {
		return ErrBadArg
	}
	if count == 0 {
		return nil
	}
	if !s.tree.verifyRange(int(d.offset)+int(off), int(count)) {
		return ErrIntegrityFailure
	}
	return nil
}

func truncatedName(name string) []byte {
	b := []byte(name)
	if len(b) > MaxNameBytes {
		b = b[:MaxNameBytes]
	}
	return b
}

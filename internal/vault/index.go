package vault

import "sort"

// sortedIndex is a fixed-capacity, sorted array of descriptor pointers. Two
// instances exist per store (by-offset, by-name in store.go); both reference
// the same descriptor arena, so every insert/remove here also updates the
// moved descriptors' own position field via the posSetter callback.
//
// This mirrors the binary-search-over-a-sorted-slice idiom the teacher
// codebase uses for its own sorted directory listings (sort.Search plus a
// slice insert/delete), generalized here to track each element's own index
// after every shift rather than just supporting one-shot lookups.
type sortedIndex struct {
	items  []*descriptor
	cap    int
	less   func(a, b *descriptor) bool
	posSet func(d *descriptor, pos int)
}

func newSortedIndex(capacity int, less func(a, b *descriptor) bool, posSet func(d *descriptor, pos int)) *sortedIndex {
	return &sortedIndex{
		items:  make([]*descriptor, 0, capacity),
		cap:    capacity,
		less:   less,
		posSet: posSet,
	}
}

func (s *sortedIndex) size() int { return len(s.items) }

func (s *sortedIndex) at(i int) *descriptor { return s.items[i] }

// searchInsertPos returns the first position at which d could be inserted
// while keeping s.items sorted by s.less.
func (s *sortedIndex) searchInsertPos(d *descriptor) int {
	return sort.Search(len(s.items), func(i int) bool {
		return !s.less(s.items[i], d)
	})
}

func (s *sortedIndex) renumberFrom(i int) {
	for ; i < len(s.items); i++ {
		s.posSet(s.items[i], i)
	}
}

// insert places d at its sorted position. Capacity exhaustion is a fatal
// invariant violation (the operation layer must check slot/space limits
// before ever reaching here).
func (s *sortedIndex) insert(d *descriptor) int {
	if len(s.items) >= s.cap {
		fatalf("vault: sortedIndex: capacity exhausted")
	}
	pos := s.searchInsertPos(d)
	s.items = append(s.items, nil)
	copy(s.items[pos+1:], s.items[pos:len(s.items)-1])
	s.items[pos] = d
	s.renumberFrom(pos)
	return pos
}

// appendAtEnd inserts d as the new last element without a binary search,
// used for zero-length files in the by-offset view (§4.3): all of them share
// the OutOfBand sentinel, so every insertion point is "the end" and a search
// would be wasted work.
func (s *sortedIndex) appendAtEnd(d *descriptor) int {
	if len(s.items) >= s.cap {
		fatalf("vault: sortedIndex: capacity exhausted")
	}
	pos := len(s.items)
	s.items = append(s.items, d)
	s.posSet(d, pos)
	return pos
}

// removeAt deletes the element at position i and returns it; it does not
// free the descriptor, only detaches it from this view.
func (s *sortedIndex) removeAt(i int) *descriptor {
	d := s.items[i]
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	s.posSet(d, -1)
	s.renumberFrom(i)
	return d
}

func (s *sortedIndex) removeDescriptor(d *descriptor, pos int) {
	if pos < 0 || pos >= len(s.items) || s.items[pos] != d {
		fatalf("vault: sortedIndex: position mismatch on remove")
	}
	s.removeAt(pos)
}

// byNameLess implements the by-name key comparison of §4.3: lexicographic
// over the first MaxNameBytes bytes.
func byNameLess(a, b *descriptor) bool {
	an, bn := a.nameBytes(), b.nameBytes()
	la, lb := len(an), len(bn)
	for i := 0; i < la && i < lb; i++ {
		if an[i] != bn[i] {
			return an[i] < bn[i]
		}
	}
	return la < lb
}

// byOffsetLess implements the by-offset key comparison of §4.3: ordered by
// offset ascending, with every zero-length (OutOfBand) descriptor sorting
// after every real offset.
func byOffsetLess(a, b *descriptor) bool {
	if a.offset == b.offset {
		return false
	}
	return a.offset < b.offset
}

// findByName performs the by-name binary search of §4.3 get_by_key.
func (s *sortedIndex) findByName(name []byte) (int, bool) {
	n := len(s.items)
	i := sort.Search(n, func(i int) bool {
		return compareNameBytes(s.items[i].nameBytes(), name) >= 0
	})
	if i < n && compareNameBytes(s.items[i].nameBytes(), name) == 0 {
		return i, true
	}
	return -1, false
}

func compareNameBytes(a, b []byte) int {
	la, lb := len(a), len(b)
	for i := 0; i < la && i < lb; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

package vault

import "github.com/bits-and-blooms/bitset"

// slotBitmap tracks directory-table slot occupancy. A github.com/bits-and-blooms/bitset
// backs it instead of a []bool so that next_slot() is a single NextClear scan
// over machine words rather than a linear byte scan, matching the dense,
// fixed-capacity membership sets the rest of this repo's ecosystem reaches
// for a bitset library to represent.
type slotBitmap struct {
	bits *bitset.BitSet
	n    uint
}

func newSlotBitmap(maxSlots int) *slotBitmap {
	return &slotBitmap{bits: bitset.New(uint(maxSlots)), n: uint(maxSlots)}
}

func (b *slotBitmap) set(slot int)   { b.bits.Set(uint(slot)) }
func (b *slotBitmap) clear(slot int) { b.bits.Clear(uint(slot)) }
func (b *slotBitmap) isSet(slot int) bool {
	return b.bits.Test(uint(slot))
}

// nextFree returns the lowest unset slot index, or -1 if every slot is used.
func (b *slotBitmap) nextFree() int {
	idx, ok := b.bits.NextClear(0)
	if !ok || idx >= b.n {
		return -1
	}
	return int(idx)
}

func (b *slotBitmap) count() int {
	return int(b.bits.Count())
}

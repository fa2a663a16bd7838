package vault

// Layout computes the directory-table and hash-region sizes required for a
// new volume with the given data capacity and slot count, per §4.1's length
// relations (DIR_LEN = MAX_SLOTS*MetaLen; HASH_LEN = NODE_COUNT*HashNodeLen
// where NODE_COUNT = 2L-1 for the smallest power-of-two L with
// L*BlockLen >= DATA_LEN).
type Layout struct {
	DataLen int
	DirLen  int
	HashLen int
	Leaves  int
}

func ComputeLayout(dataLen, maxSlots int) Layout {
	leaves := (dataLen + BlockLen - 1) / BlockLen
	if leaves == 0 {
		leaves = 1
	}
	l := 1
	for l < leaves {
		l <<= 1
	}
	nodeCount := 2*l - 1
	return Layout{
		DataLen: dataLen,
		DirLen:  maxSlots * MetaLen,
		HashLen: nodeCount * HashNodeLen,
		Leaves:  l,
	}
}

// CreateVolumeFiles creates three new, zero-filled backing files sized per
// Layout, ready for Open. It is a convenience used by the CLI's `init`
// subcommand and by tests; the store itself never creates its own
// backing files implicitly (§4.1: sizes are fixed by the user before open).
func CreateVolumeFiles(dataPath, dirPath, hashPath string, dataLen, maxSlots int) (Layout, error) {
	layout := ComputeLayout(dataLen, maxSlots)

	data, err := createRegion(dataPath, layout.DataLen)
	if err != nil {
		return layout, err
	}
	data.close()

	dir, err := createRegion(dirPath, layout.DirLen)
	if err != nil {
		return layout, err
	}
	dir.close()

	hash, err := createRegion(hashPath, layout.HashLen)
	if err != nil {
		return layout, err
	}
	hash.close()

	return layout, nil
}

package vault

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u32leBytes(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:i*4+4], w)
	}
	return b
}

func Test_Fletcher_Matches_KnownVectors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		data []byte
		want [4]uint32
	}{
		{
			name: "FourFullWords",
			data: u32leBytes(1000, 5361, 112, 20256),
			want: [4]uint32{26729, 40563, 62758, 94314},
		},
		{
			name: "TruncatedToThirteenBytes",
			data: u32leBytes(1000, 5361, 112, 20256)[:13],
			want: [4]uint32{6505, 20339, 42534, 74090},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Fletcher(tc.data)
			require.Len(t, got, HashNodeLen)

			gotWords := [4]uint32{
				binary.LittleEndian.Uint32(got[0:4]),
				binary.LittleEndian.Uint32(got[4:8]),
				binary.LittleEndian.Uint32(got[8:12]),
				binary.LittleEndian.Uint32(got[12:16]),
			}
			assert.Equal(t, tc.want, gotWords)
		})
	}
}

func Test_HashTree_ComputeTree_Matches_Fletcher_Of_Each_Block(t *testing.T) {
	t.Parallel()

	v := newTestVolume(t, 1024, testMaxSlots)
	st := v.open(t, 4)
	t.Cleanup(st.Close)

	require.Equal(t, CodeOK, st.CreateFile("a", 600))
	payload := make([]byte, 600)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.Equal(t, CodeOK, st.WriteFile("a", 0, 600, payload))

	st.ComputeHashTree()

	for block := 0; block < st.tree.leafCount; block++ {
		want := fletcher(st.tree.blockOf(block))
		got := st.tree.nodeAt(st.tree.leafOffset + block)
		assert.Equal(t, want, got, "leaf %d hash mismatch", block)
	}
}

func Test_HashTree_VerifyRange_Fails_After_Direct_Region_Tamper(t *testing.T) {
	t.Parallel()

	v := newTestVolume(t, 1024, testMaxSlots)
	st := v.open(t, 1)
	t.Cleanup(st.Close)

	require.Equal(t, CodeOK, st.CreateFile("a", 300))
	require.Equal(t, CodeOK, st.WriteFile("a", 0, 300, make([]byte, 300)))

	assert.True(t, st.tree.verifyRange(0, 300), "freshly hashed range should verify")

	// Corrupt a data byte without going through write_file, so the hash
	// tree is left stale relative to the data region.
	st.data.writeAt(10, []byte{0xFF})

	assert.False(t, st.tree.verifyRange(0, 300), "stale hash should fail verification after direct tamper")
}

func Test_ComputeHashBlock_Resyncs_One_Block_Without_Full_Rebuild(t *testing.T) {
	t.Parallel()

	v := newTestVolume(t, 1024, testMaxSlots)
	st := v.open(t, 1)
	t.Cleanup(st.Close)

	require.Equal(t, CodeOK, st.CreateFile("a", 300))
	require.Equal(t, CodeOK, st.WriteFile("a", 0, 300, make([]byte, 300)))

	st.data.writeAt(10, []byte{0xFF})
	require.False(t, st.tree.verifyRange(0, 300))

	st.ComputeHashBlock(0)
	assert.True(t, st.tree.verifyRange(0, BlockLen), "block 0 should verify after targeted recompute")
}

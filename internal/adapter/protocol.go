package adapter

// Opcodes, one per §6.3 surface operation. Open/Close are the connection
// lifecycle: the daemon opens the volume once at startup, so on the wire
// Open just confirms a session against the already-open store and Close
// ends the connection; both still round-trip through the same recover()
// boundary as every other opcode.
const (
	OpOpen byte = iota
	OpClose
	OpCreateFile
	OpResizeFile
	OpRepack
	OpDeleteFile
	OpRenameFile
	OpReadFile
	OpWriteFile
	OpFileSize
	OpFletcher
	OpComputeHashTree
	OpComputeHashBlock
)

// Status codes. 0-3 mirror the §4.7 per-operation return codes 1:1 (their
// meaning is opcode-dependent, same as Store's own int contract); Busy and
// Internal are transport-level additions with no core equivalent.
const (
	StatusOK       byte = 0
	StatusCode1    byte = 1
	StatusCode2    byte = 2
	StatusCode3    byte = 3
	StatusBusy     byte = 0xFE
	StatusInternal byte = 0xFF
)

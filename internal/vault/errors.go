package vault

import (
	"errors"
	"fmt"
)

// Sentinel errors for the five-member taxonomy of the store specification.
// lookupByName/createCheck/readCheck (store.go) thread these internally and
// the public Store methods translate them back to their own documented
// per-operation integer codes at the call site. No exported method returns
// these errors, so internal/adapter and the CLI branch on the integer codes.
var (
	ErrNotFound         = errors.New("vault: name not found")
	ErrExists           = errors.New("vault: name already exists")
	ErrBadArg           = errors.New("vault: invalid argument")
	ErrNoSpace          = errors.New("vault: data region or directory table exhausted")
	ErrIntegrityFailure = errors.New("vault: merkle verification failed")
)

// fatalf panics with a wrapped error. Invariant violations inside the
// engines (corrupt on-disk offsets, an impossible repack, an OS failure to
// open or flush a region) are bugs or host-filesystem failures that cannot
// be locally recovered, so they are not part of the return-code contract:
// the process aborts. The adapter (internal/adapter) is the one place that
// recovers from this to avoid taking a whole fleet of connections down with
// one bad request.
func fatalf(format string, args ...any) {
	panic(fmt.Errorf(format, args...))
}

package history

import (
	"encoding/binary"
	"fmt"

	"lukechampine.com/blake3"
)

// Fingerprint is a content-addressed summary of an entire undo stack:
// its length plus a 128-bit digest over every entry's id and kind tag,
// in order. Two histories with the same Fingerprint are guaranteed to
// have recorded the same sequence of action kinds — this is what lets
// a soft-rewind commit detect a concurrent mutation and abort instead
// of truncating state a caller no longer has an accurate view of.
type Fingerprint struct {
	Len    int
	HashHi uint64
	HashLo uint64
}

// String renders a Fingerprint as "<len>:<32 hex digits>", matching the
// canonical textual form used in audit logs and API responses.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%d:%016x%016x", f.Len, f.HashHi, f.HashLo)
}

// Equal reports whether two fingerprints match on every field.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Len == other.Len && f.HashHi == other.HashHi && f.HashLo == other.HashLo
}

// Compute hashes the 8-byte little-endian stack length followed by, for
// each entry in order, its 8-byte little-endian id and 1-byte kind tag.
// The digest's first 128 bits split into HashHi/HashLo.
func Compute(entries []HistoryEntry) Fingerprint {
	hasher := blake3.New(32, nil)

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(entries)))
	hasher.Write(lenBuf[:])

	var entryBuf [9]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint64(entryBuf[:8], e.ID)
		entryBuf[8] = byte(e.Action.Kind)
		hasher.Write(entryBuf[:])
	}

	digest := hasher.Sum(nil)
	return Fingerprint{
		Len:    len(entries),
		HashHi: binary.BigEndian.Uint64(digest[0:8]),
		HashLo: binary.BigEndian.Uint64(digest[8:16]),
	}
}

// Fingerprint computes the current undo stack's fingerprint.
func (h *History) Fingerprint() Fingerprint {
	return Compute(h.undo)
}

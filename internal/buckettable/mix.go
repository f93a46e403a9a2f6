package buckettable

import (
	"encoding/binary"

	"blainsmith.com/go/seahash"
	"github.com/minio/highwayhash"
)

// highwayKey is a fixed, arbitrary 32-byte key for highwayhash. PRJ's
// per-partition tables only need a mix that is a deterministic function
// of value, not a keyed/secret hash, so a compile-time constant key is
// sufficient.
var highwayKey = [32]byte{
	0x4d, 0x61, 0x79, 0x62, 0x65, 0x20, 0x61, 0x20,
	0x72, 0x61, 0x64, 0x69, 0x78, 0x20, 0x6a, 0x6f,
	0x69, 0x6e, 0x20, 0x6b, 0x65, 0x79, 0x2e, 0x2e,
	0x2e, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06,
}

// NPJMix mixes a join key with SEAHash before reducing it modulo the
// table size. Hashing the raw value directly ("value mod N") is
// hostile to adversarial or clustered keys, so this folds in a
// non-trivial mixing step first.
func NPJMix(value uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], value)
	return seahash.Sum64(b[:])
}

// PRJMix is the analogous mixing function for PRJ's per-partition
// tables. It deliberately uses a different hash family (HighwayHash)
// than NPJMix so the two engines' intra-partition hashing is not
// byte-identical, while remaining a pure function of value so bucket
// assignment never changes which pairs match.
func PRJMix(value uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], value)
	return highwayhash.Sum64(b[:], highwayKey[:])
}

// pkg/trie/config.go
package trie

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hasher computes a 64-bit digest for a segment. The trie is agnostic to
// how segments are hashed; callers with interned tokens or other
// non-primitive segment types should supply their own via NewWithHasher.
type Hasher[S comparable] func(seg S) uint64

// Config controls the construction of a Trie.
type Config[S comparable] struct {
	// Hasher picks the child-map shard for a segment. DefaultConfig
	// fills this in for common primitive segment types.
	Hasher Hasher[S]

	// ShardCount is the number of independent locked shards backing
	// each node's child map. Higher values reduce contention between
	// unrelated siblings at the cost of idle memory per node with many
	// children. Must be a power of two; DefaultShardCount is used if
	// zero or not a power of two.
	ShardCount int
}

// DefaultShardCount is used when Config.ShardCount is unset.
const DefaultShardCount = 16

// DefaultConfig returns a Config with DefaultShardCount and a best-effort
// default Hasher for common segment types (integers, byte, rune, string).
// It panics when called for an unsupported segment type, so New panics
// for such a type — use NewWithHasher to supply your own.
func DefaultConfig[S comparable]() Config[S] {
	return Config[S]{
		Hasher:     defaultHasher[S](),
		ShardCount: DefaultShardCount,
	}
}

func (c Config[S]) normalized() Config[S] {
	if c.ShardCount <= 0 || c.ShardCount&(c.ShardCount-1) != 0 {
		c.ShardCount = DefaultShardCount
	}
	if c.Hasher == nil {
		c.Hasher = defaultHasher[S]()
	}
	return c
}

// defaultHasher builds a Hasher for the common segment kinds this trie is
// meant to carry — bytes, integers, interned-token-sized ints, and
// strings — following the same type-switch-over-the-zero-value shape
// rogpeppe-generic/ctrie uses in NewWithFuncs to pick a default
// hash/equality function for string and []byte keys. Here the digest
// itself is produced by xxhash rather than hash/maphash: xxhash is
// allocation-free for the small fixed-width encodings below and gives a
// stable (non-process-seeded) hash, which keeps shard placement
// deterministic across runs of the same process — useful for the
// benchmark CLI's reproducible workloads.
func defaultHasher[S comparable]() Hasher[S] {
	var zero S
	switch any(zero).(type) {
	case string:
		return func(s S) uint64 {
			return xxhash.Sum64String(any(s).(string))
		}
	case byte: // also covers uint8
		return func(s S) uint64 {
			return xxhash.Sum64([]byte{any(s).(byte)})
		}
	case rune: // also covers int32
		return func(s S) uint64 {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], uint32(any(s).(rune)))
			return xxhash.Sum64(buf[:])
		}
	case int:
		return func(s S) uint64 {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(any(s).(int)))
			return xxhash.Sum64(buf[:])
		}
	case int8:
		return func(s S) uint64 { return xxhash.Sum64([]byte{byte(any(s).(int8))}) }
	case int16:
		return func(s S) uint64 {
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], uint16(any(s).(int16)))
			return xxhash.Sum64(buf[:])
		}
	case int64:
		return func(s S) uint64 {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(any(s).(int64)))
			return xxhash.Sum64(buf[:])
		}
	case uint:
		return func(s S) uint64 {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(any(s).(uint)))
			return xxhash.Sum64(buf[:])
		}
	case uint16:
		return func(s S) uint64 {
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], any(s).(uint16))
			return xxhash.Sum64(buf[:])
		}
	case uint32:
		return func(s S) uint64 {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], any(s).(uint32))
			return xxhash.Sum64(buf[:])
		}
	case uint64:
		return func(s S) uint64 {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], any(s).(uint64))
			return xxhash.Sum64(buf[:])
		}
	default:
		panic(fmt.Sprintf("trie: no default Hasher for segment type %T; construct with NewWithHasher", zero))
	}
}

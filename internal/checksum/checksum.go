// Package checksum provides the digest primitives of the storage data plane:
// payload checksums, keyed per-chunk secrets and the checksum-of-checksums
// aggregate of a chunked version. All digests are BLAKE3-256, hex encoded.
package checksum

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/zeebo/blake3"
)

// Size is the length of a hex-encoded digest.
const Size = 64

// Sum returns the hex-encoded BLAKE3-256 digest of data.
func Sum(data []byte) string {
	d := blake3.Sum256(data)
	return hex.EncodeToString(d[:])
}

// Equal compares two hex digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Keyed derives a digest of parts under secret. The secret is first reduced
// to a 32-byte BLAKE3 key; every part is length-prefixed so that ("ab","c")
// and ("a","bc") never collide.
func Keyed(secret string, parts ...string) string {
	key := blake3.Sum256([]byte(secret))
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("checksum: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	var prefix [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(prefix[:], uint64(len(p)))
		h.Write(prefix[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Aggregator chains chunk checksums into a single version checksum. It is a
// flat hash chain: chunks must be added in index order.
type Aggregator struct {
	h    hash.Hash
	size int64
	n    int
}

func NewAggregator() *Aggregator {
	return &Aggregator{h: blake3.New()}
}

// Add feeds one chunk's checksum and size.
func (a *Aggregator) Add(chunkChecksum string, size int64) {
	a.h.Write([]byte(chunkChecksum))
	a.size += size
	a.n++
}

// Sum returns the aggregate checksum, total size and number of chunks added.
func (a *Aggregator) Sum() (string, int64, int) {
	return hex.EncodeToString(a.h.Sum(nil)), a.size, a.n
}

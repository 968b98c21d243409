package hash

import (
	"github.com/cespare/xxhash/v2"
)

// Sum64 returns the xxHash64 of data. Swap records store it next to the
// frame so a damaged slot is caught before decompression.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Sum64Parts hashes the concatenation of parts without copying them.
func Sum64Parts(parts ...[]byte) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.Write(p)
	}
	return d.Sum64()
}

// New returns a streaming xxHash64 digest.
func New() *xxhash.Digest {
	return xxhash.New()
}

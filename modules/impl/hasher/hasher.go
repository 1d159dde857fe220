// Package hasher computes the multi-algorithm checksum sets used for blob
// integrity verification. Pure functions, no I/O.
package hasher

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/coho-storage/blobwarden/core"
)

// Digest computes the checksum set of a payload. Sha256 and sha512 are
// always present; blake2b-256 is added best-effort and its absence is not
// an error.
func Digest(data []byte) core.ChecksumSet {
	sums := core.ChecksumSet{}

	s256 := sha256.Sum256(data)
	sums[core.AlgoSha256] = hex.EncodeToString(s256[:])

	s512 := sha512.Sum512(data)
	sums[core.AlgoSha512] = hex.EncodeToString(s512[:])

	if b2, err := blake2b.New256(nil); err == nil {
		_, _ = b2.Write(data)
		sums[core.AlgoBlake2b256] = hex.EncodeToString(b2.Sum(nil))
	}

	return sums
}

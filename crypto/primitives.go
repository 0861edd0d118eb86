package crypto

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// domainSeparator is prepended to the message before the first hash round
// of HashToCurve, per NUT-00. Keeping it as a package constant rather than
// computing it each call avoids a hot-path allocation.
var domainSeparator = []byte("Secp256k1_HashToCurve_Cashu_")

// HashToCurve maps arbitrary bytes to a point on the secp256k1 curve.
// It hashes the domain-separated message once, then appends an
// incrementing little-endian counter until the resulting compressed
// point parses. Terminates within a handful of iterations with
// overwhelming probability.
func HashToCurve(message []byte) *secp256k1.PublicKey {
	preimage := make([]byte, 0, len(domainSeparator)+len(message))
	preimage = append(preimage, domainSeparator...)
	preimage = append(preimage, message...)
	msgHash := sha256.Sum256(preimage)

	var counter uint32
	for {
		var counterBytes [4]byte
		binary.LittleEndian.PutUint32(counterBytes[:], counter)

		attempt := make([]byte, 0, sha256.Size+4)
		attempt = append(attempt, msgHash[:]...)
		attempt = append(attempt, counterBytes[:]...)
		hash := sha256.Sum256(attempt)

		candidate := append([]byte{0x02}, hash[:]...)
		if point, err := secp256k1.ParsePubKey(candidate); err == nil {
			return point
		}
		counter++
	}
}

// HashE is the Fiat-Shamir challenge hash used by DLEQ proofs: SHA-256 over
// the concatenation of each point's uncompressed (x||y) encoding.
func HashE(points ...*secp256k1.PublicKey) [32]byte {
	h := sha256.New()
	for _, p := range points {
		uncompressed := p.SerializeUncompressed()
		// drop the leading 0x04 prefix, keep raw x||y per NUT-12
		h.Write(uncompressed[1:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// TaggedHash implements the BIP-340 tagged hash construction:
// SHA256(SHA256(tag) || SHA256(tag) || msg).
func TaggedHash(tag string, msg []byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	h.Write(msg)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

package crypto

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// secretDerivationPurpose is the wallet's BIP-32 purpose index for
// deterministic (secret, blinding factor) derivation, m/129372'/0'/...
const secretDerivationPurpose = 129372

// keysetPathInt reduces a keyset id (short or long form hex) to the u32
// hardened child index used as the third path segment.
func keysetPathInt(keysetId string) (uint32, error) {
	idBytes, err := hex.DecodeString(keysetId)
	if err != nil {
		return 0, err
	}

	var asUint64 uint64
	if len(idBytes) >= 9 {
		// long-form id: leading 0x01 byte + 32-byte digest; take the
		// first 8 bytes of the digest.
		asUint64 = binary.BigEndian.Uint64(idBytes[1:9])
	} else {
		// short-form id: leading 0x00 byte + 7-byte digest.
		padded := make([]byte, 8)
		copy(padded[8-len(idBytes):], idBytes)
		asUint64 = binary.BigEndian.Uint64(padded)
	}

	return uint32(asUint64 % (hdkeychain.HardenedKeyStart - 1)), nil
}

// DeriveSecretPath returns the keyset-scoped derivation node
// m/129372'/0'/<keyset_int>' from which per-counter secrets and blinding
// factors are derived.
func DeriveSecretPath(master *hdkeychain.ExtendedKey, keysetId string) (*hdkeychain.ExtendedKey, error) {
	keysetInt, err := keysetPathInt(keysetId)
	if err != nil {
		return nil, err
	}

	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + secretDerivationPurpose)
	if err != nil {
		return nil, err
	}

	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, err
	}

	keysetPath, err := coinType.Derive(hdkeychain.HardenedKeyStart + keysetInt)
	if err != nil {
		return nil, err
	}

	return keysetPath, nil
}

// DeterministicSecret is a single (secret, blinding factor) pair derived
// at a given counter index within a keyset's derivation path.
type DeterministicSecret struct {
	Counter        uint32
	Secret         string
	BlindingFactor *secp256k1.PrivateKey
}

// DeriveSecret derives the hex-encoded secret at m/.../<counter>'/0.
func DeriveSecret(secretPath *hdkeychain.ExtendedKey, counter uint32) (string, error) {
	counterPath, err := secretPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return "", err
	}

	secretDerivationPath, err := counterPath.Derive(0)
	if err != nil {
		return "", err
	}

	secretKey, err := secretDerivationPath.ECPrivKey()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(secretKey.Serialize()), nil
}

// DeriveBlindingFactor derives the blinding factor at m/.../<counter>'/1.
func DeriveBlindingFactor(secretPath *hdkeychain.ExtendedKey, counter uint32) (*secp256k1.PrivateKey, error) {
	counterPath, err := secretPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return nil, err
	}

	rDerivationPath, err := counterPath.Derive(1)
	if err != nil {
		return nil, err
	}

	return rDerivationPath.ECPrivKey()
}

// DeriveSecrets derives count consecutive (secret, blinding factor) pairs
// starting at startCounter, used both for normal output generation and for
// restore-batch reconstruction over a counter range.
func DeriveSecrets(master *hdkeychain.ExtendedKey, keysetId string, startCounter uint32, count uint32) ([]DeterministicSecret, error) {
	secretPath, err := DeriveSecretPath(master, keysetId)
	if err != nil {
		return nil, err
	}

	out := make([]DeterministicSecret, 0, count)
	for i := uint32(0); i < count; i++ {
		counter := startCounter + i
		secret, err := DeriveSecret(secretPath, counter)
		if err != nil {
			return nil, err
		}
		r, err := DeriveBlindingFactor(secretPath, counter)
		if err != nil {
			return nil, err
		}
		out = append(out, DeterministicSecret{Counter: counter, Secret: secret, BlindingFactor: r})
	}

	return out, nil
}

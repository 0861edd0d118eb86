package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestHashToCurve(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{message: "0000000000000000000000000000000000000000000000000000000000000000",
			expected: "024cce997d3b518f739663b757deaec95bcd9473c30a14ac2fd04023a739d1a725"},
		{message: "0000000000000000000000000000000000000000000000000000000000000001",
			expected: "022e7158e11c9506f1aa4248bf531298daa7febd6194f003edcd9b93ade6253acf"},
		{message: "0000000000000000000000000000000000000000000000000000000000000002",
			expected: "026cdbe15362df59cd1dd3c9c11de8aedac2106eca69236ecd9fbe117af897be4f"},
	}

	for _, test := range tests {
		msgBytes, err := hex.DecodeString(test.message)
		if err != nil {
			t.Errorf("error decoding msg: %v", err)
		}

		pk := HashToCurve(msgBytes)
		hexStr := hex.EncodeToString(pk.SerializeCompressed())
		if hexStr != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, hexStr)
		}
	}
}

func TestBlindMessage(t *testing.T) {
	// secret_0/r_0 from the mint -> wallet -> mint cycle vector; a fixed
	// blinding factor must produce a deterministic, reproducible B_.
	secret := []byte("485875df74771877439ac06339e284c3acfcd9be7abf3bc20b516faeadfe77ae")
	rbytes, err := hex.DecodeString("ad00d431add9c673e843d4c2bf9a778a5f402b985b8da2d5550bf39cda41d679")
	if err != nil {
		t.Fatalf("error decoding blinding factor: %v", err)
	}

	B_1, _, err := BlindMessage(secret, rbytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	B_2, _, err := BlindMessage(secret, rbytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hex.EncodeToString(B_1.SerializeCompressed()) != hex.EncodeToString(B_2.SerializeCompressed()) {
		t.Error("same secret and blinding factor produced different B_")
	}
}

func TestSignBlindedMessage(t *testing.T) {
	secret := []byte("test_message")
	rbytes, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")

	B_, _, err := BlindMessage(secret, rbytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mintKeyBytes, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	k, _ := btcec.PrivKeyFromBytes(mintKeyBytes)

	blindedSignature := SignBlindedMessage(B_, k)
	if blindedSignature == nil {
		t.Error("expected a non-nil blinded signature")
	}
}

func TestUnblindSignature(t *testing.T) {
	dst, _ := hex.DecodeString("02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2")
	C_, err := secp256k1.ParsePubKey(dst)
	if err != nil {
		t.Error(err)
	}

	kdst, _ := hex.DecodeString("020000000000000000000000000000000000000000000000000000000000000001")
	K, err := secp256k1.ParsePubKey(kdst)
	if err != nil {
		t.Error(err)
	}

	rhex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	r, _ := btcec.PrivKeyFromBytes(rhex)

	C := UnblindSignature(C_, r, K)
	CHex := hex.EncodeToString(C.SerializeCompressed())
	expected := "03c724d7e6a5443b39ac8acf11f40420adc4f99a02e7cc1b57703d9391f6d129cd"
	if CHex != expected {
		t.Errorf("expected '%v' but got '%v' instead\n", expected, CHex)
	}
}

func TestVerify(t *testing.T) {
	secret := []byte("test_message")
	rhex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000002")

	B_, r, err := BlindMessage(secret, rhex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	khex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	k, _ := btcec.PrivKeyFromBytes(khex)
	K := k.PubKey()

	C_ := SignBlindedMessage(B_, k)
	C := UnblindSignature(C_, r, K)

	if !Verify(secret, k, C) {
		t.Error("failed verification")
	}
}

func TestMintWalletMintCycle(t *testing.T) {
	secret := []byte("485875df74771877439ac06339e284c3acfcd9be7abf3bc20b516faeadfe77ae")
	rbytes, _ := hex.DecodeString("ad00d431add9c673e843d4c2bf9a778a5f402b985b8da2d5550bf39cda41d679")

	// the mint's per-amount-1 key, here a = 1 so A = G.
	abytes, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	a, _ := btcec.PrivKeyFromBytes(abytes)
	A := a.PubKey()

	expectedA := "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	if hex.EncodeToString(A.SerializeCompressed()) != expectedA {
		t.Fatalf("unexpected mint public key: %v", hex.EncodeToString(A.SerializeCompressed()))
	}

	B_, r, err := BlindMessage(secret, rbytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	C_ := SignBlindedMessage(B_, a)
	C := UnblindSignature(C_, r, A)

	if !Verify(secret, a, C) {
		t.Error("a*hash_to_curve(secret_0) != C")
	}
}

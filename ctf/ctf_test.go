package ctf

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashuhub/ecash-core/cashu"
)

func newOracle(t *testing.T) (*btcec.PrivateKey, OraclePubkey) {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var pk OraclePubkey
	copy(pk[:], schnorr.SerializePubKey(key.PubKey()))
	return key, pk
}

func signOutcome(t *testing.T, key *btcec.PrivateKey, conditionId [32]byte, outcome string) []byte {
	t.Helper()
	msg := attestationMessage(conditionId, outcome)
	sig, err := schnorr.Sign(key, msg[:])
	require.NoError(t, err)
	return sig.Serialize()
}

func TestConditionIdDeterministicAndOrderIndependent(t *testing.T) {
	_, pk1 := newOracle(t)
	_, pk2 := newOracle(t)

	c1 := Condition{OraclePubkeys: []OraclePubkey{pk1, pk2}, EventId: "superbowl-2027", OutcomeCount: 2, Threshold: 1}
	c2 := Condition{OraclePubkeys: []OraclePubkey{pk2, pk1}, EventId: "superbowl-2027", OutcomeCount: 2, Threshold: 1}

	assert.Equal(t, c1.Id(), c2.Id(), "condition id must not depend on oracle pubkey registration order")
}

func TestConditionValidate(t *testing.T) {
	_, pk := newOracle(t)

	valid := Condition{OraclePubkeys: []OraclePubkey{pk}, EventId: "e", OutcomeCount: 2, Threshold: 1}
	assert.NoError(t, valid.Validate())

	noOracles := Condition{EventId: "e", OutcomeCount: 2, Threshold: 1}
	assert.Error(t, noOracles.Validate())

	badThreshold := Condition{OraclePubkeys: []OraclePubkey{pk}, EventId: "e", OutcomeCount: 2, Threshold: 2}
	assert.Error(t, badThreshold.Validate())

	badNumeric := Condition{OraclePubkeys: []OraclePubkey{pk}, EventId: "e", Threshold: 1, Numeric: &NumericRange{Lo: 10, Hi: 5, Precision: 4}}
	assert.Error(t, badNumeric.Validate())
}

func TestOutcomeCollectionIdTopLevelAndNested(t *testing.T) {
	_, pk := newOracle(t)
	c := Condition{OraclePubkeys: []OraclePubkey{pk}, EventId: "e", OutcomeCount: 2, Threshold: 1}

	topLevel, err := OutcomeCollectionId(c.Id(), "YES", identity)
	require.NoError(t, err)

	nested, err := OutcomeCollectionId(c.Id(), "YES", topLevel)
	require.NoError(t, err)

	assert.NotEqual(t, topLevel, nested)

	// deterministic
	again, err := OutcomeCollectionId(c.Id(), "YES", identity)
	require.NoError(t, err)
	assert.Equal(t, topLevel, again)
}

func TestPartitionValidate(t *testing.T) {
	p := Partition{Elements: []PartitionElement{
		{Outcomes: []uint32{0}},
		{Outcomes: []uint32{1}},
	}}
	assert.NoError(t, p.Validate(2))

	overlap := Partition{Elements: []PartitionElement{
		{Outcomes: []uint32{0, 1}},
		{Outcomes: []uint32{1}},
	}}
	assert.ErrorIs(t, overlap.Validate(2), cashu.OverlappingOutcomeCollectionsErr)

	incomplete := Partition{Elements: []PartitionElement{
		{Outcomes: []uint32{0}},
	}}
	assert.ErrorIs(t, incomplete.Validate(2), cashu.IncompletePartitionErr)

	empty := Partition{}
	assert.ErrorIs(t, empty.Validate(2), cashu.IncompletePartitionErr)
}

func TestConservesAmount(t *testing.T) {
	assert.True(t, ConservesAmount(100, []uint64{40, 60}))
	assert.False(t, ConservesAmount(100, []uint64{40, 59}))
}

func TestVerifyOutcomeThreshold(t *testing.T) {
	key1, pk1 := newOracle(t)
	key2, pk2 := newOracle(t)
	c := Condition{OraclePubkeys: []OraclePubkey{pk1, pk2}, EventId: "e", OutcomeCount: 2, Threshold: 2}

	sig1 := signOutcome(t, key1, c.Id(), "YES")
	sig2 := signOutcome(t, key2, c.Id(), "YES")

	err := VerifyOutcome(c, "YES", []Attestation{
		{Pubkey: pk1, Signature: sig1},
	})
	assert.ErrorIs(t, err, cashu.OracleThresholdNotMetErr, "one of two required signatures is not enough")

	err = VerifyOutcome(c, "YES", []Attestation{
		{Pubkey: pk1, Signature: sig1},
		{Pubkey: pk2, Signature: sig2},
	})
	assert.NoError(t, err)
}

func TestResolveOutcomeConflict(t *testing.T) {
	key1, pk1 := newOracle(t)
	key2, pk2 := newOracle(t)
	c := Condition{OraclePubkeys: []OraclePubkey{pk1, pk2}, EventId: "e", OutcomeCount: 2, Threshold: 1}

	yesSig := signOutcome(t, key1, c.Id(), "YES")
	noSig := signOutcome(t, key2, c.Id(), "NO")

	_, err := ResolveOutcome(c, map[string][]Attestation{
		"YES": {{Pubkey: pk1, Signature: yesSig}},
		"NO":  {{Pubkey: pk2, Signature: noSig}},
	})
	assert.ErrorIs(t, err, cashu.ConflictingOracleAttestationsErr)
}

func TestResolveOutcomeSingleWinner(t *testing.T) {
	key1, pk1 := newOracle(t)
	c := Condition{OraclePubkeys: []OraclePubkey{pk1}, EventId: "e", OutcomeCount: 2, Threshold: 1}

	yesSig := signOutcome(t, key1, c.Id(), "YES")

	outcome, err := ResolveOutcome(c, map[string][]Attestation{
		"YES": {{Pubkey: pk1, Signature: yesSig}},
		"NO":  {},
	})
	require.NoError(t, err)
	assert.Equal(t, "YES", outcome)
}

func TestDecomposeRecomposeDigits(t *testing.T) {
	bits := DecomposeDigits(13, 5) // 01101
	assert.Equal(t, []byte{0, 1, 1, 0, 1}, bits)
	assert.Equal(t, uint64(13), RecomposeDigits(bits))
}

func TestNumericPayoutConservesAmount(t *testing.T) {
	hi, lo := NumericPayout(1000, 0, 100, 40)
	assert.Equal(t, uint64(400), hi)
	assert.Equal(t, uint64(600), lo)
	assert.Equal(t, uint64(1000), hi+lo)

	hi, lo = NumericPayout(1000, 0, 100, 0)
	assert.Equal(t, uint64(0), hi)
	assert.Equal(t, uint64(1000), lo)

	hi, lo = NumericPayout(1000, 0, 100, 200)
	assert.Equal(t, uint64(1000), hi)
	assert.Equal(t, uint64(0), lo)
}

func TestVerifyNumericAttestation(t *testing.T) {
	key, pk := newOracle(t)
	c := Condition{
		OraclePubkeys: []OraclePubkey{pk},
		EventId:       "btc-price-at-close",
		Threshold:     1,
		Numeric:       &NumericRange{Lo: 0, Hi: 16, Precision: 4},
	}

	attested := uint64(13) // 1101
	bits := DecomposeDigits(attested, 4)

	digitAttestations := make(map[int][]Attestation)
	for i, bit := range bits {
		outcome := fmt.Sprintf("digit_%d_%d", i, bit)
		sig := signOutcome(t, key, c.Id(), outcome)
		digitAttestations[i] = []Attestation{{Pubkey: pk, Signature: sig}}
	}

	value, err := VerifyNumericAttestation(c, digitAttestations)
	require.NoError(t, err)
	assert.Equal(t, attested, value)
}

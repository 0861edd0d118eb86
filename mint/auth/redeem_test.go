package auth

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashuhub/ecash-core/cashu"
	"github.com/cashuhub/ecash-core/crypto"
)

type fakeAuthStore struct {
	spent map[string]bool
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{spent: make(map[string]bool)}
}

func (s *fakeAuthStore) IsAuthTokenSpent(y string) (bool, error) {
	return s.spent[y], nil
}

func (s *fakeAuthStore) MarkAuthTokenSpent(y string) error {
	s.spent[y] = true
	return nil
}

func testAuthKeyset(t *testing.T) *crypto.MintKeyset {
	t.Helper()
	seed := []byte("auth-test-seed-auth-test-seed!!")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	keyset, err := crypto.GenerateKeyset(master, Unit, 0, 0, 0)
	require.NoError(t, err)
	return keyset
}

func TestIssueAndRedeem(t *testing.T) {
	keyset := testAuthKeyset(t)
	store := newFakeAuthStore()
	redeemer, err := NewRedeemer(store, keyset)
	require.NoError(t, err)

	token, err := Issue(keyset, "a-fresh-secret")
	require.NoError(t, err)

	require.NoError(t, redeemer.Redeem(token))
}

func TestRedeemRejectsDoubleSpend(t *testing.T) {
	keyset := testAuthKeyset(t)
	store := newFakeAuthStore()
	redeemer, err := NewRedeemer(store, keyset)
	require.NoError(t, err)

	token, err := Issue(keyset, "reused-secret")
	require.NoError(t, err)

	require.NoError(t, redeemer.Redeem(token))
	err = redeemer.Redeem(token)
	require.Error(t, err)
	assert.Equal(t, cashu.AuthTokenAlreadyUsedErr, err)
}

func TestRedeemRejectsWrongKeyset(t *testing.T) {
	keyset := testAuthKeyset(t)
	other := testAuthKeyset(t)
	other.Id = "deadbeef"

	store := newFakeAuthStore()
	redeemer, err := NewRedeemer(store, keyset)
	require.NoError(t, err)

	token, err := Issue(other, "secret-from-other-keyset")
	require.NoError(t, err)

	err = redeemer.Redeem(token)
	require.Error(t, err)
	assert.Equal(t, cashu.BlindAuthInsufficientErr, err)
}

func TestRedeemRejectsMalformedToken(t *testing.T) {
	keyset := testAuthKeyset(t)
	store := newFakeAuthStore()
	redeemer, err := NewRedeemer(store, keyset)
	require.NoError(t, err)

	err = redeemer.Redeem("not-a-token")
	require.Error(t, err)
}

func TestNewRedeemerRejectsNonAuthUnit(t *testing.T) {
	seed := []byte("auth-test-seed-auth-test-seed!!")
	master, _ := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	keyset, err := crypto.GenerateKeyset(master, cashu.Sat.String(), 0, 0, 0)
	require.NoError(t, err)

	_, err = NewRedeemer(newFakeAuthStore(), keyset)
	require.Error(t, err)
}

package storage

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cashuhub/ecash-core/wallet/saga"
)

// BoltDB implements saga.Store over the sagas bucket, one JSON row per
// in-flight operation, keyed by saga id.

func (db *BoltDB) SaveSaga(s *saga.Saga) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(SAGAS_BUCKET))
		jsonSaga, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return b.Put([]byte(s.Id), jsonSaga)
	})
}

func (db *BoltDB) GetSaga(id string) (*saga.Saga, error) {
	var s saga.Saga
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(SAGAS_BUCKET))
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("saga %s not found", id)
		}
		return json.Unmarshal(v, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *BoltDB) GetSagas() ([]*saga.Saga, error) {
	sagas := []*saga.Saga{}
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(SAGAS_BUCKET))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var s saga.Saga
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			sagas = append(sagas, &s)
		}
		return nil
	})
	return sagas, err
}

// UpdateSaga enforces the saga's optimistic-versioning invariant
// (§5.2): the write only applies if the stored row's version still
// matches s.Version, then increments it.
func (db *BoltDB) UpdateSaga(s *saga.Saga) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(SAGAS_BUCKET))
		existing := b.Get([]byte(s.Id))
		if existing == nil {
			return fmt.Errorf("saga %s not found", s.Id)
		}

		var stored saga.Saga
		if err := json.Unmarshal(existing, &stored); err != nil {
			return err
		}
		if stored.Version != s.Version {
			return fmt.Errorf("saga %s: version conflict (stored=%d, update=%d)", s.Id, stored.Version, s.Version)
		}

		s.Version++
		jsonSaga, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return b.Put([]byte(s.Id), jsonSaga)
	})
}

func (db *BoltDB) DeleteSaga(id string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(SAGAS_BUCKET))
		return b.Delete([]byte(id))
	})
}

// UnreserveProofs drops the pending-proofs rows so a future selection
// pass can consider these proofs again; the proofs themselves are
// untouched in the main proofs bucket.
func (db *BoltDB) UnreserveProofs(ys []string) error {
	return db.DeletePendingProofs(ys)
}

// ReleaseMintQuote and ReleaseMeltQuote drop any pending-proofs rows
// tied to the quote; the quote row itself is left as-is since its
// state (Unpaid/Paid/Issued) is independent of the saga that reserved
// it.
func (db *BoltDB) ReleaseMintQuote(quoteId string) error {
	return db.DeletePendingProofsByQuoteId(quoteId)
}

func (db *BoltDB) ReleaseMeltQuote(quoteId string) error {
	return db.DeletePendingProofsByQuoteId(quoteId)
}

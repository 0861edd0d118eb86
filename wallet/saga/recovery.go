package saga

import (
	"fmt"

	"github.com/cashuhub/ecash-core/cashu"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut07"
)

// MintClient is the subset of wallet/client.go operations recovery
// needs to reconcile an in-flight saga against mint-side truth. The
// wallet package supplies an adapter over its package-level HTTP
// functions; tests supply a fake.
type MintClient interface {
	CheckState(mintURL string, ys []string) ([]nut07.ProofState, error)
	Restore(mintURL string, data map[string]string) (restored bool, err error)
	ProcessMint(mintURL, quoteId string, data map[string]string) (signed bool, err error)
	MeltQuoteState(mintURL, quoteId string) (cashu.MeltQuoteState, error)
}

// Handler performs the kind-specific completion/compensation actions
// recovery decides on: reconstructing proofs, recording a transaction,
// releasing a reservation. Each method is a no-op to implement when
// that branch can't occur for a given wallet (e.g. a wallet that never
// does Issue sagas can no-op CompleteIssue).
type Handler interface {
	CompensateProofs(saga *Saga) error
	ReleaseQuote(saga *Saga) error
	DeletePendingProofs(saga *Saga) error
	CompleteFromRestore(saga *Saga) error
	MarkInputsSpent(saga *Saga) error
	CompleteIssue(saga *Saga) error
	CompleteMelt(saga *Saga) error
}

// RecoverIncompleteSagas runs the startup recovery procedure (§4.10):
// every persisted saga is inspected and driven to either completion or
// compensation. It must run to completion before the wallet accepts
// any user operation. Sagas left untouched (mint unreachable, quote
// still pending) remain for the next startup.
func RecoverIncompleteSagas(store Store, client MintClient, handler Handler) []error {
	sagas, err := store.GetSagas()
	if err != nil {
		return []error{fmt.Errorf("GetSagas: %v", err)}
	}

	var errs []error
	for _, s := range sagas {
		if err := recoverOne(store, client, handler, s); err != nil {
			errs = append(errs, fmt.Errorf("saga %s (%s/%s): %v", s.Id, s.Kind, s.Phase, err))
		}
	}
	return errs
}

func recoverOne(store Store, client MintClient, handler Handler, s *Saga) error {
	switch {
	case s.Kind == Swap && s.Phase == SwapProofsReserved:
		return compensateAndDelete(store, handler, s)

	case s.Kind == Swap && s.Phase == SwapRequested:
		return recoverReplayOrRestore(store, client, handler, s)

	case s.Kind == Send && s.Phase == SendProofsReserved:
		return compensateAndDelete(store, handler, s)

	case s.Kind == Send && s.Phase == SendTokenCreated:
		// The token may still be redeemed by its recipient: leave
		// proofs reserved, just forget the saga.
		return store.DeleteSaga(s.Id)

	case s.Kind == Receive && s.Phase == ReceiveProofsPending:
		if err := handler.DeletePendingProofs(s); err != nil {
			return err
		}
		return store.DeleteSaga(s.Id)

	case s.Kind == Receive && s.Phase == ReceiveSwapRequested:
		return recoverReplayOrRestore(store, client, handler, s)

	case s.Kind == Issue && s.Phase == IssueSecretsPrepared:
		if err := handler.ReleaseQuote(s); err != nil {
			return err
		}
		return store.DeleteSaga(s.Id)

	case s.Kind == Issue && s.Phase == IssueMintRequested:
		return recoverIssue(store, client, handler, s)

	case s.Kind == Melt && s.Phase == MeltProofsReserved:
		if err := handler.ReleaseQuote(s); err != nil {
			return err
		}
		return compensateAndDelete(store, handler, s)

	case s.Kind == Melt && s.Phase == MeltRequested:
		return recoverMelt(store, client, handler, s)

	default:
		return fmt.Errorf("unrecognized (kind, phase) pair")
	}
}

func compensateAndDelete(store Store, handler Handler, s *Saga) error {
	if err := handler.CompensateProofs(s); err != nil {
		return err
	}
	return store.DeleteSaga(s.Id)
}

// recoverReplayOrRestore implements the shared Swap/Receive
// SwapRequested recovery: check_state on the reserved inputs; if all
// are Spent, try to recover the new proofs via /restore; if none are
// Spent, compensate; if the mint can't be reached, skip for now.
func recoverReplayOrRestore(store Store, client MintClient, handler Handler, s *Saga) error {
	states, err := client.CheckState(s.MintURL, s.InputYs)
	if err != nil {
		// Mint unreachable: leave the saga for the next startup.
		return nil
	}

	allSpent := len(states) > 0
	anySpent := false
	for _, state := range states {
		if state.State != nut07.Spent {
			allSpent = false
		} else {
			anySpent = true
		}
	}

	switch {
	case allSpent:
		restored, err := client.Restore(s.MintURL, s.Data)
		if err != nil {
			return nil // mint unreachable or restore failed: retry next startup
		}
		if !restored {
			return cashu.RecoveryAmbiguousErr
		}
		if err := handler.CompleteFromRestore(s); err != nil {
			return err
		}
		if err := handler.MarkInputsSpent(s); err != nil {
			return err
		}
		return store.DeleteSaga(s.Id)
	case !anySpent:
		return compensateAndDelete(store, handler, s)
	default:
		// Mixed spent state: ambiguous, retry next startup.
		return nil
	}
}

// recoverIssue replays process_mint (idempotent per NUT-19): if it
// returns signatures, complete the issue; otherwise fall back to
// restore; otherwise compensate.
func recoverIssue(store Store, client MintClient, handler Handler, s *Saga) error {
	quoteId := s.Data["quote_id"]
	signed, err := client.ProcessMint(s.MintURL, quoteId, s.Data)
	if err == nil && signed {
		if err := handler.CompleteIssue(s); err != nil {
			return err
		}
		return store.DeleteSaga(s.Id)
	}
	if err != nil {
		return nil // mint unreachable: retry next startup
	}

	restored, err := client.Restore(s.MintURL, s.Data)
	if err != nil {
		return nil
	}
	if restored {
		if err := handler.CompleteFromRestore(s); err != nil {
			return err
		}
		return store.DeleteSaga(s.Id)
	}

	if err := handler.ReleaseQuote(s); err != nil {
		return err
	}
	return compensateAndDelete(store, handler, s)
}

// recoverMelt queries the melt quote's mint-side state: Paid completes
// locally, Failed compensates, Pending/unreachable is left for the
// next startup.
func recoverMelt(store Store, client MintClient, handler Handler, s *Saga) error {
	quoteId := s.Data["quote_id"]
	state, err := client.MeltQuoteState(s.MintURL, quoteId)
	if err != nil {
		return nil
	}

	switch state {
	case cashu.MeltQuotePaid:
		if err := handler.CompleteMelt(s); err != nil {
			return err
		}
		return store.DeleteSaga(s.Id)
	case cashu.MeltQuoteFailed:
		return compensateAndDelete(store, handler, s)
	default:
		return nil
	}
}

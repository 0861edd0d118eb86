// Package saga implements the wallet's crash-recoverable operation
// engine (C10): every multi-step wallet operation (swap, send, receive,
// issue, melt) is driven through an explicit Initial -> Prepared ->
// Finalized typestate, with a persisted saga row and a LIFO stack of
// compensating actions so a crash between steps can be unwound or
// replayed on the next startup.
//
// Go has no first-class typestate, so the three states are distinct
// structs rather than one generic parameterized over a phantom type:
// the teacher's code never reaches for generics to model a state
// machine, and neither do we.
package saga

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cashuhub/ecash-core/cashu"
)

// Kind identifies which wallet operation a saga is driving.
type Kind string

const (
	Swap    Kind = "swap"
	Send    Kind = "send"
	Receive Kind = "receive"
	Issue   Kind = "issue"
	Melt    Kind = "melt"
)

// Phase is a kind-specific checkpoint. The same Phase string is never
// reused across kinds, so (Kind, Phase) pairs read unambiguously out of
// storage.
type Phase string

const (
	SwapProofsReserved Phase = "SwapProofsReserved"
	SwapRequested      Phase = "SwapRequested"

	SendProofsReserved Phase = "SendProofsReserved"
	SendTokenCreated   Phase = "SendTokenCreated"

	ReceiveProofsPending Phase = "ReceiveProofsPending"
	ReceiveSwapRequested Phase = "ReceiveSwapRequested"

	IssueSecretsPrepared Phase = "IssueSecretsPrepared"
	IssueMintRequested   Phase = "IssueMintRequested"

	MeltProofsReserved Phase = "MeltProofsReserved"
	MeltRequested      Phase = "MeltRequested"
)

// Saga is the persisted row backing one in-flight operation. Data is a
// small JSON-friendly bag of kind-specific fields (input Ys, quote id,
// serialized blinded messages, ...) rather than five bespoke structs:
// the fields needed at recovery time are few and string-shaped, and a
// bag avoids a parallel migration every time a kind grows a field.
type Saga struct {
	Id        string
	Kind      Kind
	Phase     Phase
	Version   uint64
	MintURL   string
	InputYs   []string
	Data      map[string]string
	CreatedAt int64
}

// Store is the persistence contract a saga engine needs; the wallet's
// bbolt-backed storage.BoltDB implements it (see wallet/storage).
type Store interface {
	SaveSaga(*Saga) error
	GetSaga(id string) (*Saga, error)
	GetSagas() ([]*Saga, error)
	// UpdateSaga writes saga back only if saga.Version still matches the
	// stored row's version, then increments it; returns SagaConflictErr
	// otherwise.
	UpdateSaga(saga *Saga) error
	DeleteSaga(id string) error

	UnreserveProofs(ys []string) error
	ReleaseMintQuote(quoteId string) error
	ReleaseMeltQuote(quoteId string) error
}

// Compensation undoes one side effect of a Prepare step. Compensations
// close only over the store and the saga id, per the wallet
// concurrency model: they must remain valid to run long after Prepare
// returned, including after a process restart.
type Compensation func(store Store, sagaId string) error

// compensations is a LIFO stack recorded alongside a Saga so unwinding
// runs side effects in reverse order.
type compensations []Compensation

func (c *compensations) push(fn Compensation) {
	*c = append(*c, fn)
}

// run executes every compensation in reverse registration order,
// continuing past individual failures and returning the first error
// seen (if any) wrapped with cashu.CompensationFailedErr context.
func (c compensations) run(store Store, sagaId string) error {
	var firstErr error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](store, sagaId); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: %v", cashu.CompensationFailedErr, err)
		}
	}
	return firstErr
}

// Engine ties a Store to the registry of compensations accumulated for
// sagas currently in flight within this process.
type Engine struct {
	store         Store
	compensations map[string]compensations
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store:         store,
		compensations: make(map[string]compensations),
	}
}

// Initial is the entry point for starting a new saga of a given kind.
type Initial struct {
	engine  *Engine
	kind    Kind
	mintURL string
}

func (e *Engine) New(kind Kind, mintURL string) Initial {
	return Initial{engine: e, kind: kind, mintURL: mintURL}
}

// Prepare reserves inputYs locally, records the saga at its
// ProofsReserved-equivalent phase, and registers an unreserve
// compensation. unreserve is deferred, not executed here: Prepare
// only records that it must eventually run.
func (i Initial) Prepare(inputYs []string, data map[string]string) (Prepared, error) {
	id := uuid.NewString()
	phase, err := reservedPhase(i.kind)
	if err != nil {
		return Prepared{}, err
	}

	saga := &Saga{
		Id:      id,
		Kind:    i.kind,
		Phase:   phase,
		Version: 1,
		MintURL: i.mintURL,
		InputYs: inputYs,
		Data:    data,
	}
	if err := i.engine.store.SaveSaga(saga); err != nil {
		return Prepared{}, fmt.Errorf("SaveSaga: %v", err)
	}

	stack := compensations{}
	stack.push(func(store Store, sagaId string) error {
		return store.UnreserveProofs(inputYs)
	})
	if quoteId, ok := data["quote_id"]; ok && quoteId != "" {
		switch i.kind {
		case Issue:
			stack.push(func(store Store, sagaId string) error {
				return store.ReleaseMintQuote(quoteId)
			})
		case Melt:
			stack.push(func(store Store, sagaId string) error {
				return store.ReleaseMeltQuote(quoteId)
			})
		}
	}
	i.engine.compensations[id] = stack

	return Prepared{engine: i.engine, saga: saga}, nil
}

func reservedPhase(kind Kind) (Phase, error) {
	switch kind {
	case Swap:
		return SwapProofsReserved, nil
	case Send:
		return SendProofsReserved, nil
	case Receive:
		return ReceiveProofsPending, nil
	case Issue:
		return IssueSecretsPrepared, nil
	case Melt:
		return MeltProofsReserved, nil
	default:
		return "", fmt.Errorf("saga: unknown kind %q", kind)
	}
}

func requestedPhase(kind Kind) (Phase, error) {
	switch kind {
	case Swap:
		return SwapRequested, nil
	case Send:
		return SendTokenCreated, nil
	case Receive:
		return ReceiveSwapRequested, nil
	case Issue:
		return IssueMintRequested, nil
	case Melt:
		return MeltRequested, nil
	default:
		return "", fmt.Errorf("saga: unknown kind %q", kind)
	}
}

// Prepared is a saga that has reserved its inputs but not yet called
// the mint.
type Prepared struct {
	engine *Engine
	saga   *Saga
}

func (p Prepared) Saga() *Saga { return p.saga }

// Execute writes the write-ahead Requested phase, then runs call. A
// definitive error (the mint rejected the request in a way that cannot
// have altered its state) unwinds every registered compensation and
// deletes the saga. An ambiguous error (network failure, timeout)
// leaves the saga exactly as persisted, for recovery on next startup.
func (p Prepared) Execute(definitive func(error) bool, call func() error) (Finalized, error) {
	phase, err := requestedPhase(p.saga.Kind)
	if err != nil {
		return Finalized{}, err
	}
	p.saga.Phase = phase
	if err := p.engine.store.UpdateSaga(p.saga); err != nil {
		return Finalized{}, err
	}

	callErr := call()
	if callErr == nil {
		p.engine.clear(p.saga.Id)
		return Finalized{Saga: p.saga}, nil
	}

	if definitive(callErr) {
		stack := p.engine.compensations[p.saga.Id]
		compErr := stack.run(p.engine.store, p.saga.Id)
		p.engine.clear(p.saga.Id)
		if compErr != nil {
			return Finalized{}, fmt.Errorf("%v (compensating for: %v)", compErr, callErr)
		}
		return Finalized{}, callErr
	}

	// Ambiguous: saga stays persisted for recovery. The in-memory
	// compensation stack is intentionally dropped here; recovery
	// reconstructs equivalent compensations from the persisted Saga.
	return Finalized{}, fmt.Errorf("%w: %v", ambiguousExecuteErr{}, callErr)
}

// clear removes a saga's row and in-memory compensation stack once it
// reaches a terminal outcome.
func (e *Engine) clear(sagaId string) {
	delete(e.compensations, sagaId)
	_ = e.store.DeleteSaga(sagaId)
}

type ambiguousExecuteErr struct{}

func (ambiguousExecuteErr) Error() string { return "saga execution outcome is ambiguous" }

// Finalized carries the terminal saga row (nil once deleted) for
// callers that want to inspect what happened.
type Finalized struct {
	Saga *Saga
}

package agreementmanager

import (
	"context"
	"math/big"

	"github.com/Ghravitee/dex-court-sub000/internal/interfaces"
	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/repositories/contracts"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

type AgreementStore interface {
	GetSnapshot(ctx context.Context, id *big.Int) (*escrow.Snapshot, error)
	CreateEscrowSubscription(ctx context.Context) (*lib.Subscription, error)
}

// AgreementManager tracks a set of agreements against a single escrow
// contract. It holds one log subscription and routes each event to the
// watcher of the agreement it belongs to; unknown agreements are ignored
// until Watch is called for them.
type AgreementManager struct {
	// state
	watchers *lib.Collection[*AgreementWatcher]

	// deps
	store     AgreementStore
	onExpired func(id *big.Int, deadline string)
	log       interfaces.ILogger
}

func NewAgreementManager(store AgreementStore, onExpired func(id *big.Int, deadline string), log interfaces.ILogger) *AgreementManager {
	return &AgreementManager{
		watchers:  lib.NewCollection[*AgreementWatcher](),
		store:     store,
		onExpired: onExpired,
		log:       log,
	}
}

// Watch starts tracking an agreement. The first snapshot is fetched
// synchronously so a successful return means the watcher is usable
func (m *AgreementManager) Watch(ctx context.Context, id *big.Int) (*AgreementWatcher, error) {
	if watcher, ok := m.watchers.Load(id.String()); ok {
		return watcher, nil
	}

	watcher := NewAgreementWatcher(id, m.store, m.onExpired, m.log.Named("watcher"))
	if err := watcher.Refresh(ctx); err != nil {
		return nil, err
	}

	m.watchers.Store(watcher)
	m.log.Infof("watching agreement %s", id.String())
	return watcher, nil
}

// Unwatch stops the agreement's countdowns and forgets it
func (m *AgreementManager) Unwatch(id *big.Int) {
	watcher, ok := m.watchers.Load(id.String())
	if !ok {
		return
	}
	watcher.Stop()
	m.watchers.Delete(id.String())
	m.log.Infof("stopped watching agreement %s", id.String())
}

// GetWatcher returns the watcher for an agreement, nil when untracked
func (m *AgreementManager) GetWatcher(id *big.Int) *AgreementWatcher {
	watcher, ok := m.watchers.Load(id.String())
	if !ok {
		return nil
	}
	return watcher
}

// Range iterates over tracked watchers
func (m *AgreementManager) Range(f func(w *AgreementWatcher) bool) {
	m.watchers.Range(f)
}

// RefreshAgreement forces a snapshot refetch, used after a local write
// confirms so reads don't wait for the event to arrive
func (m *AgreementManager) RefreshAgreement(ctx context.Context, id *big.Int) {
	watcher, ok := m.watchers.Load(id.String())
	if !ok {
		return
	}
	_ = watcher.Refresh(ctx)
}

// Run consumes escrow contract events until the context is cancelled.
// A subscription error is returned so the task wrapper can restart us
func (m *AgreementManager) Run(ctx context.Context) error {
	sub, err := m.store.CreateEscrowSubscription(ctx)
	if err != nil {
		return lib.WrapError(escrow.ErrNetwork, err)
	}
	defer sub.Unsubscribe()

	m.log.Infof("subscribed to escrow contract events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-sub.Events():
			m.routeEvent(ctx, event)
		case err := <-sub.Err():
			return err
		}
	}
}

func (m *AgreementManager) routeEvent(ctx context.Context, event interface{}) {
	id := eventAgreementID(event)
	if id == nil {
		m.log.Debugf("skipping event without agreement id: %T", event)
		return
	}

	watcher, ok := m.watchers.Load(id.String())
	if !ok {
		return
	}

	m.log.Debugf("event %T for agreement %s", event, id.String())
	_ = watcher.Refresh(ctx)
}

// eventAgreementID extracts the agreement id an escrow event refers to
func eventAgreementID(event interface{}) *big.Int {
	switch e := event.(type) {
	case *contracts.EscrowAgreementCreated:
		return e.Id
	case *contracts.EscrowFundsDeposited:
		return e.Id
	case *contracts.EscrowAgreementSigned:
		return e.Id
	case *contracts.EscrowDeliverySubmitted:
		return e.Id
	case *contracts.EscrowDeliveryResolved:
		return e.Id
	case *contracts.EscrowCancellationRequested:
		return e.Id
	case *contracts.EscrowCancellationResolved:
		return e.Id
	case *contracts.EscrowMilestoneClaimed:
		return e.Id
	case *contracts.EscrowMilestoneHoldSet:
		return e.Id
	case *contracts.EscrowAgreementFrozen:
		return e.Id
	case *contracts.EscrowAgreementCompleted:
		return e.Id
	}
	return nil
}

package agreementmanager

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/Ghravitee/dex-court-sub000/internal/interfaces"
	"github.com/Ghravitee/dex-court-sub000/internal/lib"
	"github.com/Ghravitee/dex-court-sub000/internal/resources/escrow"
)

// AgreementWatcher keeps a single agreement's snapshot current and runs
// one countdown per non-zero deadline of that snapshot. Countdowns are
// replaced, not retargeted, when a refresh moves a deadline.
type AgreementWatcher struct {
	// config
	agreementID *big.Int

	// state
	snapshot   *escrow.Snapshot
	countdowns map[string]*countdownEntry
	mutex      sync.RWMutex

	// deps
	store     AgreementStore
	onExpired func(id *big.Int, deadline string)
	log       interfaces.ILogger
}

type countdownEntry struct {
	target    time.Time
	countdown *escrow.Countdown
	task      *lib.Task
}

func NewAgreementWatcher(agreementID *big.Int, store AgreementStore, onExpired func(id *big.Int, deadline string), log interfaces.ILogger) *AgreementWatcher {
	return &AgreementWatcher{
		agreementID: agreementID,
		countdowns:  make(map[string]*countdownEntry),
		store:       store,
		onExpired:   onExpired,
		log:         log,
	}
}

func (w *AgreementWatcher) GetID() string {
	return w.agreementID.String()
}

func (w *AgreementWatcher) AgreementID() *big.Int {
	return new(big.Int).Set(w.agreementID)
}

// Snapshot returns the last fetched snapshot, nil before the first refresh
func (w *AgreementWatcher) Snapshot() *escrow.Snapshot {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.snapshot
}

// Refresh refetches the snapshot and re-anchors the countdowns. A fetch
// error keeps the previous snapshot so callers degrade to stale reads
func (w *AgreementWatcher) Refresh(ctx context.Context) error {
	snap, err := w.store.GetSnapshot(ctx, w.agreementID)
	if err != nil {
		w.log.Warnf("snapshot refresh failed for agreement %s: %s", w.agreementID.String(), err)
		return err
	}

	w.mutex.Lock()
	w.snapshot = snap
	w.rebuildCountdowns(ctx, snap)
	w.mutex.Unlock()

	w.log.Debugf("agreement %s refreshed, state %s", w.agreementID.String(), snap.Agreement.State().String())
	return nil
}

// Deadlines returns the named targets currently tracked, for display
func (w *AgreementWatcher) Deadlines() map[string]time.Time {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	out := make(map[string]time.Time, len(w.countdowns))
	for name, entry := range w.countdowns {
		out[name] = entry.target
	}
	return out
}

// Stop cancels all running countdowns
func (w *AgreementWatcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	for name, entry := range w.countdowns {
		entry.task.Stop()
		delete(w.countdowns, name)
	}
}

// rebuildCountdowns diffs the snapshot's deadlines against the running
// countdowns, keeping those whose target is unchanged. Caller holds mutex
func (w *AgreementWatcher) rebuildCountdowns(ctx context.Context, snap *escrow.Snapshot) {
	targets := watchedDeadlines(snap)

	for name, entry := range w.countdowns {
		target, stillWatched := targets[name]
		if stillWatched && entry.target.Equal(target) {
			continue
		}
		entry.task.Stop()
		delete(w.countdowns, name)
	}

	for name, target := range targets {
		if _, ok := w.countdowns[name]; ok {
			continue
		}
		name := name
		countdown := escrow.NewCountdown(target, func() {
			w.log.Infof("agreement %s deadline %q reached", w.agreementID.String(), name)
			if w.onExpired != nil {
				w.onExpired(w.agreementID, name)
			}
		})
		task := lib.NewTaskFunc(countdown.Run, "countdown-"+w.agreementID.String()+"-"+name)
		task.Start(ctx)
		w.countdowns[name] = &countdownEntry{
			target:    target,
			countdown: countdown,
			task:      task,
		}
	}
}

// watchedDeadlines picks the deadline fields worth ticking for the
// agreement's current state. Terminal agreements track nothing
func watchedDeadlines(snap *escrow.Snapshot) map[string]time.Time {
	a := snap.Agreement
	if a == nil || a.IsTerminal() {
		return nil
	}

	targets := map[string]time.Time{}
	add := func(name string, t time.Time) {
		if !t.IsZero() {
			targets[name] = t
		}
	}

	add(DeadlineFunding, a.Deadline)
	if a.PendingCancellation {
		add(DeadlineCancelResponse, a.GracePeriod1End)
	}
	if a.DeliverySubmitted {
		add(DeadlinePartialRelease, a.PartialReleaseAt())
		add(DeadlineFinalRelease, a.FinalReleaseAt())
	}
	if a.VestingEnabled {
		for _, m := range snap.Milestones {
			if m.Claimed {
				continue
			}
			add(DeadlineMilestonePrefix+strconv.Itoa(m.Index), m.UnlockAt)
		}
	}
	return targets
}

// Deadline names as they appear in logs and the HTTP surface
const (
	DeadlineFunding         = "deadline"
	DeadlineCancelResponse  = "cancel-response"
	DeadlinePartialRelease  = "partial-release"
	DeadlineFinalRelease    = "final-release"
	DeadlineMilestonePrefix = "milestone-"
)

package reconcile

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/namespace"
	"github.com/Arctic1879/file-vault/policy"
)

// Reconciler periodically repairs drift between stored aggregates and the
// tree's actual contents: quota counters and folder sizes can go stale when
// a crash lands between a blob write and its record commit. Individual
// operations stay correct without it; it bounds accumulated drift.
type Reconciler struct {
	store *namespace.Store
	guard *policy.Guard
	stop  atomic.Bool
}

func NewReconciler(store *namespace.Store, guard *policy.Guard) *Reconciler {
	return &Reconciler{store: store, guard: guard}
}

func (r *Reconciler) runOnce() {
	owners, err := r.store.ListOwners()
	if err != nil {
		log.Error().Err(err).Msg("failed to list owners for reconciliation")
		return
	}

	for _, ownerID := range owners {
		if err := r.guard.ReconcileQuota(ownerID); err != nil {
			log.Error().Err(err).Str("owner", ownerID).Msg("quota reconciliation failed")
			continue
		}

		o, err := r.store.Owner(ownerID)
		if err != nil {
			log.Error().Err(err).Str("owner", ownerID).Msg("failed to load owner record")
			continue
		}
		if _, err := r.store.RecomputeSubtreeSize(o.HomeRootID); err != nil {
			log.Error().Err(err).Str("owner", ownerID).Msg("subtree size reconciliation failed")
		}
	}

	cyclesRun.Inc()
}

// Start blocks, running a reconciliation pass every checkInterval seconds
// until Stop is called.
func (r *Reconciler) Start(checkInterval int64) {
	for {
		if r.stop.Load() {
			log.Info().Msg("shutting down reconciler...")
			return
		}
		time.Sleep(time.Second * time.Duration(checkInterval))
		r.runOnce()
	}
}

func (r *Reconciler) Stop() {
	r.stop.Store(true)
}

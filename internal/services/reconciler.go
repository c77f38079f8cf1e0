package services

import (
	"context"
	"log"
	"time"

	"peerfinder/internal/repositories"
)

// Reconciler periodically repairs drift between User.Groups and
// Group.Students. Paired updates are transactional inside this binary, so
// the sweep only ever finds drift introduced by outside writes or by crashes
// of earlier, non-transactional versions of the data.
type Reconciler struct {
	members  repositories.MembershipRepository
	interval time.Duration
}

// NewReconciler creates a new Reconciler.
func NewReconciler(members repositories.MembershipRepository, interval time.Duration) *Reconciler {
	return &Reconciler{
		members:  members,
		interval: interval,
	}
}

// SweepOnce runs a single repair pass and returns the number of records
// repaired.
func (r *Reconciler) SweepOnce() (int, error) {
	return r.members.Sweep()
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := r.SweepOnce()
			if err != nil {
				log.Printf("Membership reconciliation failed: %v", err)
				continue
			}
			if repaired > 0 {
				log.Printf("Membership reconciliation repaired %d records", repaired)
			}
		}
	}
}

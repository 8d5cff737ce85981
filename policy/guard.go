package policy

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/namespace"
)

var (
	ErrQuotaExceeded        = errors.New("storage quota exceeded")
	ErrExpired              = errors.New("object has expired")
	ErrDownloadLimitReached = errors.New("download limit reached")
	ErrWrongSecret          = errors.New("wrong access secret")
)

// Guard enforces per-owner storage quotas at write time and per-object
// expiry, download-limit, and access-secret policies at read time.
type Guard struct {
	store *namespace.Store
}

func NewGuard(store *namespace.Store) *Guard {
	return &Guard{store: store}
}

// AdmitUpload is the pre-flight quota check. It mutates nothing; a denial
// here aborts the upload before any encryption or storage work.
func (g *Guard) AdmitUpload(ownerID string, sizeBytes int64) error {
	o, err := g.store.Owner(ownerID)
	if err != nil {
		return err
	}
	if o.StorageUsedBytes+sizeBytes > o.StorageLimitBytes {
		quotaDenials.Inc()
		return ErrQuotaExceeded
	}
	return nil
}

// CommitUpload charges the owner for a stored file. The check is repeated
// under the owner lock, so two uploads that both passed admission cannot
// jointly exceed the limit; the loser is denied here and must roll back.
func (g *Guard) CommitUpload(ownerID string, sizeBytes int64) error {
	_, err := g.store.MutateOwner(ownerID, func(o *namespace.Owner) error {
		if o.StorageUsedBytes+sizeBytes > o.StorageLimitBytes {
			quotaDenials.Inc()
			return ErrQuotaExceeded
		}
		o.StorageUsedBytes += sizeBytes
		return nil
	})
	return err
}

// ReleaseBytes refunds quota charged for a file that did not survive its
// upload (e.g. the node insert failed after commit).
func (g *Guard) ReleaseBytes(ownerID string, sizeBytes int64) error {
	_, err := g.store.MutateOwner(ownerID, func(o *namespace.Owner) error {
		o.StorageUsedBytes -= sizeBytes
		if o.StorageUsedBytes < 0 {
			o.StorageUsedBytes = 0
		}
		return nil
	})
	return err
}

// ReconcileQuota overwrites the stored usage counter with the sum of all
// owned file sizes. Safe to run at any time; exists to repair drift from
// partial failures, not to prevent it.
func (g *Guard) ReconcileQuota(ownerID string) error {
	actual, err := g.store.SumOwnedFileBytes(ownerID)
	if err != nil {
		return err
	}
	_, err = g.store.MutateOwner(ownerID, func(o *namespace.Owner) error {
		if o.StorageUsedBytes != actual {
			log.Warn().
				Str("owner", ownerID).
				Int64("stored", o.StorageUsedBytes).
				Int64("actual", actual).
				Msg("repaired quota counter")
		}
		o.StorageUsedBytes = actual
		return nil
	})
	return err
}

// CheckAccess verifies a caller-supplied secret against the node's stored
// hash. The comparison is constant-time.
func (g *Guard) CheckAccess(node *namespace.Node, suppliedSecret string) error {
	if len(node.SecretHash) == 0 {
		return nil
	}
	if !envelope.VerifySecret(suppliedSecret, node.SecretHash) {
		return ErrWrongSecret
	}
	return nil
}

// CheckAvailability denies reads of expired objects and objects at their
// download limit. The two policies are independent: either, both, or
// neither may be set on a node.
func (g *Guard) CheckAvailability(node *namespace.Node) error {
	if node.ExpiresAt != nil && time.Now().After(*node.ExpiresAt) {
		return ErrExpired
	}
	if node.DownloadLimit > 0 && node.DownloadCount >= node.DownloadLimit {
		return ErrDownloadLimitReached
	}
	return nil
}

// RecordDownload increments the node's download counter. The limit is
// re-evaluated against a freshly read count inside the critical section, so
// two downloads racing a limit of one cannot both pass.
func (g *Guard) RecordDownload(nodeID string) error {
	_, err := g.store.MutateNode(nodeID, func(n *namespace.Node) error {
		if n.DownloadLimit > 0 && n.DownloadCount >= n.DownloadLimit {
			return ErrDownloadLimitReached
		}
		n.DownloadCount++
		return nil
	})
	if err != nil {
		return err
	}
	downloadsRecorded.Inc()
	return nil
}

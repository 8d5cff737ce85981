package policy

import (
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/logger"
	"github.com/Arctic1879/file-vault/namespace"
)

func openTestGuard(t *testing.T, defaultLimit int64) (*namespace.Store, *Guard) {
	t.Helper()

	options := badger.DefaultOptions(t.TempDir())
	options.Logger = &logger.VaultLogger{}

	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store := namespace.NewStore(db, defaultLimit)
	return store, NewGuard(store)
}

func TestQuotaAdmitAndCommit(t *testing.T) {
	r := require.New(t)
	store, guard := openTestGuard(t, 100)

	_, err := store.EnsureHomeRoot("alice")
	r.NoError(err)

	r.NoError(guard.AdmitUpload("alice", 60))
	r.NoError(guard.CommitUpload("alice", 60))

	// 60 used of 100; another 50 no longer fits
	r.ErrorIs(guard.AdmitUpload("alice", 50), ErrQuotaExceeded)
	r.ErrorIs(guard.CommitUpload("alice", 50), ErrQuotaExceeded)

	// an exact fit is admitted
	r.NoError(guard.CommitUpload("alice", 40))

	o, err := store.Owner("alice")
	r.NoError(err)
	r.Equal(int64(100), o.StorageUsedBytes)
}

func TestQuotaConservedUnderConcurrency(t *testing.T) {
	r := require.New(t)
	store, guard := openTestGuard(t, 100)

	_, err := store.EnsureHomeRoot("alice")
	r.NoError(err)

	// 20 uploads of 10 bytes racing a 100-byte limit; exactly 10 commit
	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- guard.CommitUpload("alice", 10)
		}()
	}
	wg.Wait()
	close(results)

	var committed, denied int
	for err := range results {
		if err == nil {
			committed++
		} else {
			r.ErrorIs(err, ErrQuotaExceeded)
			denied++
		}
	}
	r.Equal(10, committed)
	r.Equal(10, denied)

	o, err := store.Owner("alice")
	r.NoError(err)
	r.Equal(int64(100), o.StorageUsedBytes)
}

func TestReleaseBytes(t *testing.T) {
	r := require.New(t)
	store, guard := openTestGuard(t, 100)

	_, err := store.EnsureHomeRoot("alice")
	r.NoError(err)

	r.NoError(guard.CommitUpload("alice", 70))
	r.NoError(guard.ReleaseBytes("alice", 70))

	o, err := store.Owner("alice")
	r.NoError(err)
	r.Zero(o.StorageUsedBytes)

	// over-release clamps at zero instead of going negative
	r.NoError(guard.CommitUpload("alice", 10))
	r.NoError(guard.ReleaseBytes("alice", 50))

	o, err = store.Owner("alice")
	r.NoError(err)
	r.Zero(o.StorageUsedBytes)
}

func TestReconcileQuota(t *testing.T) {
	r := require.New(t)
	store, guard := openTestGuard(t, 1000)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)
	_, err = store.CreateFile("alice", root.ID, "a.txt", 30, namespace.FileMeta{StorageKey: "sk-a"})
	r.NoError(err)
	_, err = store.CreateFile("alice", root.ID, "b.txt", 12, namespace.FileMeta{StorageKey: "sk-b"})
	r.NoError(err)

	// counter drifted; reconcile overwrites it with the real sum
	_, err = store.MutateOwner("alice", func(o *namespace.Owner) error {
		o.StorageUsedBytes = 999
		return nil
	})
	r.NoError(err)

	r.NoError(guard.ReconcileQuota("alice"))

	o, err := store.Owner("alice")
	r.NoError(err)
	r.Equal(int64(42), o.StorageUsedBytes)
}

func TestCheckAccess(t *testing.T) {
	r := require.New(t)
	_, guard := openTestGuard(t, 100)

	open := &namespace.Node{}
	r.NoError(guard.CheckAccess(open, ""))
	r.NoError(guard.CheckAccess(open, "anything"))

	hash, err := envelope.HashSecret("hunter2")
	r.NoError(err)
	locked := &namespace.Node{SecretHash: hash}
	r.NoError(guard.CheckAccess(locked, "hunter2"))
	r.ErrorIs(guard.CheckAccess(locked, "hunter3"), ErrWrongSecret)
	r.ErrorIs(guard.CheckAccess(locked, ""), ErrWrongSecret)
}

func TestAvailabilityPoliciesAreIndependent(t *testing.T) {
	r := require.New(t)
	_, guard := openTestGuard(t, 100)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	r.NoError(guard.CheckAvailability(&namespace.Node{}))

	// expiry alone
	r.ErrorIs(guard.CheckAvailability(&namespace.Node{ExpiresAt: &past}), ErrExpired)
	r.NoError(guard.CheckAvailability(&namespace.Node{ExpiresAt: &future}))

	// download limit alone
	r.ErrorIs(guard.CheckAvailability(&namespace.Node{DownloadLimit: 2, DownloadCount: 2}), ErrDownloadLimitReached)
	r.NoError(guard.CheckAvailability(&namespace.Node{DownloadLimit: 2, DownloadCount: 1}))

	// an unexpired object still hits its download limit, and vice versa
	r.ErrorIs(guard.CheckAvailability(&namespace.Node{ExpiresAt: &future, DownloadLimit: 1, DownloadCount: 1}), ErrDownloadLimitReached)
	r.ErrorIs(guard.CheckAvailability(&namespace.Node{ExpiresAt: &past, DownloadLimit: 5}), ErrExpired)
}

func TestRecordDownloadEnforcesLimit(t *testing.T) {
	r := require.New(t)
	store, guard := openTestGuard(t, 1000)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)
	node, err := store.CreateFile("alice", root.ID, "once.txt", 5, namespace.FileMeta{
		StorageKey:    "sk-once",
		DownloadLimit: 1,
	})
	r.NoError(err)

	r.NoError(guard.RecordDownload(node.ID))
	r.ErrorIs(guard.RecordDownload(node.ID), ErrDownloadLimitReached)

	got, err := store.GetNode(node.ID)
	r.NoError(err)
	r.Equal(int64(1), got.DownloadCount)
}

func TestRecordDownloadRace(t *testing.T) {
	r := require.New(t)
	store, guard := openTestGuard(t, 1000)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)
	node, err := store.CreateFile("alice", root.ID, "three.txt", 5, namespace.FileMeta{
		StorageKey:    "sk-three",
		DownloadLimit: 3,
	})
	r.NoError(err)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- guard.RecordDownload(node.ID)
		}()
	}
	wg.Wait()
	close(results)

	var recorded int
	for err := range results {
		if err == nil {
			recorded++
		} else {
			r.ErrorIs(err, ErrDownloadLimitReached)
		}
	}
	r.Equal(3, recorded)

	got, err := store.GetNode(node.ID)
	r.NoError(err)
	r.Equal(int64(3), got.DownloadCount)
}

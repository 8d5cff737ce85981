package namespace

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store is the owner-scoped namespace tree backed by badger. All mutations of
// one owner's tree are serialized by a per-owner mutex, which keeps size
// propagation and quota accounting free of lost updates without per-field
// atomics. Reads take no lock.
type Store struct {
	db           *badger.DB
	defaultLimit int64

	ownerLocks sync.Map // owner id -> *sync.Mutex
}

func NewStore(db *badger.DB, defaultLimitBytes int64) *Store {
	return &Store{db: db, defaultLimit: defaultLimitBytes}
}

func (s *Store) DB() *badger.DB {
	return s.db
}

func (s *Store) ownerLock(ownerID string) *sync.Mutex {
	mu, _ := s.ownerLocks.LoadOrStore(ownerID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// WithOwnerLock runs fn while holding the owner's mutation lock. The policy
// guard uses this to make quota admission and commit one critical section.
func (s *Store) WithOwnerLock(ownerID string, fn func() error) error {
	mu := s.ownerLock(ownerID)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getNode(txn *badger.Txn, id string) (*Node, error) {
	var n Node
	if err := getJSON(txn, nodeKey(id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func getOwner(txn *badger.Txn, id string) (*Owner, error) {
	var o Owner
	if err := getJSON(txn, ownerKey(id), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetNode looks up a single node by id.
func (s *Store) GetNode(id string) (*Node, error) {
	var n *Node
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = getNode(txn, id)
		return err
	})
	return n, err
}

// Owner returns the quota record for a principal.
func (s *Store) Owner(id string) (*Owner, error) {
	var o *Owner
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		o, err = getOwner(txn, id)
		return err
	})
	return o, err
}

// MutateOwner applies fn to the owner record under the owner lock.
func (s *Store) MutateOwner(id string, fn func(*Owner) error) (*Owner, error) {
	var out *Owner
	err := s.WithOwnerLock(id, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			o, err := getOwner(txn, id)
			if err != nil {
				return err
			}
			if err := fn(o); err != nil {
				return err
			}
			o.UpdatedAt = time.Now().UTC()
			out = o
			return setJSON(txn, ownerKey(id), o)
		})
	})
	return out, err
}

// MutateNode applies fn to a node record under its owner's lock.
func (s *Store) MutateNode(id string, fn func(*Node) error) (*Node, error) {
	n, err := s.GetNode(id)
	if err != nil {
		return nil, err
	}
	var out *Node
	err = s.WithOwnerLock(n.OwnerID, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			fresh, err := getNode(txn, id)
			if err != nil {
				return err
			}
			if err := fn(fresh); err != nil {
				return err
			}
			fresh.UpdatedAt = time.Now().UTC()
			out = fresh
			return setJSON(txn, nodeKey(id), fresh)
		})
	})
	return out, err
}

// EnsureHomeRoot returns the owner's home root, creating the owner record and
// the root folder the first time the owner is observed.
func (s *Store) EnsureHomeRoot(ownerID string) (*Node, error) {
	var root *Node
	err := s.WithOwnerLock(ownerID, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			o, err := getOwner(txn, ownerID)
			if err == nil {
				root, err = getNode(txn, o.HomeRootID)
				return err
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}

			now := time.Now().UTC()
			root = &Node{
				ID:          uuid.NewString(),
				OwnerID:     ownerID,
				DisplayName: "Home",
				IsFolder:    true,
				IsHomeRoot:  true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := setJSON(txn, nodeKey(root.ID), root); err != nil {
				return err
			}

			o = &Owner{
				ID:                ownerID,
				StorageLimitBytes: s.defaultLimit,
				HomeRootID:        root.ID,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			log.Info().Str("owner", ownerID).Str("root", root.ID).Msg("created home root for new owner")
			return setJSON(txn, ownerKey(ownerID), o)
		})
	})
	return root, err
}

// ListChildren returns a folder's direct children in lexical name order.
func (s *Store) ListChildren(ownerID, parentID string) ([]*Node, error) {
	nodes := make([]*Node, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := childPrefix(ownerID, parentID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			n, err := getNode(txn, id)
			if errors.Is(err, ErrNotFound) {
				// dangling index entry, likely a concurrent delete
				log.Warn().Str("node", id).Msg("child index points at missing node")
				continue
			}
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		return nil
	})
	return nodes, err
}

// ResolvePath walks parent pointers to the home root and returns the display
// names from the root down. A home root resolves to an empty path.
func (s *Store) ResolvePath(id string) ([]string, error) {
	path := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		current, err := getNode(txn, id)
		if err != nil {
			return err
		}
		for depth := 0; !current.IsHomeRoot; depth++ {
			if depth >= MaxDepth {
				return ErrCycleDetected
			}
			path = append([]string{current.DisplayName}, path...)
			if current.ParentID == "" {
				break
			}
			current, err = getNode(txn, current.ParentID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return path, nil
}

// SumOwnedFileBytes recomputes the owner's true usage from every non-folder
// node in the tree. Used by quota reconciliation.
func (s *Store) SumOwnedFileBytes(ownerID string) (int64, error) {
	var total int64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := ownerChildPrefix(ownerID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			n, err := getNode(txn, id)
			if err != nil {
				return err
			}
			if !n.IsFolder {
				total += n.SizeBytes
			}
		}
		return nil
	})
	return total, err
}

// ListOwners returns every owner id with a quota record.
func (s *Store) ListOwners() ([]string, error) {
	owners := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte("owner/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			owners = append(owners, string(k[len(prefix):]))
		}
		return nil
	})
	return owners, err
}

// RenderPath formats a resolved path for display. The home root renders
// as "/".
func RenderPath(path []string) string {
	return "/" + strings.Join(path, "/")
}

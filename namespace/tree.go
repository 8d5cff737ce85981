package namespace

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// propagateSizeDelta walks the parent chain from parentID to the home root,
// applying delta to each ancestor's aggregate. O(depth), the hot path for
// uploads and deletes. Callers hold the owner lock.
func propagateSizeDelta(txn *badger.Txn, parentID string, delta int64) error {
	id := parentID
	for depth := 0; id != ""; depth++ {
		if depth >= MaxDepth {
			return ErrCycleDetected
		}
		ancestor, err := getNode(txn, id)
		if err != nil {
			return err
		}
		ancestor.SizeBytes += delta
		ancestor.UpdatedAt = time.Now().UTC()
		if err := setJSON(txn, nodeKey(id), ancestor); err != nil {
			return err
		}
		id = ancestor.ParentID
	}
	return nil
}

// resolveParent loads and checks the target folder for an insert.
func resolveParent(txn *badger.Txn, ownerID, parentID string) (*Node, error) {
	parent, err := getNode(txn, parentID)
	if err != nil {
		return nil, err
	}
	if parent.OwnerID != ownerID || !parent.IsFolder {
		return nil, ErrNotFound
	}
	return parent, nil
}

func checkSiblingFree(txn *badger.Txn, ownerID, parentID, name string) error {
	_, err := txn.Get(childKey(ownerID, parentID, name))
	if err == nil {
		return ErrNameCollision
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return nil
}

// CreateFile inserts a file node under parentID and propagates its size up
// the ancestor chain. The blob must already be stored under meta.StorageKey.
func (s *Store) CreateFile(ownerID, parentID, displayName string, sizeBytes int64, meta FileMeta) (*Node, error) {
	if err := validateName(displayName); err != nil {
		return nil, err
	}

	var node *Node
	err := s.WithOwnerLock(ownerID, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if _, err := resolveParent(txn, ownerID, parentID); err != nil {
				return err
			}
			if err := checkSiblingFree(txn, ownerID, parentID, displayName); err != nil {
				return err
			}

			now := time.Now().UTC()
			node = &Node{
				ID:            uuid.NewString(),
				OwnerID:       ownerID,
				DisplayName:   displayName,
				StorageKey:    meta.StorageKey,
				ContentType:   meta.ContentType,
				SizeBytes:     sizeBytes,
				SecretHash:    meta.SecretHash,
				SecretWrapped: meta.SecretWrapped,
				DownloadLimit: meta.DownloadLimit,
				ExpiresAt:     meta.ExpiresAt,
				ParentID:      parentID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := setJSON(txn, nodeKey(node.ID), node); err != nil {
				return err
			}
			if err := txn.Set(childKey(ownerID, parentID, displayName), []byte(node.ID)); err != nil {
				return err
			}

			return propagateSizeDelta(txn, parentID, sizeBytes)
		})
	})
	if err != nil {
		return nil, err
	}

	nodeCount.Inc()
	return node, nil
}

// CreateFolder inserts an empty folder. No size propagation needed.
func (s *Store) CreateFolder(ownerID, parentID, displayName string) (*Node, error) {
	if err := validateName(displayName); err != nil {
		return nil, err
	}

	var node *Node
	err := s.WithOwnerLock(ownerID, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if _, err := resolveParent(txn, ownerID, parentID); err != nil {
				return err
			}
			if err := checkSiblingFree(txn, ownerID, parentID, displayName); err != nil {
				return err
			}

			now := time.Now().UTC()
			node = &Node{
				ID:          uuid.NewString(),
				OwnerID:     ownerID,
				DisplayName: displayName,
				IsFolder:    true,
				ParentID:    parentID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := setJSON(txn, nodeKey(node.ID), node); err != nil {
				return err
			}
			return txn.Set(childKey(ownerID, parentID, displayName), []byte(node.ID))
		})
	})
	if err != nil {
		return nil, err
	}

	nodeCount.Inc()
	return node, nil
}

// Rename changes a node's display name. Renaming to the current name is a
// no-op success. Collisions are checked case-sensitively, exactly.
func (s *Store) Rename(id, newName string) (*Node, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}

	n, err := s.GetNode(id)
	if err != nil {
		return nil, err
	}

	var out *Node
	err = s.WithOwnerLock(n.OwnerID, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			node, err := getNode(txn, id)
			if err != nil {
				return err
			}
			if node.DisplayName == newName {
				out = node
				return nil
			}
			if !node.IsHomeRoot {
				if err := checkSiblingFree(txn, node.OwnerID, node.ParentID, newName); err != nil {
					return err
				}
				if err := txn.Delete(childKey(node.OwnerID, node.ParentID, node.DisplayName)); err != nil {
					return err
				}
				if err := txn.Set(childKey(node.OwnerID, node.ParentID, newName), []byte(node.ID)); err != nil {
					return err
				}
			}
			node.DisplayName = newName
			node.UpdatedAt = time.Now().UTC()
			out = node
			return setJSON(txn, nodeKey(id), node)
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecomputeSubtreeSize rebuilds a node's aggregate bottom-up from its
// children and persists every corrected folder. O(subtree size); this is the
// repair path, not the hot path.
func (s *Store) RecomputeSubtreeSize(id string) (int64, error) {
	n, err := s.GetNode(id)
	if err != nil {
		return 0, err
	}

	var size int64
	err = s.WithOwnerLock(n.OwnerID, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			size, err = recomputeSize(txn, n.OwnerID, id, 0)
			return err
		})
	})
	return size, err
}

func recomputeSize(txn *badger.Txn, ownerID, id string, depth int) (int64, error) {
	if depth >= MaxDepth {
		return 0, ErrCycleDetected
	}

	node, err := getNode(txn, id)
	if err != nil {
		return 0, err
	}
	if !node.IsFolder {
		return node.SizeBytes, nil
	}

	childIDs, err := childIDList(txn, ownerID, id)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, childID := range childIDs {
		sz, err := recomputeSize(txn, ownerID, childID, depth+1)
		if err != nil {
			return 0, err
		}
		total += sz
	}

	if node.SizeBytes != total {
		log.Warn().
			Str("node", id).
			Int64("stored", node.SizeBytes).
			Int64("computed", total).
			Msg("repaired folder aggregate size")
		node.SizeBytes = total
		node.UpdatedAt = time.Now().UTC()
		if err := setJSON(txn, nodeKey(id), node); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// childIDList collects child node ids eagerly; badger allows only one open
// iterator per transaction, so recursion cannot hold one across levels.
func childIDList(txn *badger.Txn, ownerID, parentID string) ([]string, error) {
	ids := make([]string, 0)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := childPrefix(ownerID, parentID)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// DeleteSubtree removes a node and every descendant in one transaction:
// blobs freed, ancestor aggregates decremented, and the owner's quota
// reclaimed by exactly the file bytes removed.
func (s *Store) DeleteSubtree(id string) error {
	n, err := s.GetNode(id)
	if err != nil {
		return err
	}
	if n.IsHomeRoot {
		return errors.New("home root cannot be deleted")
	}

	var removed int
	err = s.WithOwnerLock(n.OwnerID, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			node, err := getNode(txn, id)
			if err != nil {
				return err
			}

			reclaimed, count, err := deleteRecursive(txn, node, 0)
			if err != nil {
				return err
			}
			removed = count

			if err := txn.Delete(childKey(node.OwnerID, node.ParentID, node.DisplayName)); err != nil {
				return err
			}

			if err := propagateSizeDelta(txn, node.ParentID, -node.SizeBytes); err != nil {
				return err
			}

			o, err := getOwner(txn, node.OwnerID)
			if err != nil {
				return err
			}
			o.StorageUsedBytes -= reclaimed
			if o.StorageUsedBytes < 0 {
				o.StorageUsedBytes = 0
			}
			o.UpdatedAt = time.Now().UTC()

			log.Info().
				Str("node", id).
				Str("owner", node.OwnerID).
				Int("removed", count).
				Int64("reclaimed_bytes", reclaimed).
				Msg("deleted subtree")

			return setJSON(txn, ownerKey(node.OwnerID), o)
		})
	})
	if err != nil {
		return err
	}

	nodeCount.Sub(float64(removed))
	return nil
}

// deleteRecursive removes node and its descendants, returning the file bytes
// reclaimed and the number of nodes removed.
func deleteRecursive(txn *badger.Txn, node *Node, depth int) (int64, int, error) {
	if depth >= MaxDepth {
		return 0, 0, ErrCycleDetected
	}

	var reclaimed int64
	count := 1

	if node.IsFolder {
		childIDs, err := childIDList(txn, node.OwnerID, node.ID)
		if err != nil {
			return 0, 0, err
		}
		for _, childID := range childIDs {
			child, err := getNode(txn, childID)
			if err != nil {
				return 0, 0, err
			}
			r, c, err := deleteRecursive(txn, child, depth+1)
			if err != nil {
				return 0, 0, err
			}
			reclaimed += r
			count += c
			if err := txn.Delete(childKey(node.OwnerID, node.ID, child.DisplayName)); err != nil {
				return 0, 0, err
			}
		}
	} else {
		if err := deleteBlobTxn(txn, node.StorageKey); err != nil {
			return 0, 0, err
		}
		reclaimed = node.SizeBytes
	}

	if err := txn.Delete(nodeKey(node.ID)); err != nil {
		return 0, 0, err
	}
	return reclaimed, count, nil
}

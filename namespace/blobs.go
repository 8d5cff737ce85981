package namespace

import (
	"bytes"
	"io"

	"github.com/dgraph-io/badger/v4"
)

// Blobs live in the same badger DB as the records, chunked so a single large
// payload never becomes one oversized value.
const blobChunkSize = 256 << 10

// PutBlob stores an encrypted payload under storageKey, returning the number
// of bytes written. Any chunks already stored under the key are cleared
// first, so a shorter rewrite cannot leave stale tail chunks behind.
func (s *Store) PutBlob(storageKey string, r io.Reader) (int, error) {
	size := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := deleteBlobTxn(txn, storageKey); err != nil {
			return err
		}
		for chunk := 0; ; chunk++ {
			b := make([]byte, blobChunkSize)
			read, err := io.ReadFull(r, b)
			if read > 0 {
				size += read
				if err := txn.Set(blobChunkKey(storageKey, chunk), b[:read]); err != nil {
					return err
				}
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// GetBlob reassembles a payload from its chunks. A storage key with no
// chunks returns ErrNotFound.
func (s *Store) GetBlob(storageKey string) ([]byte, error) {
	var buf bytes.Buffer
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := blobPrefix(storageKey)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			found = true
			err := it.Item().Value(func(val []byte) error {
				_, err := buf.Write(val)
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return buf.Bytes(), nil
}

// DeleteBlob removes every chunk of a payload. Deleting an absent blob is
// not an error.
func (s *Store) DeleteBlob(storageKey string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteBlobTxn(txn, storageKey)
	})
}

func deleteBlobTxn(txn *badger.Txn, storageKey string) error {
	keys := make([][]byte, 0)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	prefix := blobPrefix(storageKey)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

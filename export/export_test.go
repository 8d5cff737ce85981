package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/logger"
	"github.com/Arctic1879/file-vault/namespace"
)

func openTestExporter(t *testing.T) (*namespace.Store, *envelope.Codec, *Exporter) {
	t.Helper()

	options := badger.DefaultOptions(t.TempDir())
	options.Logger = &logger.VaultLogger{}

	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store := namespace.NewStore(db, 1<<30)
	codec := envelope.NewCodec("deployment-secret")
	return store, codec, NewExporter(store, codec)
}

func storeFile(t *testing.T, store *namespace.Store, codec *envelope.Codec, owner, parentID, name, password string, payload []byte) *namespace.Node {
	t.Helper()
	r := require.New(t)

	env, err := codec.Encrypt(payload, password)
	r.NoError(err)

	meta := namespace.FileMeta{StorageKey: envelope.DeriveFilename(name)}
	if password != "" {
		meta.SecretHash, err = envelope.HashSecret(password)
		r.NoError(err)
		meta.SecretWrapped, err = codec.WrapSecret(password)
		r.NoError(err)
	}

	_, err = store.PutBlob(meta.StorageKey, bytes.NewReader(env))
	r.NoError(err)

	node, err := store.CreateFile(owner, parentID, name, int64(len(payload)), meta)
	r.NoError(err)
	return node
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	r := require.New(t)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	r.NoError(err)

	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		r.NoError(err)
		payload, err := io.ReadAll(rc)
		r.NoError(err)
		r.NoError(rc.Close())
		out[f.Name] = payload
	}
	return out
}

func TestStreamFullTree(t *testing.T) {
	r := require.New(t)
	store, codec, exporter := openTestExporter(t)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)

	storeFile(t, store, codec, "alice", root.ID, "x.txt", "", []byte("top level"))
	b, err := store.CreateFolder("alice", root.ID, "B")
	r.NoError(err)
	storeFile(t, store, codec, "alice", b.ID, "y.txt", "sekrit", []byte("nested and locked"))

	var buf bytes.Buffer
	report, err := exporter.Stream(context.Background(), root, &buf)
	r.NoError(err)
	r.Equal(3, report.Entries)
	r.Zero(report.Warnings)

	entries := readArchive(t, buf.Bytes())
	r.Len(entries, 3)

	// entry paths are root-relative; payloads come out decrypted, including
	// the secret-protected one
	r.Equal([]byte("top level"), entries["x.txt"])
	r.Contains(entries, "B/")
	r.Equal([]byte("nested and locked"), entries["B/y.txt"])
}

func TestStreamSkipsMissingBlob(t *testing.T) {
	r := require.New(t)
	store, codec, exporter := openTestExporter(t)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)

	storeFile(t, store, codec, "alice", root.ID, "keep.txt", "", []byte("still here"))
	gone := storeFile(t, store, codec, "alice", root.ID, "gone.txt", "", []byte("doomed"))
	r.NoError(store.DeleteBlob(gone.StorageKey))

	var buf bytes.Buffer
	report, err := exporter.Stream(context.Background(), root, &buf)
	r.NoError(err)
	r.Equal(1, report.Entries)
	r.Equal(1, report.Warnings)

	entries := readArchive(t, buf.Bytes())
	r.Equal([]byte("still here"), entries["keep.txt"])
	r.NotContains(entries, "gone.txt")
}

func TestStreamSkipsCorruptBlob(t *testing.T) {
	r := require.New(t)
	store, codec, exporter := openTestExporter(t)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)

	bad := storeFile(t, store, codec, "alice", root.ID, "bad.txt", "", []byte("will be mangled"))

	env, err := store.GetBlob(bad.StorageKey)
	r.NoError(err)
	env[len(env)-1] ^= 0xff
	_, err = store.PutBlob(bad.StorageKey, bytes.NewReader(env))
	r.NoError(err)

	var buf bytes.Buffer
	report, err := exporter.Stream(context.Background(), root, &buf)
	r.NoError(err)
	r.Zero(report.Entries)
	r.Equal(1, report.Warnings)
}

func TestStreamDeterministicOrder(t *testing.T) {
	r := require.New(t)
	store, codec, exporter := openTestExporter(t)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)

	storeFile(t, store, codec, "alice", root.ID, "c.txt", "", []byte("c"))
	storeFile(t, store, codec, "alice", root.ID, "a.txt", "", []byte("a"))
	storeFile(t, store, codec, "alice", root.ID, "b.txt", "", []byte("b"))

	names := func() []string {
		var buf bytes.Buffer
		_, err := exporter.Stream(context.Background(), root, &buf)
		r.NoError(err)

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		r.NoError(err)
		out := make([]string, 0, len(zr.File))
		for _, f := range zr.File {
			out = append(out, f.Name)
		}
		return out
	}

	first := names()
	r.Equal([]string{"a.txt", "b.txt", "c.txt"}, first)
	r.Equal(first, names())
}

func TestStreamRejectsFileRoot(t *testing.T) {
	r := require.New(t)
	store, codec, exporter := openTestExporter(t)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)
	file := storeFile(t, store, codec, "alice", root.ID, "f.txt", "", []byte("f"))

	var buf bytes.Buffer
	_, err = exporter.Stream(context.Background(), file, &buf)
	r.Error(err)
}

func TestStreamHonorsContext(t *testing.T) {
	r := require.New(t)
	store, codec, exporter := openTestExporter(t)

	root, err := store.EnsureHomeRoot("alice")
	r.NoError(err)
	storeFile(t, store, codec, "alice", root.ID, "a.txt", "", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err = exporter.Stream(ctx, root, &buf)
	r.ErrorIs(err, context.Canceled)
}

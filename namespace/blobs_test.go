package namespace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobRoundTrip(t *testing.T) {
	r := require.New(t)
	store := openTestStore(t)

	// spans multiple chunks
	payload := bytes.Repeat([]byte("0123456789abcdef"), 40<<10)

	n, err := store.PutBlob("sk-big", bytes.NewReader(payload))
	r.NoError(err)
	r.Equal(len(payload), n)

	got, err := store.GetBlob("sk-big")
	r.NoError(err)
	r.Equal(payload, got)

	r.NoError(store.DeleteBlob("sk-big"))
	_, err = store.GetBlob("sk-big")
	r.ErrorIs(err, ErrNotFound)

	// deleting an absent blob is not an error
	r.NoError(store.DeleteBlob("sk-big"))
}

func TestPutBlobShorterRewrite(t *testing.T) {
	r := require.New(t)
	store := openTestStore(t)

	long := bytes.Repeat([]byte("x"), blobChunkSize*2+100)
	_, err := store.PutBlob("sk-rw", bytes.NewReader(long))
	r.NoError(err)

	// a shorter rewrite must not leave stale tail chunks behind
	short := []byte("just this")
	_, err = store.PutBlob("sk-rw", bytes.NewReader(short))
	r.NoError(err)

	got, err := store.GetBlob("sk-rw")
	r.NoError(err)
	r.Equal(short, got)
}

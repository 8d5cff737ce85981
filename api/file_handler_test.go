package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/Arctic1879/file-vault/api"
	apiTypes "github.com/Arctic1879/file-vault/api/types"
	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/export"
	"github.com/Arctic1879/file-vault/logger"
	"github.com/Arctic1879/file-vault/namespace"
	"github.com/Arctic1879/file-vault/policy"
)

const owner = "alice"

func newTestRouter(t *testing.T, quota int64) (*mux.Router, *namespace.Store) {
	t.Helper()

	options := badger.DefaultOptions(t.TempDir())
	options.Logger = &logger.VaultLogger{}

	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store := namespace.NewStore(db, quota)
	guard := policy.NewGuard(store)
	codec := envelope.NewCodec("deployment-secret")
	exporter := export.NewExporter(store, codec)

	r := mux.NewRouter()
	r.HandleFunc("/upload", api.UploadHandler(store, guard, codec)).Methods("POST")
	r.HandleFunc("/download/{id}", api.DownloadHandler(store, guard, codec)).Methods("GET")
	r.HandleFunc("/export/{id}", api.ExportHandler(store, exporter)).Methods("GET")
	r.HandleFunc("/files", api.ListFilesHandler(store)).Methods("GET")
	r.HandleFunc("/folders", api.CreateFolderHandler(store)).Methods("POST")
	r.HandleFunc("/files/{id}/rename", api.RenameHandler(store)).Methods("PUT")
	r.HandleFunc("/files/{id}", api.DeleteHandler(store)).Methods("DELETE")
	r.HandleFunc("/storage", api.StorageInfoHandler(store, guard)).Methods("GET")

	return r, store
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, payload []byte) *http.Request {
	t.Helper()
	r := require.New(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	r.NoError(err)
	_, err = fw.Write(payload)
	r.NoError(err)
	for k, v := range fields {
		r.NoError(mw.WriteField(k, v))
	}
	r.NoError(mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(api.OwnerHeader, owner)
	return req
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	r := require.New(t)
	router, _ := newTestRouter(t, 1<<20)

	payload := []byte("the quick brown fox")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, nil, "fox.txt", payload))
	r.Equal(http.StatusCreated, rec.Code)

	var up apiTypes.UploadResponse
	r.NoError(json.Unmarshal(rec.Body.Bytes(), &up))
	r.Equal("fox.txt", up.File.Name)
	r.Equal(int64(len(payload)), up.File.SizeBytes)
	r.Equal("/fox.txt", up.Path)
	r.Equal(int64(len(payload)), up.StorageUsed)
	r.False(up.File.HasSecret)

	req := httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusOK, rec.Code)
	r.Equal(payload, rec.Body.Bytes())
}

func TestUploadWithSecret(t *testing.T) {
	r := require.New(t)
	router, _ := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, map[string]string{"password": "hunter2"}, "locked.txt", []byte("locked payload")))
	r.Equal(http.StatusCreated, rec.Code)

	var up apiTypes.UploadResponse
	r.NoError(json.Unmarshal(rec.Body.Bytes(), &up))
	r.True(up.File.HasSecret)

	// no secret
	req := httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusUnauthorized, rec.Code)

	// wrong secret
	req = httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	req.Header.Set(api.SecretHeader, "hunter3")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusUnauthorized, rec.Code)

	// right secret
	req = httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	req.Header.Set(api.SecretHeader, "hunter2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusOK, rec.Code)
	r.Equal([]byte("locked payload"), rec.Body.Bytes())
}

func TestUploadQuotaDenied(t *testing.T) {
	r := require.New(t)
	router, store := newTestRouter(t, 10)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, nil, "big.bin", bytes.Repeat([]byte("x"), 64)))
	r.Equal(http.StatusRequestEntityTooLarge, rec.Code)

	// nothing was charged or stored
	o, err := store.Owner(owner)
	r.NoError(err)
	r.Zero(o.StorageUsedBytes)
}

func TestDownloadLimit(t *testing.T) {
	r := require.New(t)
	router, _ := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, map[string]string{"max_downloads": "1"}, "once.txt", []byte("one shot")))
	r.Equal(http.StatusCreated, rec.Code)

	var up apiTypes.UploadResponse
	r.NoError(json.Unmarshal(rec.Body.Bytes(), &up))

	req := httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusGone, rec.Code)
}

func TestFolderLifecycle(t *testing.T) {
	r := require.New(t)
	router, _ := newTestRouter(t, 1<<20)

	body, err := json.Marshal(apiTypes.CreateFolderRequest{Name: "docs"})
	r.NoError(err)
	req := httptest.NewRequest("POST", "/folders", bytes.NewReader(body))
	req.Header.Set(api.OwnerHeader, owner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusCreated, rec.Code)

	var folder apiTypes.NodeResponse
	r.NoError(json.Unmarshal(rec.Body.Bytes(), &folder))
	r.True(folder.IsFolder)

	// duplicate name under the same parent
	req = httptest.NewRequest("POST", "/folders", bytes.NewReader(body))
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusConflict, rec.Code)

	renameBody, err := json.Marshal(apiTypes.RenameRequest{NewName: "papers"})
	r.NoError(err)
	req = httptest.NewRequest("PUT", "/files/"+folder.ID+"/rename", bytes.NewReader(renameBody))
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusOK, rec.Code)

	req = httptest.NewRequest("DELETE", "/files/"+folder.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusNoContent, rec.Code)

	req = httptest.NewRequest("DELETE", "/files/"+folder.ID, nil)
	req.Header.Set(api.OwnerHeader, owner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusNotFound, rec.Code)
}

func TestOwnerIsolation(t *testing.T) {
	r := require.New(t)
	router, _ := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, nil, "private.txt", []byte("mine")))
	r.Equal(http.StatusCreated, rec.Code)

	var up apiTypes.UploadResponse
	r.NoError(json.Unmarshal(rec.Body.Bytes(), &up))

	// another owner cannot see the node at all
	req := httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	req.Header.Set(api.OwnerHeader, "mallory")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusNotFound, rec.Code)

	// and no owner header at all is rejected outright
	req = httptest.NewRequest("GET", "/download/"+up.File.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	r.Equal(http.StatusUnauthorized, rec.Code)
}

func TestMissingFileRejected(t *testing.T) {
	r := require.New(t)
	router, _ := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, nil, "empty.txt", nil))
	r.Equal(http.StatusBadRequest, rec.Code)
}

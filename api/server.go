package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	jsoniter "github.com/json-iterator/go"

	"github.com/Arctic1879/file-vault/api/types"
	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/export"
	"github.com/Arctic1879/file-vault/namespace"
	"github.com/Arctic1879/file-vault/policy"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OwnerHeader carries the authenticated principal id, supplied by the
// upstream auth layer. The vault itself mints no identities.
const OwnerHeader = "X-Owner"

// SecretHeader carries an optional per-object access secret on download.
const SecretHeader = "X-Access-Secret"

type API struct {
	port int64
	srv  *http.Server
}

func NewAPI(port int64) *API {
	return &API{
		port: port,
	}
}

func (a *API) Close() error {
	if a.srv == nil {
		return fmt.Errorf("no server available")
	}
	return a.srv.Close()
}

func (a *API) Serve(store *namespace.Store, guard *policy.Guard, codec *envelope.Codec, exporter *export.Exporter) {
	defer log.Info().Msg("API module stopped")
	r := mux.NewRouter()

	outline := types.NewOutline()

	outline.RegisterGetRoute(r, "/", IndexHandler())

	outline.RegisterPostRoute(r, "/upload", UploadHandler(store, guard, codec))
	outline.RegisterGetRoute(r, "/download/{id}", DownloadHandler(store, guard, codec))
	outline.RegisterGetRoute(r, "/export/{id}", ExportHandler(store, exporter))

	outline.RegisterGetRoute(r, "/files", ListFilesHandler(store))
	outline.RegisterPostRoute(r, "/folders", CreateFolderHandler(store))
	outline.RegisterPutRoute(r, "/files/{id}/rename", RenameHandler(store))
	outline.RegisterDeleteRoute(r, "/files/{id}", DeleteHandler(store))

	outline.RegisterGetRoute(r, "/storage", StorageInfoHandler(store, guard))

	outline.RegisterGetRoute(r, "/api", outline.OutlineHandler())

	r.Handle("/metrics", promhttp.Handler())
	r.Use(loggingMiddleware)

	handler := cors.Default().Handler(r)

	a.srv = &http.Server{
		Handler:      handler,
		Addr:         fmt.Sprintf("0.0.0.0:%d", a.port),
		WriteTimeout: 300 * time.Second,
		ReadTimeout:  600 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Msg(fmt.Sprintf("File Vault API now listening on %s", a.srv.Addr))
	err := a.srv.ListenAndServe()
	if err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err)
			return
		}
	}
}

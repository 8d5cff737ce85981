package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/api/types"
	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/namespace"
	"github.com/Arctic1879/file-vault/policy"
)

// const MaxFileSize = 32 << 30
const MaxFileSize = 0

func nodeResponse(n *namespace.Node) types.NodeResponse {
	return types.NodeResponse{
		ID:            n.ID,
		Name:          n.DisplayName,
		IsFolder:      n.IsFolder,
		ParentID:      n.ParentID,
		ContentType:   n.ContentType,
		SizeBytes:     n.SizeBytes,
		DownloadCount: n.DownloadCount,
		DownloadLimit: n.DownloadLimit,
		ExpiresAt:     n.ExpiresAt,
		HasSecret:     len(n.SecretHash) > 0,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

// UploadHandler accepts a multipart upload. Form fields: file (required),
// folder_id (defaults to the home root), password, max_downloads,
// expires_in (days). Flow: quota admission, encrypt, store blob, charge
// quota, insert node; a failure after the blob write rolls both back.
func UploadHandler(store *namespace.Store, guard *policy.Guard, codec *envelope.Codec) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		owner, ok := ownerFrom(req, w)
		if !ok {
			return
		}

		err := req.ParseMultipartForm(MaxFileSize)
		if err != nil {
			handleErr(fmt.Errorf("cannot parse form: %w", err), w, http.StatusBadRequest)
			return
		}

		file, fh, err := req.FormFile("file")
		if err != nil {
			handleErr(fmt.Errorf("cannot get file from form: %w", err), w, http.StatusBadRequest)
			return
		}

		if fh.Size == 0 {
			handleErr(fmt.Errorf("file cannot be empty"), w, http.StatusBadRequest)
			return
		}

		root, err := store.EnsureHomeRoot(owner)
		if err != nil {
			handleDomainErr(err, w)
			return
		}
		parentID := req.Form.Get("folder_id")
		if parentID == "" {
			parentID = root.ID
		}

		// deny before any encryption or storage work
		if err := guard.AdmitUpload(owner, fh.Size); err != nil {
			handleDomainErr(err, w)
			return
		}

		password := req.Form.Get("password")

		var downloadLimit int64
		if v := req.Form.Get("max_downloads"); v != "" {
			downloadLimit, err = strconv.ParseInt(v, 10, 64)
			if err != nil || downloadLimit < 0 {
				handleErr(fmt.Errorf("cannot parse max_downloads"), w, http.StatusBadRequest)
				return
			}
		}

		var expiresAt *time.Time
		if v := req.Form.Get("expires_in"); v != "" {
			days, err := strconv.ParseInt(v, 10, 64)
			if err != nil || days <= 0 {
				handleErr(fmt.Errorf("cannot parse expires_in"), w, http.StatusBadRequest)
				return
			}
			t := time.Now().AddDate(0, 0, int(days))
			expiresAt = &t
		}

		plaintext, err := io.ReadAll(file)
		if err != nil {
			handleErr(fmt.Errorf("cannot read upload: %w", err), w, http.StatusBadRequest)
			return
		}

		env, err := codec.Encrypt(plaintext, password)
		if err != nil {
			handleErr(fmt.Errorf("cannot encrypt upload: %w", err), w, http.StatusInternalServerError)
			return
		}

		meta := namespace.FileMeta{
			StorageKey:    envelope.DeriveFilename(fh.Filename),
			ContentType:   fh.Header.Get("Content-Type"),
			DownloadLimit: downloadLimit,
			ExpiresAt:     expiresAt,
		}
		if password != "" {
			meta.SecretHash, err = envelope.HashSecret(password)
			if err != nil {
				handleErr(fmt.Errorf("cannot hash secret: %w", err), w, http.StatusInternalServerError)
				return
			}
			meta.SecretWrapped, err = codec.WrapSecret(password)
			if err != nil {
				handleErr(fmt.Errorf("cannot wrap secret: %w", err), w, http.StatusInternalServerError)
				return
			}
		}

		if _, err := store.PutBlob(meta.StorageKey, bytes.NewReader(env)); err != nil {
			handleErr(fmt.Errorf("failed to write blob: %w", err), w, http.StatusInternalServerError)
			return
		}

		// single commit point; re-checked under the owner lock
		if err := guard.CommitUpload(owner, fh.Size); err != nil {
			if delErr := store.DeleteBlob(meta.StorageKey); delErr != nil {
				log.Error().Err(delErr).Str("storage_key", meta.StorageKey).Msg("failed to roll back blob")
			}
			handleDomainErr(err, w)
			return
		}

		node, err := store.CreateFile(owner, parentID, fh.Filename, fh.Size, meta)
		if err != nil {
			if relErr := guard.ReleaseBytes(owner, fh.Size); relErr != nil {
				log.Error().Err(relErr).Str("owner", owner).Msg("failed to roll back quota")
			}
			if delErr := store.DeleteBlob(meta.StorageKey); delErr != nil {
				log.Error().Err(delErr).Str("storage_key", meta.StorageKey).Msg("failed to roll back blob")
			}
			handleDomainErr(err, w)
			return
		}

		o, err := store.Owner(owner)
		if err != nil {
			handleDomainErr(err, w)
			return
		}
		path, err := store.ResolvePath(node.ID)
		if err != nil {
			handleDomainErr(err, w)
			return
		}

		resp := types.UploadResponse{
			File:         nodeResponse(node),
			Path:         namespace.RenderPath(path),
			StorageUsed:  o.StorageUsedBytes,
			StorageLimit: o.StorageLimitBytes,
		}

		w.WriteHeader(http.StatusCreated)
		err = json.NewEncoder(w).Encode(resp)
		if err != nil {
			log.Error().Err(fmt.Errorf("can't encode json : %w", err))
		}
	}
}

// DownloadHandler decrypts and returns a single file. An access secret, if
// the object has one, arrives in the X-Access-Secret header.
func DownloadHandler(store *namespace.Store, guard *policy.Guard, codec *envelope.Codec) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		owner, ok := ownerFrom(req, w)
		if !ok {
			return
		}

		vars := mux.Vars(req)
		node, err := store.GetNode(vars["id"])
		if err != nil {
			handleDomainErr(err, w)
			return
		}
		if node.OwnerID != owner {
			handleDomainErr(namespace.ErrNotFound, w)
			return
		}
		if node.IsFolder {
			handleErr(fmt.Errorf("cannot download a folder directly"), w, http.StatusBadRequest)
			return
		}

		secret := req.Header.Get(SecretHeader)
		if err := guard.CheckAccess(node, secret); err != nil {
			handleDomainErr(err, w)
			return
		}
		if err := guard.CheckAvailability(node); err != nil {
			handleDomainErr(err, w)
			return
		}

		env, err := store.GetBlob(node.StorageKey)
		if err != nil {
			handleDomainErr(err, w)
			return
		}

		passphrase := ""
		if len(node.SecretHash) > 0 {
			passphrase = secret
		}
		plaintext, err := codec.Decrypt(env, passphrase)
		if err != nil {
			handleDomainErr(err, w)
			return
		}

		// the limit was re-checked at the increment; a concurrent download
		// may have consumed the last slot since CheckAvailability
		if err := guard.RecordDownload(node.ID); err != nil {
			handleDomainErr(err, w)
			return
		}

		w.Header().Set("Content-Type", node.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", node.DisplayName))
		w.Header().Set("Content-Length", strconv.Itoa(len(plaintext)))
		_, _ = w.Write(plaintext)
	}
}

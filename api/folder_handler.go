package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/api/types"
	"github.com/Arctic1879/file-vault/export"
	"github.com/Arctic1879/file-vault/namespace"
	"github.com/Arctic1879/file-vault/policy"
)

// ListFilesHandler lists a folder's children. Without a folder query
// parameter it returns only the owner's home root, which is also how a new
// owner's tree gets created.
func ListFilesHandler(store *namespace.Store) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		owner, ok := ownerFrom(req, w)
		if !ok {
			return
		}

		folderID := req.URL.Query().Get("folder")
		if folderID == "" {
			root, err := store.EnsureHomeRoot(owner)
			if err != nil {
				handleDomainErr(err, w)
				return
			}
			err = json.NewEncoder(w).Encode([]types.NodeResponse{nodeResponse(root)})
			if err != nil {
				log.Error().Err(err)
			}
			return
		}

		folder, err := store.GetNode(folderID)
		if err != nil {
			handleDomainErr(err, w)
			return
		}
		if folder.OwnerID != owner || !folder.IsFolder {
			handleDomainErr(namespace.ErrNotFound, w)
			return
		}

		children, err := store.ListChildren(owner, folderID)
		if err != nil {
			handleDomainErr(err, w)
			return
		}

		out := make([]types.NodeResponse, 0, len(children))
		for _, c := range children {
			out = append(out, nodeResponse(c))
		}
		err = json.NewEncoder(w).Encode(out)
		if err != nil {
			log.Error().Err(err)
		}
	}
}

func CreateFolderHandler(store *namespace.Store) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		owner, ok := ownerFrom(req, w)
		if !ok {
			return
		}

		var body types.CreateFolderRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			handleErr(fmt.Errorf("cannot parse body: %w", err), w, http.StatusBadRequest)
			return
		}

		root, err := store.EnsureHomeRoot(owner)
		if err != nil {
			handleDomainErr(err, w)
			return
		}
		parentID := body.ParentID
		if parentID == "" {
			parentID = root.ID
		}

		folder, err := store.CreateFolder(owner, parentID, body.Name)
		if err != nil {
			handleDomainErr(err, w)
			return
		}

		w.WriteHeader(http.StatusCreated)
		err = json.NewEncoder(w).Encode(nodeResponse(folder))
		if err != nil {
			log.Error().Err(err)
		}
	}
}

func RenameHandler(store *namespace.Store) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		owner, ok := ownerFrom(req, w)
		if !ok {
			return
		}

		var body types.RenameRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			handleErr(fmt.Errorf("cannot parse body: %w", err), w, http.StatusBadRequest)
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

		renamed, err := store.Rename(node.ID, body.NewName)
		if err != nil {
			handleDomainErr(err, w)
			return
		}

		err = json.NewEncoder(w).Encode(nodeResponse(renamed))
		if err != nil {
			log.Error().Err(err)
		}
	}
}

// DeleteHandler removes a node; for folders the whole subtree goes, blobs
// and quota included.
func DeleteHandler(store *namespace.Store) func(http.ResponseWriter, *http.Request) {
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

		if err := store.DeleteSubtree(node.ID); err != nil {
			handleDomainErr(err, w)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func StorageInfoHandler(store *namespace.Store, guard *policy.Guard) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		owner, ok := ownerFrom(req, w)
		if !ok {
			return
		}

		if _, err := store.EnsureHomeRoot(owner); err != nil {
			handleDomainErr(err, w)
			return
		}

		o, err := store.Owner(owner)
		if err != nil {
			handleDomainErr(err, w)
			return
		}

		resp := types.StorageResponse{
			Used:      o.StorageUsedBytes,
			Limit:     o.StorageLimitBytes,
			Available: o.StorageLimitBytes - o.StorageUsedBytes,
		}
		err = json.NewEncoder(w).Encode(resp)
		if err != nil {
			log.Error().Err(err)
		}
	}
}

// ExportHandler streams a folder subtree as a zip archive with every payload
// decrypted. The export holds no lock; objects that vanish or fail to
// decrypt mid-walk are skipped with a warning. A stream failure aborts the
// response so the client never sees a truncated archive presented as
// complete.
func ExportHandler(store *namespace.Store, exporter *export.Exporter) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		owner, ok := ownerFrom(req, w)
		if !ok {
			return
		}

		vars := mux.Vars(req)
		folder, err := store.GetNode(vars["id"])
		if err != nil {
			handleDomainErr(err, w)
			return
		}
		if folder.OwnerID != owner || !folder.IsFolder {
			handleDomainErr(namespace.ErrNotFound, w)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", folder.DisplayName+".zip"))

		report, err := exporter.Stream(req.Context(), folder, w)
		if err != nil {
			log.Error().Err(err).Str("folder", folder.ID).Msg("export aborted")
			panic(http.ErrAbortHandler)
		}

		log.Info().
			Str("folder", folder.ID).
			Int("entries", report.Entries).
			Int("warnings", report.Warnings).
			Msg("folder exported")
	}
}

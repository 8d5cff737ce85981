package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/api/types"
	"github.com/Arctic1879/file-vault/namespace"
	"github.com/Arctic1879/file-vault/policy"
)

func handleErr(err error, w http.ResponseWriter, code int) {
	v := types.ErrorResponse{
		Error: err.Error(),
	}
	w.WriteHeader(code)
	err = json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Error().Err(err)
	}
}

// handleDomainErr maps the error taxonomy onto HTTP statuses.
func handleDomainErr(err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, namespace.ErrNotFound):
		handleErr(err, w, http.StatusNotFound)
	case errors.Is(err, namespace.ErrNameCollision):
		handleErr(err, w, http.StatusConflict)
	case errors.Is(err, namespace.ErrInvalidName):
		handleErr(err, w, http.StatusBadRequest)
	case errors.Is(err, policy.ErrQuotaExceeded):
		handleErr(err, w, http.StatusRequestEntityTooLarge)
	case errors.Is(err, policy.ErrWrongSecret):
		handleErr(err, w, http.StatusUnauthorized)
	case errors.Is(err, policy.ErrExpired), errors.Is(err, policy.ErrDownloadLimitReached):
		handleErr(err, w, http.StatusGone)
	default:
		handleErr(err, w, http.StatusInternalServerError)
	}
}

// ownerFrom extracts the authenticated owner id set by the upstream auth
// layer. Requests without one are rejected. Owner ids participate in index
// keys, so separators are not allowed.
func ownerFrom(req *http.Request, w http.ResponseWriter) (string, bool) {
	owner := req.Header.Get(OwnerHeader)
	if owner == "" {
		handleErr(errors.New("missing owner header"), w, http.StatusUnauthorized)
		return "", false
	}
	if strings.ContainsAny(owner, "/\\") {
		handleErr(errors.New("invalid owner id"), w, http.StatusBadRequest)
		return "", false
	}
	return owner, true
}

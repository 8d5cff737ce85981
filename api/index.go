package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/api/types"
	"github.com/Arctic1879/file-vault/config"
)

func IndexHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		v := types.IndexResponse{
			Status:  "online",
			Version: config.Version(),
		}

		err := json.NewEncoder(w).Encode(v)
		if err != nil {
			log.Error().Err(err)
			return
		}
	}
}

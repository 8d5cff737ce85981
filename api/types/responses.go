package types

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type IndexResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type NodeResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	IsFolder      bool       `json:"is_folder"`
	ParentID      string     `json:"parent_id,omitempty"`
	ContentType   string     `json:"content_type,omitempty"`
	SizeBytes     int64      `json:"size_bytes"`
	DownloadCount int64      `json:"download_count"`
	DownloadLimit int64      `json:"download_limit,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	HasSecret     bool       `json:"has_secret"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type UploadResponse struct {
	File         NodeResponse `json:"file"`
	Path         string       `json:"path"`
	StorageUsed  int64        `json:"storage_used"`
	StorageLimit int64        `json:"storage_limit"`
}

type StorageResponse struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Available int64 `json:"available"`
}

type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type RenameRequest struct {
	NewName string `json:"new_name"`
}

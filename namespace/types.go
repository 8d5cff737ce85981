package namespace

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("node not found")
	ErrNameCollision = errors.New("a sibling with this name already exists")
	ErrInvalidName   = errors.New("invalid display name")

	// ErrCycleDetected means a parent walk exceeded the maximum plausible
	// depth. The tree invariants forbid cycles, so hitting this bound
	// indicates a corrupted graph.
	ErrCycleDetected = errors.New("parent chain exceeds maximum depth")
)

// MaxDepth bounds every parent-chain and subtree walk.
const MaxDepth = 128

const maxNameLen = 255

const reservedNameChars = `/\<>:"|?*`

// Node is a single file or folder in an owner's tree. A folder's SizeBytes is
// the aggregate of its direct children; a file's is its plaintext length.
type Node struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	DisplayName string `json:"display_name"`

	// StorageKey and ContentType are set iff the node is a file.
	StorageKey  string `json:"storage_key,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	SizeBytes int64 `json:"size_bytes"`

	// SecretHash verifies a caller-supplied access secret; SecretWrapped is
	// the same secret sealed under the deployment secret for export. Both
	// are empty when the object has no secret.
	SecretHash    []byte `json:"secret_hash,omitempty"`
	SecretWrapped []byte `json:"secret_wrapped,omitempty"`

	DownloadLimit int64      `json:"download_limit,omitempty"`
	DownloadCount int64      `json:"download_count"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`

	IsFolder   bool `json:"is_folder"`
	IsHomeRoot bool `json:"is_home_root"`

	// ParentID is empty only for a home root.
	ParentID string `json:"parent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Owner is the quota record for one principal.
type Owner struct {
	ID                string    `json:"id"`
	StorageLimitBytes int64     `json:"storage_limit_bytes"`
	StorageUsedBytes  int64     `json:"storage_used_bytes"`
	HomeRootID        string    `json:"home_root_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FileMeta carries the file-only fields of a new node.
type FileMeta struct {
	StorageKey    string
	ContentType   string
	SecretHash    []byte
	SecretWrapped []byte
	DownloadLimit int64
	ExpiresAt     *time.Time
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLen {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, reservedNameChars) {
		return ErrInvalidName
	}
	return nil
}

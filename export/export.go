package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/namespace"
)

// Exporter streams a folder subtree into a single zip archive with every
// payload decrypted. Traversal is depth-first in lexical name order, so
// repeated exports of an unchanged tree produce identical entry sequences.
type Exporter struct {
	store *namespace.Store
	codec *envelope.Codec
}

func NewExporter(store *namespace.Store, codec *envelope.Codec) *Exporter {
	return &Exporter{store: store, codec: codec}
}

// Report summarizes a finished export.
type Report struct {
	Entries  int
	Warnings int
}

// Stream writes the subtree rooted at root into w as a zip archive. Entry
// paths are relative to root; root itself emits no entry. One file's payload
// is decrypted and written at a time, so peak memory is bounded by the
// largest single file rather than the subtree total.
//
// An object whose blob is missing or undecryptable is skipped with a warning
// so the rest of the tree stays retrievable. A write failure on w, or ctx
// cancellation, aborts the whole export with an error; the caller must then
// terminate the output stream abnormally rather than close it as complete.
func (e *Exporter) Stream(ctx context.Context, root *namespace.Node, w io.Writer) (*Report, error) {
	if !root.IsFolder {
		return nil, fmt.Errorf("export root %s is not a folder", root.ID)
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	report := &Report{}
	if err := e.walk(ctx, zw, root, "", 0, report); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	log.Info().
		Str("root", root.ID).
		Int("entries", report.Entries).
		Int("warnings", report.Warnings).
		Msg("export finished")

	return report, nil
}

func (e *Exporter) walk(ctx context.Context, zw *zip.Writer, folder *namespace.Node, relPath string, depth int, report *Report) error {
	if depth >= namespace.MaxDepth {
		return namespace.ErrCycleDetected
	}

	children, err := e.store.ListChildren(folder.OwnerID, folder.ID)
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}

		childPath := child.DisplayName
		if relPath != "" {
			childPath = relPath + "/" + child.DisplayName
		}

		if child.IsFolder {
			if _, err := zw.Create(childPath + "/"); err != nil {
				return fmt.Errorf("write directory entry: %w", err)
			}
			report.Entries++
			if err := e.walk(ctx, zw, child, childPath, depth+1, report); err != nil {
				return err
			}
			continue
		}

		if err := e.writeFile(zw, child, childPath, report); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeFile(zw *zip.Writer, node *namespace.Node, relPath string, report *Report) error {
	env, err := e.store.GetBlob(node.StorageKey)
	if err != nil {
		if errors.Is(err, namespace.ErrNotFound) {
			log.Warn().Str("node", node.ID).Str("path", relPath).Msg("blob missing, skipping in export")
			report.Warnings++
			exportWarnings.Inc()
			return nil
		}
		return err
	}

	passphrase := ""
	if len(node.SecretWrapped) > 0 {
		passphrase, err = e.codec.UnwrapSecret(node.SecretWrapped)
		if err != nil {
			log.Warn().Err(err).Str("node", node.ID).Str("path", relPath).Msg("cannot unwrap secret, skipping in export")
			report.Warnings++
			exportWarnings.Inc()
			return nil
		}
	}

	plaintext, err := e.codec.Decrypt(env, passphrase)
	if err != nil {
		log.Warn().Err(err).Str("node", node.ID).Str("path", relPath).Msg("cannot decrypt object, skipping in export")
		report.Warnings++
		exportWarnings.Inc()
		return nil
	}

	hdr := &zip.FileHeader{
		Name:     relPath,
		Method:   zip.Deflate,
		Modified: node.UpdatedAt,
	}
	entry, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("write file entry: %w", err)
	}
	if _, err := entry.Write(plaintext); err != nil {
		return fmt.Errorf("write file payload: %w", err)
	}
	report.Entries++
	return nil
}

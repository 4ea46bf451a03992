package blob

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/warp/toolroom/inventory"
)

// FS writes photos under a root directory. References are BaseURL joined
// with the relative key, so the API can serve them from /photos.
type FS struct {
	root    string
	baseURL string
	log     *slog.Logger
}

var _ inventory.PhotoStore = (*FS)(nil)

// NewFS creates root if needed.
func NewFS(root, baseURL string, log *slog.Logger) (*FS, error) {
	if root == "" {
		root = "./photos"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &FS{root: root, baseURL: baseURL, log: log}, nil
}

// Root is the directory photos are written to.
func (s *FS) Root() string { return s.root }

// SavePhoto writes data to <root>/<folder>/<operationID><ext>.
func (s *FS) SavePhoto(_ context.Context, data []byte, folder, operationID string) string {
	if len(data) == 0 {
		return ""
	}
	k, err := key(folder, operationID, data)
	if err != nil {
		s.log.Warn("photo rejected", "operation_id", operationID, "err", err)
		return ""
	}
	p := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		s.log.Error("photo dir create failed", "operation_id", operationID, "err", err)
		return ""
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		s.log.Error("photo write failed", "operation_id", operationID, "err", err)
		return ""
	}
	return ref(s.baseURL, k)
}

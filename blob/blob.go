// Package blob stores checkout and return photos. Every driver implements
// inventory.PhotoStore: failures are logged and reported as an empty
// reference, never returned.
package blob

import (
	"fmt"
	"net/http"
	"path"
	"strings"
)

// key builds "<folder>/<operationID><ext>", the extension sniffed from data.
func key(folder, operationID string, data []byte) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	id := strings.TrimSpace(operationID)
	if folder == "" || id == "" {
		return "", fmt.Errorf("folder and operation id are required")
	}
	if strings.ContainsAny(folder+id, `\`) || strings.Contains(folder+id, "..") || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid photo key %q/%q", folder, id)
	}
	return path.Join(folder, id+extension(contentType(data))), nil
}

func contentType(data []byte) string {
	return http.DetectContentType(data)
}

func extension(ct string) string {
	switch ct {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

// ref joins a public base with a key. An empty base yields the bare key.
func ref(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + key
}

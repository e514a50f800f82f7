// Package fileid fingerprints captured files so the inbox never captures the same file twice.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const prefix = "file:"

// Fingerprint returns a stable id for a file version: the cleaned absolute path plus its
// size and modification time. Editing the file yields a new fingerprint.
func Fingerprint(absolutePath string, info os.FileInfo) string {
	normalized := filepath.Clean(absolutePath)
	key := fmt.Sprintf("%s\x00%d\x00%d", normalized, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(key))
	return prefix + hex.EncodeToString(hash[:])
}

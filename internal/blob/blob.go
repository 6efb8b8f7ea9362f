// Package blob abstracts the object-storage backend holding compressed
// scratch-database archives: one fully-replaced archive per agent, addressed
// by a deterministic sharded key. The filesystem implementation is the
// default backend; other backends only need Get/Put/Delete.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
)

// ErrNotFound is returned by Get for keys with no stored object.
var ErrNotFound = errors.New("blob: not found")

// Store is the object-storage surface this subsystem needs. Put fully
// replaces any prior object under the key; there is no append or versioning.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the object; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ArchiveKey derives the deterministic, hierarchically-sharded key for an
// agent's scratch archive. Hashing keeps arbitrary agent identifiers safe as
// path segments and spreads archives across prefixes.
func ArchiveKey(agentID string) string {
	sum := sha256.Sum256([]byte(agentID))
	digest := hex.EncodeToString(sum[:])
	return path.Join("scratch", digest[:2], digest[2:4], digest+".db.zst")
}

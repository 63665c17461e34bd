package store

import (
	"crypto/sha256"
	"fmt"
)

// ContentHash is the change-detection hash stored in files.hash. Source
// files whose hash is unchanged are not re-analyzed.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

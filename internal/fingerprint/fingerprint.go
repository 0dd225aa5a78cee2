package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"

	billy "github.com/go-git/go-billy/v5"
	"github.com/zeebo/blake3"
)

const (
	// BlockSize is the read chunk used while hashing. Memory use is
	// bounded by this regardless of file size.
	BlockSize = 1 << 20

	// PrefixLen is the number of hex characters used for the short,
	// URL-embedded form of a digest.
	PrefixLen = 7
)

// Sum streams r through a BLAKE3 hasher in BlockSize chunks and
// returns the hex-encoded 256-bit digest. Byte-identical content
// produces identical digests regardless of how the reader chunks.
func Sum(r io.Reader) (string, error) {
	h := blake3.New()
	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File hashes the named file on fsys.
func File(fsys billy.Filesystem, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }() // safe to ignore

	digest, err := Sum(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", name, err)
	}
	return digest, nil
}

// Prefix returns the short URL form of a hex digest.
func Prefix(digest string) string {
	if len(digest) < PrefixLen {
		return digest
	}
	return digest[:PrefixLen]
}

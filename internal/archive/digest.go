package archive

import (
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

const digestPrefix = "blake3:"

// Digest hashes r with BLAKE3 and returns "blake3:<hex>".
func Digest(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return formatDigest(h.Sum(nil)), nil
}

// DigestBytes is Digest over an in-memory buffer.
func DigestBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return formatDigest(sum[:])
}

// DigestFile is Digest over the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Digest(f)
}

// ValidDigest reports whether s has the "blake3:<64 hex>" shape.
func ValidDigest(s string) bool {
	hexPart, ok := strings.CutPrefix(s, digestPrefix)
	if !ok || len(hexPart) != 64 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

func formatDigest(sum []byte) string {
	return digestPrefix + hex.EncodeToString(sum)
}

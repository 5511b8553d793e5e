package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// HashPrefix tags digests produced by this package.
const HashPrefix = "sha256:"

// HashBytes returns the prefixed SHA256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// HashJSON hashes a JSON document independent of insignificant whitespace.
// Invalid JSON is hashed as-is.
func HashJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return HashBytes(raw)
	}
	return HashBytes(buf.Bytes())
}

// IsHash reports whether s is a SHA256 hex digest, with or without the prefix.
func IsHash(s string) bool {
	s = strings.TrimPrefix(s, HashPrefix)
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

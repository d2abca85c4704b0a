// Package token generates the single-use submission tokens issued with
// each composition form to guard against double posting.
package token

import (
	"crypto/rand"
	"encoding/base64"
)

const TokenLength = 32 // bytes

// Generate creates a cryptographically secure random token
func Generate() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize produces the comparison form of a fact text or message.
// Compatibility forms and full-width/half-width variants are folded (NFKC + width fold),
// case is folded, punctuation and quotes at either end are trimmed and runs of
// whitespace collapse to a single space.
//
// Two strings are "the same fact" iff their normalized forms are equal, and a key
// "appears in" a message iff its normalized form is a substring of the message's.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	// Casers are stateful; one per call.
	s = cases.Fold().String(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(s), " ")
}

// HashUserRef turns a user identifier (phone number, handle) into an opaque reference.
// Already-hashed refs are returned unchanged so the function is idempotent.
func HashUserRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "anonymous"
	}
	if strings.HasPrefix(ref, userRefPrefix) && len(ref) == len(userRefPrefix)+userRefHexLen {
		return ref
	}
	h := sha256.Sum256([]byte(ref))
	return userRefPrefix + hex.EncodeToString(h[:])[:userRefHexLen]
}

const (
	userRefPrefix = "u_"
	userRefHexLen = 16
)

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

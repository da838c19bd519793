package helpers

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AnswerCommitment returns the lowercase hex keccak-256 commitment of an
// answer. The answer is normalized (trimmed, lowercased) first so equivalent
// spellings commit identically.
func AnswerCommitment(answer string) string {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	digest := sha3.NewLegacyKeccak256()
	digest.Write([]byte(normalized))
	return hex.EncodeToString(digest.Sum(nil))
}

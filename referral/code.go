package referral

import (
	"regexp"
	"strings"
)

const (
	codePrefix = "REF"
	codeLength = 8
)

var codePattern = regexp.MustCompile(`^REF[A-Z0-9]{8}$`)

// GenerateCode derives a user's referral code: "REF" plus the first eight
// characters of the id with hyphens removed, uppercased. The same id always
// yields the same code. Codes are not checked for collisions.
func GenerateCode(userID string) string {
	compact := strings.ReplaceAll(userID, "-", "")
	if len(compact) > codeLength {
		compact = compact[:codeLength]
	}
	return codePrefix + strings.ToUpper(compact)
}

// NormalizeCode trims and uppercases code and checks its shape.
func NormalizeCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(normalized) {
		return "", ErrInvalidFormat
	}
	return normalized, nil
}

package identity

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Lobby passcodes are short shared secrets, hashed with bcrypt.
const (
	minPasscodeLen = 4
	maxPasscodeLen = 64
)

// HashPasscode validates and hashes a lobby passcode.
func HashPasscode(p string) (string, error) {
	if n := utf8.RuneCountInString(p); n < minPasscodeLen || n > maxPasscodeLen {
		return "", fmt.Errorf("passcode must be %d-%d characters", minPasscodeLen, maxPasscodeLen)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost) // cost=10
	return string(b), err
}

// CheckPasscode is a bcrypt verifier. An empty hash accepts anything.
func CheckPasscode(hash, p string) bool {
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

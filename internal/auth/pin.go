package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPINLength = 4

	// DefaultCost is the bcrypt cost used for stored PINs.
	DefaultCost = bcrypt.DefaultCost
)

var ErrWeakPIN = fmt.Errorf("pin must be at least %d characters", MinPINLength)

// HashPIN returns the bcrypt hash stored for a user.
func HashPIN(pin string, cost int) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hashed), nil
}

func CheckPIN(hash, pin string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	return err == nil
}

func ValidatePIN(pin string) error {
	if len(strings.TrimSpace(pin)) < MinPINLength {
		return ErrWeakPIN
	}
	return nil
}

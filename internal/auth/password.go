package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// operatorHashCost is the bcrypt work factor for operator account passwords.
const operatorHashCost = 12

// HashPassword hashes an operator password for storage on the users table.
// Each call salts independently, so equal passwords produce distinct hashes.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), operatorHashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword compares a stored hash against a candidate password. A nil
// error means they match.
func CheckPassword(storedHash, candidate string) error {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate))
}

package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const secretBytes = 32

// GenerateSecret returns a 256-bit random value encoded as hex. Used
// for pairing secrets and session access tokens.
func GenerateSecret() (string, error) {
	bytes := make([]byte, secretBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// DeriveDeviceID derives a stable device identifier from a session
// token hash. Two sessions never share a device id unless they share
// the token itself.
func DeriveDeviceID(tokenHash string) string {
	hash := sha256.Sum256([]byte("device:" + tokenHash))
	return hex.EncodeToString(hash[:16])
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func MaskCode(code string) string {
	if len(code) <= 2 {
		return "******"
	}
	return code[:2] + "****"
}

func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:8] + "..."
}

package utils

import (
	"crypto/rand"
	"math/big"
	"net/mail"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost        = 12
	MinPasswordLength = 8

	AccessCodeLength = 8
	accessCodeAlpha  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// GenerateAccessCode returns AccessCodeLength uniformly random characters from A-Z0-9.
func GenerateAccessCode() (string, error) {
	limit := big.NewInt(int64(len(accessCodeAlpha)))
	code := make([]byte, AccessCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		code[i] = accessCodeAlpha[n.Int64()]
	}
	return string(code), nil
}

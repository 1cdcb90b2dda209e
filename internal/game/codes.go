package game

import (
	"crypto/rand"
	"math/big"
)

const (
	CodeLength   = 6
	codeAttempts = 100
	codeDigits   = "0123456789"
)

// GenerateCode returns a random numeric join code.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeDigits))))
		if err != nil {
			return "", err
		}
		code[i] = codeDigits[num.Int64()]
	}
	return string(code), nil
}

func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

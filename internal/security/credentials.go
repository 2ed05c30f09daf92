package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	AppKeyLength    = 32
	AppSecretLength = 64
)

// RandomString returns n characters drawn uniformly from letters and digits.
func RandomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}

// GenerateAppCredentials returns a new broker key/secret pair.
func GenerateAppCredentials() (key, secret string, err error) {
	if key, err = RandomString(AppKeyLength); err != nil {
		return "", "", err
	}
	if secret, err = RandomString(AppSecretLength); err != nil {
		return "", "", err
	}
	return key, secret, nil
}

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength   = 8
	referralCodeAttempts = 5
)

// GenerateReferralCode returns a random uppercase alphanumeric code.
func GenerateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	b := make([]byte, referralCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func (s *Service) uniqueReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return "", err
		}
		taken, err := s.repo.ExistsByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique referral code after %d attempts", referralCodeAttempts)
}

package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"

	"rentmate/pkg/model"
)

// generateOtp draws uniformly from [10^(digits-1), 10^digits), so a code
// never starts with 0.
func generateOtp(digits int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return n.Add(n, low).String(), nil
}

// newOtpStage draws the three codes independently. Any one of them verifies
// the meeting.
func newOtpStage(digits int) (model.OtpStage, error) {
	var codes [3]string
	for i := range codes {
		code, err := generateOtp(digits)
		if err != nil {
			return model.OtpStage{}, err
		}
		codes[i] = code
	}
	return model.OtpStage{RenterOtp: codes[0], HostOtp: codes[1], CommonOtp: codes[2]}, nil
}

func otpMatches(stage model.OtpStage, submitted string) bool {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false
	}

	matched := 0
	for _, code := range []string{stage.RenterOtp, stage.HostOtp, stage.CommonOtp} {
		if code == "" {
			continue
		}
		matched |= subtle.ConstantTimeCompare([]byte(code), []byte(submitted))
	}
	return matched == 1
}

package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"billing/internal/domain"
	"billing/internal/notify"
)

const otpTTL = 10 * time.Minute

// OTPService issues and verifies one-time codes for customer
// registration. Codes live in memory; a restart invalidates pending
// codes, which only costs the customer a resend.
type OTPService struct {
	SMS *notify.SMSClient

	mu    sync.Mutex
	codes map[string]otpEntry
}

type otpEntry struct {
	code    string
	expires time.Time
}

func NewOTPService(sms *notify.SMSClient) *OTPService {
	return &OTPService{SMS: sms, codes: make(map[string]otpEntry)}
}

// Issue generates a 6-digit code for the mobile number and texts it.
func (s *OTPService) Issue(ctx context.Context, mobile string) error {
	code, err := randomCode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.codes[mobile] = otpEntry{code: code, expires: time.Now().Add(otpTTL)}
	s.mu.Unlock()

	msg := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	if err := s.SMS.Send(ctx, msg, []string{mobile}); err != nil {
		return domain.ExternalServiceError{Service: "sms", Err: err}
	}
	return nil
}

// Verify consumes the code; a code works exactly once.
func (s *OTPService) Verify(mobile, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[mobile]
	if !ok || time.Now().After(entry.expires) || entry.code != code {
		return false
	}
	delete(s.codes, mobile)
	return true
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

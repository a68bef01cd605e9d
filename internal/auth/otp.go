package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"riskdesk/internal/config"
	"riskdesk/internal/models"
	"riskdesk/internal/notify"
	"riskdesk/internal/repository"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrRateLimited     = errors.New("too many code requests, try again later")
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new code")
)

// OTPService implements the emailed one-time-code login flow. Codes are
// stored bcrypt-hashed; the plaintext exists only in the outbound email.
type OTPService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Email  *notify.EmailClient
	Config config.AuthConfig
}

func (s *OTPService) codeLength() int {
	if s.Config.OTPLength <= 0 {
		return 6
	}
	return s.Config.OTPLength
}

func (s *OTPService) ttl() time.Duration {
	if s.Config.OTPTTL <= 0 {
		return 10 * time.Minute
	}
	return s.Config.OTPTTL
}

func (s *OTPService) maxRequestsPerHour() int {
	if s.Config.MaxRequestsPerHour <= 0 {
		return 3
	}
	return s.Config.MaxRequestsPerHour
}

func (s *OTPService) maxVerifyAttempts() int {
	if s.Config.MaxVerifyAttempts <= 0 {
		return 5
	}
	return s.Config.MaxVerifyAttempts
}

// RequestCode generates, stores and emails a fresh code. At most
// maxRequestsPerHour codes per address per rolling hour.
func (s *OTPService) RequestCode(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	count, err := s.Repo.CountOTPCodesSince(ctx, email, now.Add(-time.Hour))
	if err != nil {
		return err
	}
	if count >= int64(s.maxRequestsPerHour()) {
		return ErrRateLimited
	}

	code, err := randomDigits(s.codeLength())
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.Repo.InsertOTPCode(ctx, &models.OTPCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if s.Email.Enabled() {
		subject := "Your login code"
		text := fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, int(s.ttl().Minutes()))
		if err := s.Email.SendMail(ctx, email, subject, text); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("otp email send failed", zap.String("email", email), zap.Error(err))
			}
			return err
		}
	} else if s.Logger != nil {
		// Dev mode only: no provider configured, surface the code in logs.
		s.Logger.Info("otp code issued without email provider", zap.String("email", email))
	}
	return nil
}

// VerifyCode checks a submitted code against the latest unconsumed code for
// the address. Every failed compare burns an attempt; past the cap the code
// is dead even if the right code arrives next.
func (s *OTPService) VerifyCode(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidCode
	}

	rec, err := s.Repo.GetLatestOTPCode(ctx, email)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if rec == nil || rec.ConsumedAt != nil || now.After(rec.ExpiresAt) {
		return ErrInvalidCode
	}
	if rec.Attempts >= s.maxVerifyAttempts() {
		return ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		if err := s.Repo.IncrementOTPAttempts(ctx, rec.ID); err != nil && s.Logger != nil {
			s.Logger.Warn("otp attempt bump failed", zap.Uint64("otp_id", rec.ID), zap.Error(err))
		}
		return ErrInvalidCode
	}

	return s.Repo.ConsumeOTPCode(ctx, rec.ID, now)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

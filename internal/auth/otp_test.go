package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"riskdesk/internal/config"
	"riskdesk/internal/models"
	"riskdesk/internal/repository"
)

// otpStubRepo embeds the interface so only the OTP methods need bodies.
type otpStubRepo struct {
	repository.Repository

	codes  map[uint64]*models.OTPCode
	nextID uint64
}

func newOTPStubRepo() *otpStubRepo {
	return &otpStubRepo{codes: map[uint64]*models.OTPCode{}}
}

func (r *otpStubRepo) InsertOTPCode(ctx context.Context, item *models.OTPCode) error {
	r.nextID++
	cp := *item
	cp.ID = r.nextID
	r.codes[cp.ID] = &cp
	item.ID = cp.ID
	return nil
}

func (r *otpStubRepo) GetLatestOTPCode(ctx context.Context, email string) (*models.OTPCode, error) {
	var latest *models.OTPCode
	for _, c := range r.codes {
		if c.Email == email && (latest == nil || c.ID > latest.ID) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *otpStubRepo) CountOTPCodesSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var n int64
	for _, c := range r.codes {
		if c.Email == email && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *otpStubRepo) IncrementOTPAttempts(ctx context.Context, id uint64) error {
	if c, ok := r.codes[id]; ok {
		c.Attempts++
	}
	return nil
}

func (r *otpStubRepo) ConsumeOTPCode(ctx context.Context, id uint64, at time.Time) error {
	if c, ok := r.codes[id]; ok {
		stamp := at
		c.ConsumedAt = &stamp
	}
	return nil
}

func seedCode(r *otpStubRepo, email, code string, expiresAt time.Time) *models.OTPCode {
	hash, _ := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	item := &models.OTPCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	_ = r.InsertOTPCode(context.Background(), item)
	return item
}

func TestRequestCodeRateLimit(t *testing.T) {
	repo := newOTPStubRepo()
	svc := &OTPService{Repo: repo, Config: config.AuthConfig{MaxRequestsPerHour: 3}}

	for i := 0; i < 3; i++ {
		if err := svc.RequestCode(context.Background(), "trader@example.com"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	err := svc.RequestCode(context.Background(), "trader@example.com")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("fourth request err = %v, want ErrRateLimited", err)
	}
	// A different address is unaffected.
	if err := svc.RequestCode(context.Background(), "other@example.com"); err != nil {
		t.Fatalf("other address: %v", err)
	}
}

func TestRequestCodeRejectsMalformedEmail(t *testing.T) {
	svc := &OTPService{Repo: newOTPStubRepo()}
	for _, bad := range []string{"", "   ", "not-an-email", "a b@example.com"} {
		if err := svc.RequestCode(context.Background(), bad); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("RequestCode(%q) err = %v, want ErrInvalidEmail", bad, err)
		}
	}
}

func TestVerifyCodeHappyPath(t *testing.T) {
	repo := newOTPStubRepo()
	svc := &OTPService{Repo: repo}
	seeded := seedCode(repo, "trader@example.com", "123456", time.Now().UTC().Add(10*time.Minute))

	if err := svc.VerifyCode(context.Background(), "Trader@Example.com ", "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if repo.codes[seeded.ID].ConsumedAt == nil {
		t.Fatalf("code not consumed")
	}
	// A consumed code cannot be replayed.
	if err := svc.VerifyCode(context.Background(), "trader@example.com", "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("replay err = %v, want ErrInvalidCode", err)
	}
}

func TestVerifyCodeExpiry(t *testing.T) {
	repo := newOTPStubRepo()
	svc := &OTPService{Repo: repo}
	seedCode(repo, "trader@example.com", "123456", time.Now().UTC().Add(-time.Minute))

	if err := svc.VerifyCode(context.Background(), "trader@example.com", "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expired code err = %v, want ErrInvalidCode", err)
	}
}

func TestVerifyCodeAttemptCap(t *testing.T) {
	repo := newOTPStubRepo()
	svc := &OTPService{Repo: repo, Config: config.AuthConfig{MaxVerifyAttempts: 3}}
	seeded := seedCode(repo, "trader@example.com", "123456", time.Now().UTC().Add(10*time.Minute))

	for i := 0; i < 3; i++ {
		if err := svc.VerifyCode(context.Background(), "trader@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("wrong code %d err = %v, want ErrInvalidCode", i, err)
		}
	}
	// The cap burns the code: even the right code is refused now.
	err := svc.VerifyCode(context.Background(), "trader@example.com", "123456")
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("post-cap err = %v, want ErrTooManyAttempts", err)
	}
	if repo.codes[seeded.ID].ConsumedAt != nil {
		t.Fatalf("burned code was consumed")
	}
}

package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/trailborn/tours-api/internal/domain"
)

func TestChangedPasswordAfter(t *testing.T) {
	issued := time.Now()

	u := domain.User{}
	if u.ChangedPasswordAfter(issued) {
		t.Error("no change recorded, token must stay valid")
	}

	before := issued.Add(-time.Hour)
	u.PasswordChangedAt = &before
	if u.ChangedPasswordAfter(issued) {
		t.Error("change before issuance must not invalidate the token")
	}

	after := issued.Add(time.Hour)
	u.PasswordChangedAt = &after
	if !u.ChangedPasswordAfter(issued) {
		t.Error("change after issuance must invalidate the token")
	}
}

func TestUserJSONHidesSensitiveFields(t *testing.T) {
	expires := time.Now()
	token := "hash"
	changed := time.Now()
	u := domain.User{
		ID: 1, Name: "Leo", Email: "leo@example.com",
		PasswordHash:         "secret-hash",
		PasswordResetToken:   &token,
		PasswordResetExpires: &expires,
		PasswordChangedAt:    &changed,
		Active:               true,
	}

	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(raw)

	if strings.Contains(out, "secret-hash") {
		t.Error("password hash leaked")
	}
	for _, forbidden := range []string{"password", "reset", "active"} {
		if strings.Contains(strings.ToLower(out), forbidden) {
			t.Errorf("serialized user exposes %q: %s", forbidden, out)
		}
	}
}

func TestSignupRequestValidate(t *testing.T) {
	valid := domain.SignupRequest{
		Name: "Leo", Email: "leo@example.com",
		Password: "pass1234", PasswordConfirm: "pass1234",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*domain.SignupRequest)
	}{
		{"missing name", func(r *domain.SignupRequest) { r.Name = "" }},
		{"bad email", func(r *domain.SignupRequest) { r.Email = "not-an-email" }},
		{"short password", func(r *domain.SignupRequest) { r.Password = "short"; r.PasswordConfirm = "short" }},
		{"mismatch", func(r *domain.SignupRequest) { r.PasswordConfirm = "other9999" }},
	}
	for _, c := range cases {
		req := valid
		c.mutate(&req)
		if err := req.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := domain.NormalizeEmail("  Leo@Example.COM "); got != "leo@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

package auth

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAccountPublicProjection(t *testing.T) {
	id := uuid.New()
	account := &Account{
		ID:           id,
		Role:         RoleRegular,
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		PasswordHash: "$2a$14$abcdefghijklmnopqrstuv",
	}

	public := account.Public()

	if public.ID != id.String() {
		t.Fatalf("expected id %q, got %q", id.String(), public.ID)
	}
	if public.Name != "Jane Doe" {
		t.Fatalf("expected name %q, got %q", "Jane Doe", public.Name)
	}
	if public.Email != "jane@example.com" {
		t.Fatalf("expected email %q, got %q", "jane@example.com", public.Email)
	}
	if public.Role != "regular" {
		t.Fatalf("expected role %q, got %q", "regular", public.Role)
	}
}

func TestAccountNeverSerializesCredentials(t *testing.T) {
	account := &Account{
		Name:              "Jane Doe",
		Email:             "jane@example.com",
		PasswordHash:      "$2a$14$abcdefghijklmnopqrstuv",
		ResetPasswordLink: "pending-reset-token",
	}

	raw, err := json.Marshal(account)
	if err != nil {
		t.Fatal(err)
	}

	body := string(raw)
	if strings.Contains(body, account.PasswordHash) {
		t.Fatalf("password hash leaked into JSON: %s", body)
	}
	if strings.Contains(body, account.ResetPasswordLink) {
		t.Fatalf("reset link leaked into JSON: %s", body)
	}
}

func TestNewUsername(t *testing.T) {
	cases := []struct {
		name   string
		email  string
		prefix string
	}{
		{
			name:   "uses the local part",
			email:  "jane@example.com",
			prefix: "jane-",
		},
		{
			name:   "handles missing at sign",
			email:  "jane",
			prefix: "jane-",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			username := NewUsername(tc.email)
			if !strings.HasPrefix(username, tc.prefix) {
				t.Fatalf("expected prefix %q, got %q", tc.prefix, username)
			}
			if len(username) <= len(tc.prefix) {
				t.Fatalf("expected a random suffix, got %q", username)
			}
		})
	}

	if NewUsername("jane@example.com") == NewUsername("jane@example.com") {
		t.Fatal("expected distinct usernames for repeated emails")
	}
}

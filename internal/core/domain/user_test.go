package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserToSummary(t *testing.T) {
	now := time.Now()
	user := &User{
		ID:           "user-123",
		Email:        "virk@adonisjs.com",
		PasswordHash: "secret-hash",
		Name:         "Virk",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	summary := user.ToSummary()

	if summary.ID != user.ID {
		t.Errorf("expected ID %s, got %s", user.ID, summary.ID)
	}
	if summary.Email != user.Email {
		t.Errorf("expected Email %s, got %s", user.Email, summary.Email)
	}
	if summary.Name != user.Name {
		t.Errorf("expected Name %s, got %s", user.Name, summary.Name)
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	user := &User{
		ID:           "user-123",
		Email:        "virk@adonisjs.com",
		PasswordHash: "secret-hash",
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Errorf("password hash leaked into JSON: %s", data)
	}
}

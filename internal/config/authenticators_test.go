package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authenticators.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadAuthenticators(t *testing.T) {
	t.Setenv("JWT_SECRET", "bubblegum")

	yamlContent := `
default: api
authenticators:
  api:
    scheme: api
    serializer: postgres
    token_type: personal_access_token
  jwt:
    scheme: jwt
    serializer: redis
    secret: ${JWT_SECRET}
    options:
      expires_in: 1h
      leeway: 30s
      issuer: latchkey
      audience:
        - web
        - mobile
`
	path := writeTemp(t, yamlContent)

	configs, defaultName, err := LoadAuthenticators(path, "postgres")
	if err != nil {
		t.Fatalf("LoadAuthenticators() error: %v", err)
	}

	if defaultName != "api" {
		t.Errorf("default = %q, want \"api\"", defaultName)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 authenticators, got %d", len(configs))
	}

	api := configs["api"]
	if api.Scheme != domain.SchemeAPI {
		t.Errorf("api.scheme = %q, want \"api\"", api.Scheme)
	}
	if api.Serializer != "postgres" {
		t.Errorf("api.serializer = %q, want \"postgres\"", api.Serializer)
	}
	if api.TokenType != "personal_access_token" {
		t.Errorf("api.token_type = %q, want \"personal_access_token\"", api.TokenType)
	}

	jwt := configs["jwt"]
	if jwt.Secret != "bubblegum" {
		t.Errorf("jwt.secret = %q, want the expanded env value", jwt.Secret)
	}
	if jwt.Options.ExpiresIn != time.Hour {
		t.Errorf("jwt.options.expires_in = %v, want 1h", jwt.Options.ExpiresIn)
	}
	if jwt.Options.Leeway != 30*time.Second {
		t.Errorf("jwt.options.leeway = %v, want 30s", jwt.Options.Leeway)
	}
	if jwt.Options.Issuer != "latchkey" {
		t.Errorf("jwt.options.issuer = %q, want \"latchkey\"", jwt.Options.Issuer)
	}
	if len(jwt.Options.Audience) != 2 || jwt.Options.Audience[0] != "web" {
		t.Errorf("jwt.options.audience = %v, want [web mobile]", jwt.Options.Audience)
	}
}

func TestLoadAuthenticators_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	configs, defaultName, err := LoadAuthenticators(path, "redis")
	if err != nil {
		t.Fatalf("LoadAuthenticators() error: %v", err)
	}

	if defaultName != "api" {
		t.Errorf("default = %q, want \"api\"", defaultName)
	}
	api, ok := configs["api"]
	if !ok {
		t.Fatal("expected the fallback api authenticator")
	}
	if api.Serializer != "redis" {
		t.Errorf("fallback serializer = %q, want \"redis\"", api.Serializer)
	}
}

func TestLoadAuthenticators_SingleEntryImplicitDefault(t *testing.T) {
	yamlContent := `
authenticators:
  tokens:
    scheme: api
    serializer: postgres
`
	path := writeTemp(t, yamlContent)

	_, defaultName, err := LoadAuthenticators(path, "postgres")
	if err != nil {
		t.Fatalf("LoadAuthenticators() error: %v", err)
	}
	if defaultName != "tokens" {
		t.Errorf("default = %q, want the sole entry \"tokens\"", defaultName)
	}
}

func TestLoadAuthenticators_UnknownDefault(t *testing.T) {
	yamlContent := `
default: web
authenticators:
  api:
    scheme: api
    serializer: postgres
`
	path := writeTemp(t, yamlContent)

	_, _, err := LoadAuthenticators(path, "postgres")
	if err == nil {
		t.Fatal("expected an error for an undefined default")
	}
	if !strings.Contains(err.Error(), "web") {
		t.Errorf("expected the undefined name in the error, got %v", err)
	}
}

func TestLoadAuthenticators_InvalidScheme(t *testing.T) {
	yamlContent := `
default: ldap
authenticators:
  ldap:
    scheme: ldap
    serializer: postgres
`
	path := writeTemp(t, yamlContent)

	_, _, err := LoadAuthenticators(path, "postgres")
	if err == nil {
		t.Fatal("expected an error for an unknown scheme")
	}
}

func TestLoadAuthenticators_MissingJWTSecret(t *testing.T) {
	yamlContent := `
default: jwt
authenticators:
  jwt:
    scheme: jwt
    serializer: postgres
`
	path := writeTemp(t, yamlContent)

	_, _, err := LoadAuthenticators(path, "postgres")
	if err == nil {
		t.Fatal("expected an error for a jwt authenticator without a secret")
	}
	if !strings.Contains(err.Error(), "secret") {
		t.Errorf("expected a secret error, got %v", err)
	}
}

func TestLoadAuthenticators_BadDuration(t *testing.T) {
	yamlContent := `
default: jwt
authenticators:
  jwt:
    scheme: jwt
    serializer: postgres
    secret: bubblegum
    options:
      expires_in: soon
`
	path := writeTemp(t, yamlContent)

	_, _, err := LoadAuthenticators(path, "postgres")
	if err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
	if !strings.Contains(err.Error(), "expires_in") {
		t.Errorf("expected the field name in the error, got %v", err)
	}
}

func TestLoadAuthenticators_EmptyRegistry(t *testing.T) {
	path := writeTemp(t, "default: api\n")

	_, _, err := LoadAuthenticators(path, "postgres")
	if err == nil {
		t.Fatal("expected an error for an empty registry")
	}
}

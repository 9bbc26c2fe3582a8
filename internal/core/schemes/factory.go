package schemes

import (
	"fmt"
	"sync"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driving"
)

// Factory builds request-scoped schemes from authenticator configurations.
// It maintains a registry of named serializers shared by every scheme
// instance; the schemes themselves are created fresh per request.
type Factory struct {
	mu          sync.RWMutex
	serializers map[string]driven.Serializer
	cipher      driven.TokenCipher
}

// NewFactory creates a scheme factory.
func NewFactory(cipher driven.TokenCipher) *Factory {
	return &Factory{
		serializers: make(map[string]driven.Serializer),
		cipher:      cipher,
	}
}

// RegisterSerializer registers a storage backend under a configuration name.
func (f *Factory) RegisterSerializer(name string, serializer driven.Serializer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serializers[name] = serializer
}

// Serializer returns the backend registered under name.
func (f *Factory) Serializer(name string) (driven.Serializer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	serializer, ok := f.serializers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSerializer, name)
	}
	return serializer, nil
}

// SerializerNames returns all registered backend names.
func (f *Factory) SerializerNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.serializers))
	for name := range f.serializers {
		names = append(names, name)
	}
	return names
}

// Make builds a scheme bound to one request from the given configuration.
func (f *Factory) Make(cfg domain.AuthenticatorConfig, request driven.Request) (driving.Scheme, error) {
	serializer, err := f.Serializer(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	switch cfg.Scheme {
	case domain.SchemeSession:
		return NewSessionScheme(cfg, serializer, request), nil
	case domain.SchemeJWT:
		return NewJWTScheme(cfg, serializer, f.cipher, request)
	case domain.SchemeAPI:
		return NewAPIScheme(cfg, serializer, f.cipher, request), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownScheme, cfg.Scheme)
	}
}

// Validate checks an authenticator configuration without binding a request.
// It surfaces at startup the construction failures Make would otherwise hit
// on the first request.
func (f *Factory) Validate(cfg domain.AuthenticatorConfig) error {
	if _, err := f.Serializer(cfg.Serializer); err != nil {
		return err
	}

	switch cfg.Scheme {
	case domain.SchemeSession, domain.SchemeAPI:
		return nil
	case domain.SchemeJWT:
		_, err := NewJWTScheme(cfg, nil, f.cipher, nil)
		return err
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownScheme, cfg.Scheme)
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
)

// authenticatorsFile mirrors the YAML layout of the authenticator registry:
//
//	default: api
//	authenticators:
//	  api:
//	    scheme: api
//	    serializer: postgres
//	  jwt:
//	    scheme: jwt
//	    serializer: postgres
//	    secret: ${JWT_SECRET}
//	    options:
//	      expires_in: 1h
//
// Environment references like ${JWT_SECRET} are expanded before parsing so
// secrets stay out of the file.
type authenticatorsFile struct {
	Default        string                        `yaml:"default"`
	Authenticators map[string]authenticatorEntry `yaml:"authenticators"`
}

type authenticatorEntry struct {
	Scheme     string           `yaml:"scheme"`
	Serializer string           `yaml:"serializer"`
	UID        string           `yaml:"uid"`
	Password   string           `yaml:"password"`
	Secret     string           `yaml:"secret"`
	TokenType  string           `yaml:"token_type"`
	HeaderKey  string           `yaml:"header_key"`
	InputKey   string           `yaml:"input_key"`
	Options    signOptionsEntry `yaml:"options"`
}

type signOptionsEntry struct {
	ExpiresIn   string   `yaml:"expires_in"`
	NotBefore   string   `yaml:"not_before"`
	Leeway      string   `yaml:"leeway"`
	Issuer      string   `yaml:"issuer"`
	Audience    []string `yaml:"audience"`
	Algorithm   string   `yaml:"algorithm"`
	IdentityKey string   `yaml:"identity_key"`
}

// LoadAuthenticators reads the authenticator registry from path. A missing
// file is not an error: the fallback is a single api authenticator over the
// given serializer, so a bare deployment works without any YAML.
func LoadAuthenticators(path, fallbackSerializer string) (map[string]domain.AuthenticatorConfig, string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultAuthenticators(fallbackSerializer), "api", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading authenticators file %s: %w", path, err)
	}

	var file authenticatorsFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, "", fmt.Errorf("parsing authenticators file %s: %w", path, err)
	}

	if len(file.Authenticators) == 0 {
		return nil, "", fmt.Errorf("authenticators file %s defines no authenticators", path)
	}

	configs := make(map[string]domain.AuthenticatorConfig, len(file.Authenticators))
	for name, entry := range file.Authenticators {
		cfg, err := entry.toConfig()
		if err != nil {
			return nil, "", fmt.Errorf("authenticator %q: %w", name, err)
		}
		configs[name] = cfg
	}

	defaultName := file.Default
	if defaultName == "" && len(configs) == 1 {
		for name := range configs {
			defaultName = name
		}
	}
	if _, ok := configs[defaultName]; !ok {
		return nil, "", fmt.Errorf("default authenticator %q is not defined", defaultName)
	}

	return configs, defaultName, nil
}

// DefaultAuthenticators is the registry used when no YAML file exists: one
// api authenticator over the given serializer.
func DefaultAuthenticators(serializer string) map[string]domain.AuthenticatorConfig {
	return map[string]domain.AuthenticatorConfig{
		"api": {Scheme: domain.SchemeAPI, Serializer: serializer},
	}
}

func (e authenticatorEntry) toConfig() (domain.AuthenticatorConfig, error) {
	var errs []error

	switch e.Scheme {
	case domain.SchemeSession, domain.SchemeJWT, domain.SchemeAPI:
		// valid
	default:
		errs = append(errs, fmt.Errorf("scheme must be \"session\", \"jwt\", or \"api\", got %q", e.Scheme))
	}
	if e.Serializer == "" {
		errs = append(errs, errors.New("serializer is required"))
	}
	if e.Scheme == domain.SchemeJWT && e.Secret == "" {
		errs = append(errs, errors.New("secret is required for the jwt scheme"))
	}

	expiresIn, err := parseDuration("options.expires_in", e.Options.ExpiresIn)
	if err != nil {
		errs = append(errs, err)
	}
	notBefore, err := parseDuration("options.not_before", e.Options.NotBefore)
	if err != nil {
		errs = append(errs, err)
	}
	leeway, err := parseDuration("options.leeway", e.Options.Leeway)
	if err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return domain.AuthenticatorConfig{}, err
	}

	return domain.AuthenticatorConfig{
		Scheme:     e.Scheme,
		Serializer: e.Serializer,
		UID:        e.UID,
		Password:   e.Password,
		Secret:     e.Secret,
		TokenType:  e.TokenType,
		HeaderKey:  e.HeaderKey,
		InputKey:   e.InputKey,
		Options: domain.SignOptions{
			ExpiresIn:   expiresIn,
			NotBefore:   notBefore,
			Leeway:      leeway,
			Issuer:      e.Options.Issuer,
			Audience:    e.Options.Audience,
			Algorithm:   e.Options.Algorithm,
			IdentityKey: e.Options.IdentityKey,
		},
	}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, value)
	}
	return d, nil
}

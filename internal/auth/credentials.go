// Package auth resolves the bearer credential presented to the backend.
// Providers read their source on every call and never cache.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"jobpilot/internal/config"
	"jobpilot/internal/errors"

	"github.com/zalando/go-keyring"
)

// Provider yields the current bearer token
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Static returns a fixed token
type Static string

func (s Static) Token(context.Context) (string, error) {
	return nonEmpty(string(s), "static token")
}

// Env reads the token from an environment variable
type Env struct {
	Name string
}

func (e Env) Token(context.Context) (string, error) {
	return nonEmpty(os.Getenv(e.Name), "environment variable "+e.Name)
}

// File reads the token from a file
type File struct {
	Path string
}

func (f File) Token(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", errors.NewAuthError(errors.ErrCodeMissingCredential, "cannot read token file", err).
			WithContext("path", f.Path)
	}
	return nonEmpty(string(data), "token file "+f.Path)
}

// Keyring reads the token from the OS keychain
type Keyring struct {
	Service string
	Account string
}

func (k Keyring) Token(context.Context) (string, error) {
	token, err := keyring.Get(k.Service, k.Account)
	if err != nil {
		return "", errors.NewAuthError(errors.ErrCodeMissingCredential,
			"no token in keyring (run 'jobpilot login')", err)
	}
	return nonEmpty(token, "keyring")
}

// Store saves a token to the keyring
func (k Keyring) Store(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "token is empty", nil)
	}
	if err := keyring.Set(k.Service, k.Account, token); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to store token in keyring", err)
	}
	return nil
}

// Remove deletes the token from the keyring; a missing entry is not an error
func (k Keyring) Remove() error {
	if err := keyring.Delete(k.Service, k.Account); err != nil && err != keyring.ErrNotFound {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to remove token from keyring", err)
	}
	return nil
}

// SecretReader reads a string field from a secret store
type SecretReader interface {
	GetStringSecret(ctx context.Context, path, key string) (string, error)
}

// Vault reads the token from a KVv2 secret
type Vault struct {
	Reader SecretReader
	Path   string
	Key    string
}

func (v Vault) Token(ctx context.Context) (string, error) {
	token, err := v.Reader.GetStringSecret(ctx, v.Path, v.Key)
	if err != nil {
		return "", errors.NewAuthError(errors.ErrCodeMissingCredential, "cannot read token from vault", err).
			WithContext("path", v.Path)
	}
	return nonEmpty(token, "vault secret "+v.Path)
}

func nonEmpty(token, source string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.NewAuthError(errors.ErrCodeMissingCredential,
			fmt.Sprintf("no credential found in %s", source), nil)
	}
	return token, nil
}

// NewProvider builds the provider selected by cfg.Source.
// vault may be nil unless the source is "vault".
func NewProvider(cfg config.AuthConfig, vault SecretReader) (Provider, error) {
	switch cfg.Source {
	case "static":
		return Static(cfg.Token), nil
	case "env", "":
		return Env{Name: cfg.TokenEnv}, nil
	case "file":
		if cfg.TokenFile == "" {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "auth.tokenFile is required for the file source", nil)
		}
		return File{Path: cfg.TokenFile}, nil
	case "keyring":
		return KeyringFor(cfg), nil
	case "vault":
		if vault == nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "vault source selected but vault is not configured", nil)
		}
		return Vault{Reader: vault, Path: cfg.VaultPath, Key: cfg.VaultKey}, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "unknown auth source: "+cfg.Source, nil)
	}
}

// KeyringFor returns the keyring entry configured in cfg
func KeyringFor(cfg config.AuthConfig) Keyring {
	return Keyring{Service: cfg.Keyring.Service, Account: cfg.Keyring.Account}
}

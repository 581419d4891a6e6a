package gitsync

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"casework-hq/auditexport/pkg/config"
)

// AuthProvider supplies transport credentials for clone and pull.
type AuthProvider interface {
	// Auth returns the transport auth method, or nil for anonymous access.
	Auth() (transport.AuthMethod, error)

	// Type names the provider for logging.
	Type() string
}

// TokenAuth authenticates over HTTPS with an access token.
type TokenAuth struct {
	token string
}

// Auth returns basic auth carrying the token as password.
func (a *TokenAuth) Auth() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	return &http.BasicAuth{Username: "git", Password: a.token}, nil
}

// Type returns "token".
func (a *TokenAuth) Type() string { return "token" }

// BasicAuth authenticates over HTTPS with a username and password.
type BasicAuth struct {
	username string
	password string
}

// Auth returns HTTP basic auth.
func (a *BasicAuth) Auth() (transport.AuthMethod, error) {
	if a.username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	return &http.BasicAuth{Username: a.username, Password: a.password}, nil
}

// Type returns "basic".
func (a *BasicAuth) Type() string { return "basic" }

// SSHAuth authenticates with a private key file.
type SSHAuth struct {
	keyPath    string
	passphrase string
}

// Auth loads the key. The key file must not be readable by group or others.
func (a *SSHAuth) Auth() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}

	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

// Type returns "ssh".
func (a *SSHAuth) Type() string { return "ssh" }

// NoAuth is used for public or local repositories.
type NoAuth struct{}

// Auth returns nil.
func (NoAuth) Auth() (transport.AuthMethod, error) { return nil, nil }

// Type returns "none".
func (NoAuth) Type() string { return "none" }

// NewAuthProvider builds the provider named by cfg.Type.
func NewAuthProvider(cfg *config.GitAuthConfig) (AuthProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config cannot be nil")
	}

	switch cfg.Type {
	case "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires non-empty token")
		}
		return &TokenAuth{token: cfg.Token}, nil
	case "basic":
		if cfg.Username == "" {
			return nil, fmt.Errorf("basic auth requires username")
		}
		return &BasicAuth{username: cfg.Username, password: cfg.Password}, nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		return &SSHAuth{keyPath: cfg.SSHKeyPath, passphrase: cfg.SSHKeyPassphrase}, nil
	case "none", "":
		return NoAuth{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}

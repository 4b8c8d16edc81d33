package gateway

import (
	"context"
	"errors"
	"strings"
)

// ErrNoCredential is returned before any request is sent when no API token is
// available for the caller.
var ErrNoCredential = errors.New("no api credential")

// CredentialProvider supplies the bearer token for one outgoing request.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, mostly for tooling and tests.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoCredential
	}
	return string(s), nil
}

type tokenKey struct{}

// WithToken attaches the caller's API token to ctx. The HTTP layer does this
// after resolving the admin session.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// SessionCredentials reads the token placed on the context by WithToken.
type SessionCredentials struct{}

func (SessionCredentials) Token(ctx context.Context) (string, error) {
	token, _ := ctx.Value(tokenKey{}).(string)
	if strings.TrimSpace(token) == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

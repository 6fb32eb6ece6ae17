// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package source

import (
	"context"
	"os"
	"strings"
)

// TokenSource supplies the bearer token for backend requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, typically from config.
type StaticToken string

// Token returns the token or ErrNoToken when empty.
func (t StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(t))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// EnvToken reads the token from the named environment variable on every
// call, so a rotated token is picked up without restarting.
type EnvToken string

func (e EnvToken) Token(ctx context.Context) (string, error) {
	return StaticToken(os.Getenv(string(e))).Token(ctx)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Package auth signs users in and out against the hosted auth provider.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gastos/internal/core"
)

// Tokens is what a successful sign-in yields.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         core.User
}

// Provider is the auth surface the web shell consumes.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Tokens, error)
	SignUp(ctx context.Context, email, password, fullName string) error
	SignOut(ctx context.Context, accessToken string) error
}

// Error carries a message the provider returned, fit to show the user.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

var errNoMessage = errors.New("auth provider returned no message")

// providerMessage extracts the human message from a provider error. The
// provider client formats failures as "response status code N: <json body>".
func providerMessage(err error) string {
	if err == nil {
		return ""
	}
	raw := err.Error()
	if i := strings.Index(raw, "{"); i >= 0 {
		var body struct {
			Msg              string `json:"msg"`
			Message          string `json:"message"`
			ErrorDescription string `json:"error_description"`
			Error            string `json:"error"`
		}
		if json.Unmarshal([]byte(raw[i:]), &body) == nil {
			for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
				if m != "" {
					return m
				}
			}
		}
	}
	return raw
}

// call runs a blocking provider call while honouring ctx.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gastos/internal/core"

	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

// Supabase implements Provider with Supabase GoTrue.
type Supabase struct {
	client *supabase.Client
	ttl    time.Duration
}

var _ Provider = (*Supabase)(nil)

// NewSupabase creates the provider client. ttl is used when the provider
// does not report an expiry.
func NewSupabase(url, anonKey string, ttl time.Duration) (*Supabase, error) {
	client, err := supabase.NewClient(url, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{client: client, ttl: ttl}, nil
}

func (s *Supabase) SignIn(ctx context.Context, email, password string) (Tokens, error) {
	resp, err := call(ctx, func() (*types.TokenResponse, error) {
		return s.client.Auth.Token(types.TokenRequest{
			GrantType: "password",
			Email:     strings.TrimSpace(email),
			Password:  password,
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return Tokens{}, err
		}
		return Tokens{}, &Error{Message: providerMessage(err), Err: err}
	}
	if resp == nil || resp.AccessToken == "" {
		return Tokens{}, &Error{Message: "Respuesta de autenticación inválida", Err: errNoMessage}
	}
	return tokensFromSession(resp.Session, s.ttl, time.Now()), nil
}

func (s *Supabase) SignUp(ctx context.Context, email, password, fullName string) error {
	_, err := call(ctx, func() (*types.SignupResponse, error) {
		return s.client.Auth.Signup(types.SignupRequest{
			Email:    strings.TrimSpace(email),
			Password: password,
			Data:     map[string]interface{}{"full_name": strings.TrimSpace(fullName)},
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return &Error{Message: providerMessage(err), Err: err}
	}
	return nil
}

func (s *Supabase) SignOut(ctx context.Context, accessToken string) error {
	_, err := call(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Auth.WithToken(accessToken).Logout()
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func tokensFromSession(sess types.Session, ttl time.Duration, now time.Time) Tokens {
	expires := now.Add(ttl)
	switch {
	case sess.ExpiresAt > 0:
		expires = time.Unix(sess.ExpiresAt, 0).UTC()
	case sess.ExpiresIn > 0:
		expires = now.Add(time.Duration(sess.ExpiresIn) * time.Second)
	}

	fullName, _ := sess.User.UserMetadata["full_name"].(string)
	return Tokens{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    expires,
		User: core.User{
			ID:       sess.User.ID.String(),
			Email:    sess.User.Email,
			FullName: fullName,
		},
	}
}

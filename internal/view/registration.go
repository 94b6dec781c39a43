package view

import (
	"context"
	"strings"

	"gastos/internal/core"
	"gastos/internal/log"
)

const minPasswordLength = 6

// SignUpper creates accounts with the auth provider.
type SignUpper interface {
	SignUp(ctx context.Context, email, password, fullName string) error
}

type RegistrationDraft struct {
	FullName string
	Email    string
	Password string
}

// Retained is the draft shown again after a failure. The password is
// never echoed back.
func (d RegistrationDraft) Retained() RegistrationDraft {
	d.Password = ""
	return d
}

// Registration is the sign-up form. It needs no session.
type Registration struct {
	auth   SignUpper
	logger *log.Logger
	submit Action
}

func NewRegistration(auth SignUpper, logger *log.Logger) *Registration {
	if logger == nil {
		logger = log.Discard()
	}
	return &Registration{auth: auth, logger: logger}
}

// Validate checks the draft before anything is sent.
func (r *Registration) Validate(d RegistrationDraft) error {
	if strings.TrimSpace(d.FullName) == "" {
		return &core.ValidationError{Field: "full_name", Message: "El nombre es obligatorio"}
	}
	if !core.ValidEmail(strings.TrimSpace(d.Email)) {
		return &core.ValidationError{Field: "email", Message: "Ingresa un email válido"}
	}
	if len(d.Password) < minPasswordLength {
		return &core.ValidationError{Field: "password", Message: "La contraseña debe tener al menos 6 caracteres"}
	}
	return nil
}

// Submit registers the account with the full name as user metadata.
func (r *Registration) Submit(ctx context.Context, d RegistrationDraft) error {
	if err := r.Validate(d); err != nil {
		return err
	}
	err := r.submit.Run(ctx, func(ctx context.Context) error {
		return r.auth.SignUp(ctx, strings.TrimSpace(d.Email), d.Password, strings.TrimSpace(d.FullName))
	})
	if err != nil {
		r.logger.WarnContext(ctx, "Registration failed",
			log.NewFields().WithAction("register").WithError(err).ToSlice()...)
		return err
	}
	r.logger.InfoContext(ctx, "Account registered")
	return nil
}

func (r *Registration) Submitting() bool { return r.submit.InFlight() }

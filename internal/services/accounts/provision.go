package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/id"
	"github.com/louisbranch/ocfweb/internal/services/accounts/storage"
	"golang.org/x/crypto/bcrypt"
)

// Progress phases reported while creating an account.
const (
	PhaseValidating   = "Validating request"
	PhaseHashing      = "Securing password"
	PhaseCreating     = "Creating account entry"
	PhaseRegistration = "Registering association"
)

// ProgressFunc reports one human-readable progress phase.
type ProgressFunc func(ctx context.Context, phase string) error

// Provisioner turns validated requests into accounts or pending requests.
type Provisioner struct {
	registry   storage.Registry
	decrypter  *PasswordDecrypter
	policy     Policy
	now        func() time.Time
	bcryptCost int
}

// ProvisionerOption customizes a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithBcryptCost overrides the password hash cost.
func WithBcryptCost(cost int) ProvisionerOption {
	return func(p *Provisioner) {
		p.bcryptCost = cost
	}
}

// WithProvisionerClock overrides the time source.
func WithProvisionerClock(now func() time.Time) ProvisionerOption {
	return func(p *Provisioner) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvisioner builds a provisioner over registry.
func NewProvisioner(registry storage.Registry, decrypter *PasswordDecrypter, policy Policy, opts ...ProvisionerOption) (*Provisioner, error) {
	if registry == nil {
		return nil, errors.New("account registry is required")
	}
	if decrypter == nil {
		return nil, errors.New("password decrypter is required")
	}
	p := &Provisioner{
		registry:   registry,
		decrypter:  decrypter,
		policy:     policy,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Validate decrypts the password and applies every rule to req.
func (p *Provisioner) Validate(ctx context.Context, req NewAccountRequest) (errs, warnings []string, err error) {
	password, err := p.decrypter.Decrypt(req.EncryptedPassword)
	if err != nil {
		return []string{"Password could not be read; please submit the form again."}, nil, nil
	}
	return ValidateRequest(ctx, req, password, p.registry, p.policy)
}

// SubmitForReview stores req for staff review with its warnings.
func (p *Provisioner) SubmitForReview(ctx context.Context, req NewAccountRequest, warnings []string) error {
	requestID, err := id.NewID()
	if err != nil {
		return err
	}
	return p.registry.RecordPendingRequest(ctx, storage.PendingRequestRecord{
		ID:                requestID,
		Username:          req.Username,
		RealName:          CleanRealName(req.RealName),
		CalnetUID:         req.Association.CalnetUID,
		CallinkOID:        req.Association.CallinkOID,
		Email:             req.Email,
		EncryptedPassword: req.EncryptedPassword,
		Warnings:          warnings,
		CreatedAt:         p.now().UTC(),
	})
}

// Create re-validates req and provisions the account, reporting each phase.
// Requests that no longer pass validation are rejected without creating
// anything.
func (p *Provisioner) Create(ctx context.Context, req NewAccountRequest, progress ProgressFunc) (NewAccountResponse, error) {
	if progress == nil {
		progress = func(context.Context, string) error { return nil }
	}
	if err := progress(ctx, PhaseValidating); err != nil {
		return NewAccountResponse{}, err
	}
	password, err := p.decrypter.Decrypt(req.EncryptedPassword)
	if err != nil {
		return NewAccountResponse{}, err
	}
	errs, _, err := ValidateRequest(ctx, req, password, p.registry, p.policy)
	if err != nil {
		return NewAccountResponse{}, fmt.Errorf("validate request: %w", err)
	}
	if len(errs) > 0 {
		return NewAccountResponse{Status: StatusRejected, Errors: errs}, nil
	}

	if err := progress(ctx, PhaseHashing); err != nil {
		return NewAccountResponse{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return NewAccountResponse{}, fmt.Errorf("hash password: %w", err)
	}

	if err := progress(ctx, PhaseCreating); err != nil {
		return NewAccountResponse{}, err
	}
	err = p.registry.CreateAccount(ctx, storage.AccountRecord{
		Username:     req.Username,
		RealName:     CleanRealName(req.RealName),
		CalnetUID:    req.Association.CalnetUID,
		CallinkOID:   req.Association.CallinkOID,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    p.now().UTC(),
	})
	if errors.Is(err, storage.ErrUsernameTaken) {
		return NewAccountResponse{Status: StatusRejected, Errors: []string{"Username is already taken."}}, nil
	}
	if err != nil {
		return NewAccountResponse{}, err
	}

	if err := progress(ctx, PhaseRegistration); err != nil {
		return NewAccountResponse{}, err
	}
	return NewAccountResponse{Status: StatusCreated}, nil
}

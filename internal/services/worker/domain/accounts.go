// Package domain holds the worker's task handlers.
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	"github.com/louisbranch/ocfweb/internal/services/accounts"
)

// Task is the running task a handler works on.
type Task interface {
	Decode(out any) error
	Progress(ctx context.Context, message string) error
}

// Handler processes one claimed task and returns its JSON-encodable result.
type Handler interface {
	Handle(ctx context.Context, task Task) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task Task) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, task Task) (any, error) {
	return f(ctx, task)
}

// Provisioner validates, queues for review, and creates accounts.
type Provisioner interface {
	Validate(ctx context.Context, req accounts.NewAccountRequest) (errs, warnings []string, err error)
	SubmitForReview(ctx context.Context, req accounts.NewAccountRequest, warnings []string) error
	Create(ctx context.Context, req accounts.NewAccountRequest, progress accounts.ProgressFunc) (accounts.NewAccountResponse, error)
}

// TaskSubmitter enqueues follow-up tasks.
type TaskSubmitter interface {
	Submit(ctx context.Context, kind string, payload any) (*taskqueue.Handle, error)
}

// ValidateThenCreateHandler runs the validation checkpoint of an account
// request. Requests that stop at validation finish with a response; clean
// requests hand creation off to an account.create task and finish with its id.
type ValidateThenCreateHandler struct {
	provisioner Provisioner
	tasks       TaskSubmitter
}

// NewValidateThenCreateHandler builds the account.validate_then_create handler.
func NewValidateThenCreateHandler(provisioner Provisioner, tasks TaskSubmitter) *ValidateThenCreateHandler {
	return &ValidateThenCreateHandler{provisioner: provisioner, tasks: tasks}
}

// Handle returns an accounts.ValidationResult.
func (h *ValidateThenCreateHandler) Handle(ctx context.Context, task Task) (any, error) {
	if h == nil || h.provisioner == nil || h.tasks == nil {
		return nil, errors.New("validate-then-create handler is not configured")
	}
	req, err := decodeRequest(task)
	if err != nil {
		return nil, err
	}

	errs, warnings, err := h.provisioner.Validate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}
	resp, submit := accounts.Decide(req, errs, warnings)
	if submit {
		if err := h.provisioner.SubmitForReview(ctx, req, warnings); err != nil {
			return nil, fmt.Errorf("submit for review: %w", err)
		}
	}
	if resp != nil {
		return accounts.ValidationResult{Response: resp}, nil
	}

	handle, err := h.tasks.Submit(ctx, accounts.TaskCreate, req)
	if err != nil {
		return nil, fmt.Errorf("submit create task: %w", err)
	}
	return accounts.ValidationResult{CreateTaskID: handle.ID()}, nil
}

// CreateHandler provisions an already validated account request.
type CreateHandler struct {
	provisioner Provisioner
}

// NewCreateHandler builds the account.create handler.
func NewCreateHandler(provisioner Provisioner) *CreateHandler {
	return &CreateHandler{provisioner: provisioner}
}

// Handle returns an accounts.NewAccountResponse and reports each phase as
// task progress.
func (h *CreateHandler) Handle(ctx context.Context, task Task) (any, error) {
	if h == nil || h.provisioner == nil {
		return nil, errors.New("create handler is not configured")
	}
	req, err := decodeRequest(task)
	if err != nil {
		return nil, err
	}
	resp, err := h.provisioner.Create(ctx, req, task.Progress)
	if err != nil {
		return nil, fmt.Errorf("create account %q: %w", req.Username, err)
	}
	return resp, nil
}

func decodeRequest(task Task) (accounts.NewAccountRequest, error) {
	var req accounts.NewAccountRequest
	if err := task.Decode(&req); err != nil {
		return accounts.NewAccountRequest{}, Permanent(err)
	}
	if err := req.Association.Validate(); err != nil {
		return accounts.NewAccountRequest{}, Permanent(err)
	}
	if len(req.EncryptedPassword) == 0 {
		return accounts.NewAccountRequest{}, Permanent(errors.New("encrypted password is required"))
	}
	return req, nil
}

// Package accounts holds the account request model, the validation rules
// applied to new accounts, username recommendations, credential encryption,
// and provisioning.
package accounts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Task kinds exchanged between the web tier and the worker.
const (
	TaskValidateThenCreate = "account.validate_then_create"
	TaskCreate             = "account.create"
)

// AssociationKind distinguishes individual from group accounts.
type AssociationKind string

const (
	AssociationIndividual AssociationKind = "individual"
	AssociationGroup      AssociationKind = "group"
)

// Association is the entity a new account belongs to: a person identified
// by CalNet UID or a student group identified by CalLink OID. Exactly one of
// the identifiers is set, matching Kind.
type Association struct {
	Kind       AssociationKind `json:"kind"`
	CalnetUID  string          `json:"calnet_uid,omitempty"`
	CallinkOID string          `json:"callink_oid,omitempty"`
}

// Individual returns the association for a person's own account.
func Individual(calnetUID string) Association {
	return Association{Kind: AssociationIndividual, CalnetUID: strings.TrimSpace(calnetUID)}
}

// Group returns the association for a student group account.
func Group(callinkOID string) Association {
	return Association{Kind: AssociationGroup, CallinkOID: strings.TrimSpace(callinkOID)}
}

// IsGroup reports whether the association is a group.
func (a Association) IsGroup() bool {
	return a.Kind == AssociationGroup
}

// Validate checks that exactly the identifier matching Kind is set.
func (a Association) Validate() error {
	switch a.Kind {
	case AssociationIndividual:
		if a.CalnetUID == "" || a.CallinkOID != "" {
			return fmt.Errorf("individual association requires only a CalNet UID")
		}
	case AssociationGroup:
		if a.CallinkOID == "" || a.CalnetUID != "" {
			return fmt.Errorf("group association requires only a CalLink OID")
		}
	default:
		return fmt.Errorf("unknown association kind %q", a.Kind)
	}
	return nil
}

// WarningsMode controls how the worker treats validation warnings.
type WarningsMode string

const (
	// WarningsReject turns warnings into a rejection.
	WarningsReject WarningsMode = "reject"
	// WarningsWarn returns warnings to the requester as a flagged response.
	WarningsWarn WarningsMode = "warn"
	// WarningsSubmit queues a request with warnings for staff review.
	WarningsSubmit WarningsMode = "submit"
)

// NewAccountRequest is one proposed account. It is built once per form
// submission and not modified after it is handed to the task queue.
type NewAccountRequest struct {
	Username          string       `json:"username"`
	RealName          string       `json:"real_name"`
	Association       Association  `json:"association"`
	Email             string       `json:"email"`
	EncryptedPassword []byte       `json:"encrypted_password"`
	HandleWarnings    WarningsMode `json:"handle_warnings"`
}

// NewRequest builds a request that flags warnings back to the requester.
func NewRequest(association Association, realName, username, email string, encryptedPassword []byte) NewAccountRequest {
	return NewAccountRequest{
		Username:          username,
		RealName:          realName,
		Association:       association,
		Email:             email,
		EncryptedPassword: encryptedPassword,
		HandleWarnings:    WarningsWarn,
	}
}

// WithWarnings returns a copy of r using mode.
func (r NewAccountRequest) WithWarnings(mode WarningsMode) NewAccountRequest {
	r.HandleWarnings = mode
	return r
}

// IsGroup reports whether the request is for a group account.
func (r NewAccountRequest) IsGroup() bool {
	return r.Association.IsGroup()
}

// Status is the outcome of processing a request.
type Status string

const (
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
	StatusPending  Status = "pending"
	StatusCreated  Status = "created"
)

// NewAccountResponse is the outcome produced by the worker for a request.
type NewAccountResponse struct {
	Status Status   `json:"status"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult is the terminal result of a validate-then-create task.
// Response is set when the request stopped at validation; CreateTaskID is set
// when validation passed and creation was handed to its own task.
type ValidationResult struct {
	Response     *NewAccountResponse `json:"response,omitempty"`
	CreateTaskID string              `json:"create_task_id,omitempty"`
}

// UnmarshalJSON rejects results carrying both or neither variant.
func (v *ValidationResult) UnmarshalJSON(data []byte) error {
	type plain ValidationResult
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if (decoded.Response == nil) == (decoded.CreateTaskID == "") {
		return fmt.Errorf("validation result must carry exactly one of response or create_task_id")
	}
	*v = ValidationResult(decoded)
	return nil
}

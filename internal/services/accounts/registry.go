package accounts

import (
	"context"
	"errors"
	"slices"
)

// Registry is the read side of the organization's account registry.
type Registry interface {
	UsernameLookup
	AccountsByCalnetUID(ctx context.Context, calnetUID string) ([]string, error)
	AccountsByCallinkOID(ctx context.Context, callinkOID string) ([]string, error)
}

// Policy carries the allow-lists that relax the one-account rules.
type Policy struct {
	// TesterCalnetUIDs may request additional individual accounts.
	TesterCalnetUIDs []string
	// TestGroupOIDs may request additional group accounts.
	TestGroupOIDs []string
}

// IsTester reports whether calnetUID is on the tester allow-list.
func (p Policy) IsTester(calnetUID string) bool {
	return slices.Contains(p.TesterCalnetUIDs, calnetUID)
}

// IsTestGroup reports whether callinkOID is a designated test group.
func (p Policy) IsTestGroup(callinkOID string) bool {
	return slices.Contains(p.TestGroupOIDs, callinkOID)
}

// ValidateRequest applies every rule to req and the decrypted password. It
// returns hard errors and soft warnings as user-facing messages; err is set
// only when a rule could not be evaluated.
func ValidateRequest(ctx context.Context, req NewAccountRequest, password string, registry Registry, policy Policy) (errs []string, warnings []string, err error) {
	collect := func(e error) error {
		var verr *ValidationError
		var vwarn *ValidationWarning
		switch {
		case e == nil:
		case errors.As(e, &verr):
			errs = append(errs, verr.Message)
		case errors.As(e, &vwarn):
			warnings = append(warnings, vwarn.Message)
		default:
			return e
		}
		return nil
	}

	if e := req.Association.Validate(); e != nil {
		errs = append(errs, "Account association is invalid.")
	}
	if CleanRealName(req.RealName) == "" {
		errs = append(errs, "Real name is required.")
	}
	if err := collect(ValidateUsername(ctx, req.Username, req.RealName, registry)); err != nil {
		return nil, nil, err
	}
	if err := collect(ValidatePassword(req.Username, password)); err != nil {
		return nil, nil, err
	}
	if err := collect(ValidateEmail(req.Email)); err != nil {
		return nil, nil, err
	}

	switch req.Association.Kind {
	case AssociationIndividual:
		existing, err := registry.AccountsByCalnetUID(ctx, req.Association.CalnetUID)
		if err != nil {
			return nil, nil, err
		}
		if len(existing) > 0 && !policy.IsTester(req.Association.CalnetUID) {
			errs = append(errs, "CalNet UID already has an account.")
		}
	case AssociationGroup:
		existing, err := registry.AccountsByCallinkOID(ctx, req.Association.CallinkOID)
		if err != nil {
			return nil, nil, err
		}
		if len(existing) > 0 && !policy.IsTestGroup(req.Association.CallinkOID) {
			errs = append(errs, "Group already has an account.")
		}
	}
	return errs, warnings, nil
}

// Decide maps validation findings to the response for req, or nil when the
// request may proceed to creation. A nil response with submit=true means the
// request must be queued for staff review.
func Decide(req NewAccountRequest, errs, warnings []string) (resp *NewAccountResponse, submit bool) {
	if len(errs) > 0 {
		return &NewAccountResponse{Status: StatusRejected, Errors: slices.Concat(errs, warnings)}, false
	}
	if len(warnings) == 0 {
		return nil, false
	}
	switch req.HandleWarnings {
	case WarningsSubmit:
		return &NewAccountResponse{Status: StatusPending}, true
	case WarningsWarn:
		return &NewAccountResponse{Status: StatusFlagged, Errors: warnings}, false
	default:
		return &NewAccountResponse{Status: StatusRejected, Errors: warnings}, false
	}
}

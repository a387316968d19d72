package register

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	"github.com/louisbranch/ocfweb/internal/services/accounts"
	"github.com/louisbranch/ocfweb/internal/services/directory"
	apperrors "github.com/louisbranch/ocfweb/internal/services/web/platform/errors"
)

// PhaseStartingCreation is always the first phase shown while an account is
// being created.
const PhaseStartingCreation = "Starting creation"

type serviceConfig struct {
	directory  directory.Directory
	registry   accounts.Registry
	policy     accounts.Policy
	tasks      TaskClient
	encrypter  Encrypter
	sessions   Sessions
	submitWait time.Duration
}

type service struct {
	serviceConfig
}

func newService(cfg serviceConfig) service {
	return service{serviceConfig: cfg}
}

type eligibilityOutcome int

const (
	eligibleForForm eligibilityOutcome = iota
	alreadyHasAccount
	notInDirectory
)

// choice is one association the caller may request an account for.
type choice struct {
	value       string
	association accounts.Association
	// name is the real name the request is filed under.
	name string
}

type eligibility struct {
	outcome          eligibilityOutcome
	calnetUID        string
	existingAccounts []string
	existingGroups   []string
	realName         string
	choices          []choice
}

func individualChoice(calnetUID string, realName string) choice {
	return choice{value: "user:" + calnetUID, association: accounts.Individual(calnetUID), name: realName}
}

func groupChoice(group directory.Group) choice {
	return choice{value: "group:" + group.OID, association: accounts.Group(group.OID), name: group.Name}
}

// precheck decides whether calnetUID may see the form and which
// associations it offers.
func (s service) precheck(ctx context.Context, calnetUID string) (eligibility, error) {
	result := eligibility{calnetUID: calnetUID}
	existing, err := s.registry.AccountsByCalnetUID(ctx, calnetUID)
	if err != nil {
		return eligibility{}, fmt.Errorf("accounts by calnet uid: %w", err)
	}
	result.existingAccounts = existing

	groups, err := s.directory.GroupsBySignatory(ctx, calnetUID)
	if err != nil {
		return eligibility{}, fmt.Errorf("groups by signatory: %w", err)
	}
	var eligibleGroups []directory.Group
	for _, group := range groups {
		groupAccounts, err := s.registry.AccountsByCallinkOID(ctx, group.OID)
		if err != nil {
			return eligibility{}, fmt.Errorf("accounts by callink oid: %w", err)
		}
		if len(groupAccounts) == 0 || s.policy.IsTestGroup(group.OID) {
			eligibleGroups = append(eligibleGroups, group)
			continue
		}
		result.existingGroups = append(result.existingGroups, group.Name)
	}

	tester := s.policy.IsTester(calnetUID)
	if len(existing) > 0 && len(eligibleGroups) == 0 && !tester {
		result.outcome = alreadyHasAccount
		return result, nil
	}

	if _, err := s.directory.UserAttrs(ctx, calnetUID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			result.outcome = notInDirectory
			return result, nil
		}
		return eligibility{}, fmt.Errorf("directory attributes: %w", err)
	}
	realName, err := s.directory.NameByCalnetUID(ctx, calnetUID)
	if err != nil {
		return eligibility{}, fmt.Errorf("directory name: %w", err)
	}
	result.realName = realName

	if len(existing) == 0 || tester {
		result.choices = append(result.choices, individualChoice(calnetUID, realName))
	}
	for _, group := range eligibleGroups {
		result.choices = append(result.choices, groupChoice(group))
	}
	return result, nil
}

type submitOutcome int

const (
	submitRejected submitOutcome = iota
	submitFlagged
	submitPending
	submitCreating
)

type submitResult struct {
	outcome submitOutcome
	// messages are the errors or warnings returned by validation.
	messages []string
}

// submit dispatches a validate-then-create task for form and waits briefly
// for its verdict. When validation hands off to creation, the create task id
// is stored on sessionID.
func (s service) submit(ctx context.Context, sessionID string, chosen choice, form registerForm) (submitResult, error) {
	sealed, err := s.encrypter.Encrypt(form.Password)
	if err != nil {
		return submitResult{}, apperrors.Internal("encrypt password", err)
	}
	req := accounts.NewRequest(chosen.association, chosen.name, form.Username, form.Email, sealed)
	if form.SubmitAnyway {
		req = req.WithWarnings(accounts.WarningsSubmit)
	}

	handle, err := s.tasks.Submit(ctx, accounts.TaskValidateThenCreate, req)
	if err != nil {
		return submitResult{}, apperrors.Internal("submit account request", err)
	}
	if err := handle.Wait(ctx, s.submitWait); err != nil {
		return submitResult{}, inconsistent(handle.ID(), "wait for validation", err)
	}
	var result accounts.ValidationResult
	if err := handle.Result(ctx, &result); err != nil {
		return submitResult{}, inconsistent(handle.ID(), "read validation result", err)
	}

	if result.CreateTaskID != "" {
		if err := s.sessions.SetApproveTaskID(ctx, sessionID, result.CreateTaskID); err != nil {
			return submitResult{}, apperrors.Internal("store approve task id", err)
		}
		return submitResult{outcome: submitCreating}, nil
	}
	switch result.Response.Status {
	case accounts.StatusRejected:
		return submitResult{outcome: submitRejected, messages: result.Response.Errors}, nil
	case accounts.StatusFlagged:
		return submitResult{outcome: submitFlagged, messages: result.Response.Errors}, nil
	case accounts.StatusPending:
		return submitResult{outcome: submitPending}, nil
	default:
		return submitResult{}, inconsistent(handle.ID(), "unexpected validation status", fmt.Errorf("status %q", result.Response.Status))
	}
}

func inconsistent(taskID string, step string, cause error) error {
	log.Printf("internal consistency failure task_id=%s step=%q err=%v", taskID, step, cause)
	return apperrors.Internal("internal consistency: "+step, cause)
}

type pollOutcome int

const (
	pollNoTask pollOutcome = iota
	pollWorking
	pollCreated
	pollNotCreated
)

type pollResult struct {
	outcome pollOutcome
	phases  []string
}

// poll inspects the create task a session waits on. Task failures are
// returned as errors.
func (s service) poll(ctx context.Context, taskID string) (pollResult, error) {
	if taskID == "" {
		return pollResult{outcome: pollNoTask}, nil
	}
	handle := s.tasks.Lookup(taskID)
	ready, err := handle.Ready(ctx)
	if errors.Is(err, taskqueue.ErrNotFound) {
		return pollResult{outcome: pollNoTask}, nil
	}
	if err != nil {
		return pollResult{}, apperrors.Internal("read task state", err)
	}
	if !ready {
		progress, err := handle.Progress(ctx)
		if err != nil {
			return pollResult{}, apperrors.Internal("read task progress", err)
		}
		phases := append([]string{PhaseStartingCreation}, progress...)
		return pollResult{outcome: pollWorking, phases: phases}, nil
	}

	var response accounts.NewAccountResponse
	err = handle.Result(ctx, &response)
	var failed *taskqueue.FailedError
	switch {
	case errors.As(err, &failed):
		return pollResult{}, apperrors.Internal("account creation failed", failed)
	case err != nil:
		log.Printf("unreadable creation result task_id=%s err=%v", taskID, err)
		return pollResult{outcome: pollNotCreated}, nil
	case response.Status == accounts.StatusCreated:
		return pollResult{outcome: pollCreated}, nil
	default:
		return pollResult{outcome: pollNotCreated}, nil
	}
}

package accounts

import (
	"context"
	"errors"
	"testing"
)

type fakeLookup struct {
	taken map[string]bool
	err   error
	calls int
}

func (f *fakeLookup) UsernameTaken(_ context.Context, username string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.taken[username], nil
}

func TestValidateUsernameFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		username string
		valid    bool
	}{
		{username: "jsmith", valid: true},
		{username: "ab", valid: false},
		{username: "abcdefghijklmnopq", valid: false},
		{username: "jsmith1", valid: false},
		{username: "JSmith", valid: false},
		{username: "root", valid: false},
	}
	for _, tt := range tests {
		err := ValidateUsernameFormat(tt.username)
		if tt.valid && err != nil {
			t.Fatalf("ValidateUsernameFormat(%q) = %v, want nil", tt.username, err)
		}
		if !tt.valid {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateUsernameFormat(%q) = %v, want ValidationError", tt.username, err)
			}
		}
	}
}

func TestValidateUsernameTakenIsError(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{taken: map[string]bool{"jsmith": true}}
	err := ValidateUsername(context.Background(), "jsmith", "John Smith", lookup)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Message != "Username is already taken." {
		t.Fatalf("message = %q", verr.Message)
	}
}

func TestValidateUsernameNotNameBasedIsWarning(t *testing.T) {
	t.Parallel()

	err := ValidateUsername(context.Background(), "coolcat", "John Smith", &fakeLookup{})
	var vwarn *ValidationWarning
	if !errors.As(err, &vwarn) {
		t.Fatalf("err = %v, want ValidationWarning", err)
	}
}

func TestValidateUsernameRestrictedWordIsWarning(t *testing.T) {
	t.Parallel()

	err := ValidateUsername(context.Background(), "jsmithstaff", "John Smith", &fakeLookup{})
	var vwarn *ValidationWarning
	if !errors.As(err, &vwarn) {
		t.Fatalf("err = %v, want ValidationWarning", err)
	}
}

func TestValidateUsernameAccepted(t *testing.T) {
	t.Parallel()

	for _, username := range []string{"jsmith", "johnsmith", "smithj", "johns", "josmi"} {
		if err := ValidateUsername(context.Background(), username, "John Smith", &fakeLookup{}); err != nil {
			t.Fatalf("ValidateUsername(%q) = %v, want nil", username, err)
		}
	}
}

func TestValidateUsernameLookupFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	err := ValidateUsername(context.Background(), "jsmith", "John Smith", &fakeLookup{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped lookup failure", err)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Fatal("lookup failure must not be reported as validation error")
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "mixed", password: "correct-horse-7", valid: true},
		{name: "too short", password: "a1b2", valid: false},
		{name: "one class", password: "abcdefghij", valid: false},
		{name: "contains username", password: "JSmith!2024", valid: false},
		{name: "control char", password: "abc\x00defg1", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword("jsmith", tt.password)
			if (err == nil) != tt.valid {
				t.Fatalf("ValidatePassword(%q) = %v, valid want %v", tt.password, err, tt.valid)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	valid := []string{"jsmith@berkeley.edu", "a.b+c@example.org"}
	invalidEmails := []string{"", "jsmith", "jsmith@localhost", "John <jsmith@berkeley.edu>", "jsmith@berkeley.edu."}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Fatalf("ValidateEmail(%q) = %v, want nil", email, err)
		}
	}
	for _, email := range invalidEmails {
		if err := ValidateEmail(email); err == nil {
			t.Fatalf("ValidateEmail(%q) = nil, want error", email)
		}
	}
}

func TestNamePartsFoldsAccentsAndMarkup(t *testing.T) {
	t.Parallel()

	parts := NameParts("<b>José</b> de la Peña-Ruiz")
	want := []string{"jose", "de", "la", "ruiz"}
	if len(parts) != len(want) {
		t.Fatalf("NameParts() = %v, want %v", parts, want)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("NameParts() = %v, want %v", parts, want)
		}
	}
}

func TestCleanRealName(t *testing.T) {
	t.Parallel()

	if got, want := CleanRealName("  Ada <script>x</script> Lovelace &amp; co "), "Ada Lovelace & co"; got != want {
		t.Fatalf("CleanRealName() = %q, want %q", got, want)
	}
}

package register

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/louisbranch/ocfweb/internal/services/accounts"
	webtemplates "github.com/louisbranch/ocfweb/internal/services/web/templates"
)

const (
	verifyPasswordMaxLength = 64

	msgRequired          = "This field is required."
	msgInvalidChoice     = "Select a valid choice."
	msgPasswordsMismatch = "Your passwords don't match."
	msgEmailsMismatch    = "Your emails don't match."
	msgDisclaimer        = "You must agree to our policies."
)

// registerForm is one posted registration form.
type registerForm struct {
	Association    string
	Username       string
	Password       string
	VerifyPassword string
	Email          string
	VerifyEmail    string
	Disclaimer     bool
	SubmitAnyway   bool
}

type fieldErrors map[string][]string

func (e fieldErrors) add(field string, msg string) {
	e[field] = append(e[field], msg)
}

func readForm(values url.Values) registerForm {
	return registerForm{
		Association:    strings.TrimSpace(values.Get(webtemplates.FieldAssociation)),
		Username:       strings.TrimSpace(values.Get(webtemplates.FieldUsername)),
		Password:       values.Get(webtemplates.FieldPassword),
		VerifyPassword: values.Get(webtemplates.FieldVerifyPassword),
		Email:          strings.TrimSpace(values.Get(webtemplates.FieldEmail)),
		VerifyEmail:    strings.TrimSpace(values.Get(webtemplates.FieldVerifyEmail)),
		Disclaimer:     values.Get(webtemplates.FieldDisclaimer) != "",
		SubmitAnyway:   values.Has(webtemplates.FieldSubmitAnyway),
	}
}

// validate checks every field and the cross-field rules. It returns the
// chosen association when the form is valid.
func (f registerForm) validate(choices []choice) (choice, fieldErrors) {
	errs := fieldErrors{}

	var chosen choice
	found := false
	for _, c := range choices {
		if c.value == f.Association {
			chosen, found = c, true
			break
		}
	}
	switch {
	case f.Association == "":
		errs.add(webtemplates.FieldAssociation, msgRequired)
	case !found:
		errs.add(webtemplates.FieldAssociation, msgInvalidChoice)
	}

	usernameOK := false
	if f.Username == "" {
		errs.add(webtemplates.FieldUsername, msgRequired)
	} else if err := accounts.ValidateUsernameFormat(f.Username); err != nil {
		errs.add(webtemplates.FieldUsername, err.Error())
	} else {
		usernameOK = true
	}

	if f.Password == "" {
		errs.add(webtemplates.FieldPassword, msgRequired)
	} else {
		username := ""
		if usernameOK {
			username = f.Username
		}
		if err := accounts.ValidatePassword(username, f.Password); err != nil {
			errs.add(webtemplates.FieldPassword, err.Error())
		}
	}

	switch {
	case f.VerifyPassword == "":
		errs.add(webtemplates.FieldVerifyPassword, msgRequired)
	case len(f.VerifyPassword) < accounts.PasswordMinLength:
		errs.add(webtemplates.FieldVerifyPassword, fmt.Sprintf("Password must be at least %d characters.", accounts.PasswordMinLength))
	case len(f.VerifyPassword) > verifyPasswordMaxLength:
		errs.add(webtemplates.FieldVerifyPassword, fmt.Sprintf("Password must be at most %d characters.", verifyPasswordMaxLength))
	}
	if f.Password != "" && f.VerifyPassword != "" && f.Password != f.VerifyPassword {
		errs.add(webtemplates.FieldVerifyPassword, msgPasswordsMismatch)
	}

	if f.Email == "" {
		errs.add(webtemplates.FieldEmail, msgRequired)
	} else if err := accounts.ValidateEmail(f.Email); err != nil {
		errs.add(webtemplates.FieldEmail, err.Error())
	}
	if f.VerifyEmail == "" {
		errs.add(webtemplates.FieldVerifyEmail, msgRequired)
	} else if f.Email != "" && f.Email != f.VerifyEmail {
		errs.add(webtemplates.FieldVerifyEmail, msgEmailsMismatch)
	}

	if !f.Disclaimer {
		errs.add(webtemplates.FieldDisclaimer, msgDisclaimer)
	}

	if len(errs) > 0 {
		return choice{}, errs
	}
	return chosen, nil
}

// values echoes the posted fields back into the form. Passwords are kept
// only for a flagged re-render, where the submit anyway button must resend
// them.
func (f registerForm) values(keepPasswords bool) webtemplates.RegisterFormValues {
	values := webtemplates.RegisterFormValues{
		Association: f.Association,
		Username:    f.Username,
		Email:       f.Email,
		VerifyEmail: f.VerifyEmail,
		Disclaimer:  f.Disclaimer,
	}
	if keepPasswords {
		values.Password = f.Password
		values.VerifyPassword = f.VerifyPassword
	}
	return values
}

package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
)

// Registration form field names.
const (
	FieldAssociation    = "account_association"
	FieldUsername       = "ocf_login_name"
	FieldPassword       = "password"
	FieldVerifyPassword = "verify_password"
	FieldEmail          = "contact_email"
	FieldVerifyEmail    = "verify_contact_email"
	FieldDisclaimer     = "disclaimer_agreement"
	FieldSubmitAnyway   = "warnings-submit"
)

// AssociationChoice is one option of the account association select.
type AssociationChoice struct {
	Value string
	Label string
	// RealName seeds username recommendations for the choice.
	RealName string
}

// RegisterFormValues are the values echoed back into the form. Passwords
// are set only when the form is re-rendered with warnings, so that
// submitting anyway resends them.
type RegisterFormValues struct {
	Association    string
	Username       string
	Password       string
	VerifyPassword string
	Email          string
	VerifyEmail    string
	Disclaimer     bool
}

// RegisterFormView is the state of the registration form page.
type RegisterFormView struct {
	Loc            Localizer
	CalnetUID      string
	Choices        []AssociationChoice
	ExistingGroups []string
	Values         RegisterFormValues
	FieldErrors    map[string][]string
	FormErrors     []string
	Warnings       []string
}

// RegisterForm renders the account request form.
func RegisterForm(view RegisterFormView) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		loc := view.Loc
		h.element("p", "intro", T(loc, "register.intro", view.CalnetUID))

		if len(view.FormErrors) > 0 {
			h.raw("<div class=\"form-errors\" role=\"alert\">")
			h.element("p", "", T(loc, "register.form.errors"))
			h.list("errors", view.FormErrors)
			h.raw("</div>")
		}
		if len(view.Warnings) > 0 {
			h.raw("<div class=\"form-warnings\" role=\"status\">")
			h.element("p", "", T(loc, "register.form.warnings"))
			h.list("warnings", view.Warnings)
			h.raw("</div>")
		}

		h.raw("<form id=\"register-form\" method=\"post\"")
		h.attr("action", routepath.Register)
		h.raw(">")

		h.raw("<label")
		h.attr("for", FieldAssociation)
		h.raw(">")
		h.text(T(loc, "register.form.association"))
		h.raw("</label><select")
		h.attr("id", FieldAssociation)
		h.attr("name", FieldAssociation)
		h.raw(">")
		for _, choice := range view.Choices {
			h.raw("<option")
			h.attr("value", choice.Value)
			h.attr("data-real-name", choice.RealName)
			if choice.Value == view.Values.Association {
				h.raw(" selected")
			}
			h.raw(">")
			h.text(choice.Label)
			h.raw("</option>")
		}
		h.raw("</select>")
		view.fieldErrors(h, FieldAssociation)

		if len(view.ExistingGroups) > 0 {
			h.element("p", "existing-groups", T(loc, "register.form.existing_groups"))
			h.list("existing-groups", view.ExistingGroups)
		}

		view.input(h, FieldUsername, "text", T(loc, "register.form.username"), view.Values.Username)
		h.element("p", "help", T(loc, "register.form.username.help"))
		h.raw("<ul id=\"username-recommendations\"")
		h.attr("data-source", routepath.RegisterRecommend)
		h.attr("data-validate", routepath.RegisterValidate)
		h.raw("></ul>")
		view.input(h, FieldPassword, "password", T(loc, "register.form.password"), view.Values.Password)
		view.input(h, FieldVerifyPassword, "password", T(loc, "register.form.verify_password"), view.Values.VerifyPassword)
		view.input(h, FieldEmail, "email", T(loc, "register.form.email"), view.Values.Email)
		view.input(h, FieldVerifyEmail, "email", T(loc, "register.form.verify_email"), view.Values.VerifyEmail)

		h.raw("<label class=\"checkbox\"><input type=\"checkbox\" value=\"on\"")
		h.attr("name", FieldDisclaimer)
		if view.Values.Disclaimer {
			h.raw(" checked")
		}
		h.raw(">")
		h.text(T(loc, "register.form.disclaimer"))
		h.raw("</label>")
		view.fieldErrors(h, FieldDisclaimer)

		h.raw("<button type=\"submit\">")
		h.text(T(loc, "register.form.submit"))
		h.raw("</button>")
		if len(view.Warnings) > 0 {
			h.raw("<button type=\"submit\" value=\"1\"")
			h.attr("name", FieldSubmitAnyway)
			h.raw(">")
			h.text(T(loc, "register.form.submit_anyway"))
			h.raw("</button>")
		}
		h.raw("</form>")
	})
}

func (view RegisterFormView) input(h *htmlWriter, name string, kind string, label string, value string) {
	h.raw("<label")
	h.attr("for", name)
	h.raw(">")
	h.text(label)
	h.raw("</label><input")
	h.attr("id", name)
	h.attr("name", name)
	h.attr("type", kind)
	if value != "" {
		h.attr("value", value)
	}
	h.raw(">")
	view.fieldErrors(h, name)
}

func (view RegisterFormView) fieldErrors(h *htmlWriter, name string) {
	errs := view.FieldErrors[name]
	if len(errs) == 0 {
		return
	}
	h.raw("<ul class=\"field-errors\"")
	h.attr("data-field", name)
	h.raw(">")
	for _, msg := range errs {
		h.element("li", "", msg)
	}
	h.raw("</ul>")
}

// AlreadyHasAccount renders the page shown to people who already own an
// individual account and sign for no eligible group.
func AlreadyHasAccount(loc Localizer, accounts []string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.element("p", "already-has-account", T(loc, "register.already_has_account.body", strings.Join(accounts, ", ")))
	})
}

// CantFindInDirectory renders the page shown when the directory has no entry
// for the signed-in CalNet UID.
func CantFindInDirectory(loc Localizer, calnetUID string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.element("p", "cant-find", T(loc, "register.cant_find.body", calnetUID))
	})
}

// WaitWorking renders the in-progress creation page.
func WaitWorking(loc Localizer, phases []string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw("<ol class=\"phases\">")
		for _, phase := range phases {
			h.element("li", "phase", phase)
		}
		h.raw("</ol>")
		h.element("p", "refresh", T(loc, "register.wait.refresh"))
	})
}

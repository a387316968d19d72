package register

import (
	webtemplates "github.com/louisbranch/ocfweb/internal/services/web/templates"
)

// formView collects what the form page shows for one request.
type formView struct {
	elig        eligibility
	form        registerForm
	fieldErrors fieldErrors
	formErrors  []string
	warnings    []string
}

func (v formView) build(loc webtemplates.Localizer) webtemplates.RegisterFormView {
	choices := make([]webtemplates.AssociationChoice, 0, len(v.elig.choices))
	for _, c := range v.elig.choices {
		key := "register.form.association.individual"
		if c.association.IsGroup() {
			key = "register.form.association.group"
		}
		choices = append(choices, webtemplates.AssociationChoice{
			Value:    c.value,
			Label:    webtemplates.T(loc, key, c.name),
			RealName: c.name,
		})
	}
	return webtemplates.RegisterFormView{
		Loc:            loc,
		CalnetUID:      v.elig.calnetUID,
		Choices:        choices,
		ExistingGroups: v.elig.existingGroups,
		Values:         v.form.values(len(v.warnings) > 0),
		FieldErrors:    v.fieldErrors,
		FormErrors:     v.formErrors,
		Warnings:       v.warnings,
	}
}

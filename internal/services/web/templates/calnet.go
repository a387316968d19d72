package templates

import (
	"context"

	"github.com/a-h/templ"
)

// CalnetLoginView is the state of the CalNet sign-in page.
type CalnetLoginView struct {
	Loc Localizer
	// StartURL begins the single sign-on flow; empty when it is not configured.
	StartURL string
	// DevLoginAction is the development sign-in form target; empty when disabled.
	DevLoginAction string
	Next           string
}

// CalnetLogin renders the sign-in gate.
func CalnetLogin(view CalnetLoginView) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		loc := view.Loc
		h.element("p", "", T(loc, "calnet.login.body"))
		if view.StartURL != "" {
			h.raw("<a class=\"button calnet-start\"")
			h.attr("href", view.StartURL)
			h.raw(">")
			h.text(T(loc, "calnet.login.button"))
			h.raw("</a>")
		}
		if view.DevLoginAction != "" {
			h.raw("<form class=\"dev-login\" method=\"post\"")
			h.attr("action", view.DevLoginAction)
			h.raw("><input type=\"hidden\" name=\"next\"")
			h.attr("value", view.Next)
			h.raw("><label for=\"calnet_uid\">")
			h.text(T(loc, "calnet.dev_login.label"))
			h.raw("</label><input id=\"calnet_uid\" name=\"calnet_uid\" type=\"text\" inputmode=\"numeric\"><button type=\"submit\">")
			h.text(T(loc, "calnet.dev_login.button"))
			h.raw("</button></form>")
		}
	})
}

package templates

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
)

// ErrorPageTitle returns the page title for an error status.
func ErrorPageTitle(statusCode int, loc Localizer) string {
	if statusCode == http.StatusNotFound {
		return http.StatusText(http.StatusNotFound)
	}
	return T(loc, "core.error.title")
}

// ErrorState renders the body of an error page.
func ErrorState(statusCode int, message string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw("<section class=\"error\"")
		h.attr("data-status", itoa(statusCode))
		h.raw(">")
		h.element("p", "", message)
		h.raw("</section>")
	})
}

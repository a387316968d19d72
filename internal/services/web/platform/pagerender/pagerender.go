// Package pagerender centralizes module page rendering behavior.
package pagerender

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	webi18n "github.com/louisbranch/ocfweb/internal/services/web/platform/i18n"
	webtemplates "github.com/louisbranch/ocfweb/internal/services/web/templates"
	"golang.org/x/text/message"
)

// Page describes one full-page response.
type Page struct {
	// TitleKey is a catalog key; Title is used verbatim when set.
	TitleKey       string
	Title          string
	StatusCode     int
	RefreshSeconds int
	// Body builds the page content with the request printer.
	Body func(loc *message.Printer) templ.Component
}

// Localizer returns the request printer for handlers that build copy before
// rendering.
func Localizer(r *http.Request, deps module.Dependencies) *message.Printer {
	loc, _ := webi18n.Localizer(r, deps.ResolveLanguage)
	return loc
}

// Write renders page inside the shared layout. Nothing is written to w when
// rendering fails.
func Write(w http.ResponseWriter, r *http.Request, deps module.Dependencies, page Page) error {
	if w == nil {
		return nil
	}
	statusCode := page.StatusCode
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	loc, lang := webi18n.Localizer(r, deps.ResolveLanguage)
	title := page.Title
	if title == "" && page.TitleKey != "" {
		title = loc.Sprintf(page.TitleKey)
	}
	var body templ.Component
	if page.Body != nil {
		body = page.Body(loc)
	}
	signedIn := false
	if deps.ResolveSignedIn != nil {
		signedIn = deps.ResolveSignedIn(r)
	}

	layout := webtemplates.Layout(webtemplates.PageContext{
		Lang:           lang,
		Loc:            loc,
		Title:          title,
		SignedIn:       signedIn,
		RefreshSeconds: page.RefreshSeconds,
	}, body)
	var buf bytes.Buffer
	if err := layout.Render(httpx.RequestContext(r), &buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
	return nil
}

package templates

import (
	"context"

	"github.com/a-h/templ"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
)

// PageContext provides shared layout context for pages.
type PageContext struct {
	Lang  string
	Loc   Localizer
	Title string
	// SignedIn shows the sign-out control.
	SignedIn bool
	// RefreshSeconds asks the browser to reload the page when positive.
	RefreshSeconds int
}

// Layout wraps body in the site chrome.
func Layout(page PageContext, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		lang := page.Lang
		if lang == "" {
			lang = "en-US"
		}
		siteName := T(page.Loc, "core.site_name")
		title := siteName
		if page.Title != "" {
			title = page.Title + " | " + siteName
		}

		h.raw("<!DOCTYPE html><html")
		h.attr("lang", lang)
		h.raw("><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		if page.RefreshSeconds > 0 {
			h.raw("<meta http-equiv=\"refresh\"")
			h.attr("content", itoa(page.RefreshSeconds))
			h.raw(">")
		}
		h.element("title", "", title)
		h.raw("<link rel=\"stylesheet\"")
		h.attr("href", routepath.Static+"site.css")
		h.raw("><script defer")
		h.attr("src", routepath.Static+"register.js")
		h.raw("></script></head><body><header class=\"site-header\">")
		h.raw("<a class=\"site-name\"")
		h.attr("href", routepath.Register)
		h.raw(">")
		h.text(siteName)
		h.raw("</a>")
		if page.SignedIn {
			h.raw("<form class=\"sign-out\" method=\"post\"")
			h.attr("action", routepath.CalnetLogout)
			h.raw("><button type=\"submit\">")
			h.text(T(page.Loc, "core.sign_out"))
			h.raw("</button></form>")
		}
		h.raw("</header><main>")
		if page.Title != "" {
			h.element("h1", "", page.Title)
		}
		h.component(ctx, body)
		h.raw("</main></body></html>")
	})
}

// Message renders a single paragraph of copy.
func Message(body string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.element("p", "message", body)
	})
}

// Package i18n resolves the request language and its message printer.
package i18n

import (
	"net/http"
	"strings"

	"github.com/louisbranch/ocfweb/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "ocfweb_lang"
)

// ResolveLanguage picks the request language from the lang query parameter,
// the language cookie, then Accept-Language. The result is a catalog locale.
func ResolveLanguage(r *http.Request) string {
	return resolveWith(catalog.Default(), r)
}

// Localizer returns the printer for the request and its language tag.
func Localizer(r *http.Request, resolve func(*http.Request) string) (*message.Printer, string) {
	if resolve == nil {
		resolve = ResolveLanguage
	}
	lang := resolve(r)
	return catalog.Default().Printer(lang), lang
}

func resolveWith(bundle *catalog.Bundle, r *http.Request) string {
	if r == nil {
		return catalog.BaseLocale
	}
	candidates := []string{r.URL.Query().Get(LangParam)}
	if cookie, err := r.Cookie(LangCookieName); err == nil {
		candidates = append(candidates, cookie.Value)
	}
	for _, candidate := range candidates {
		if locale := matchLocale(bundle, candidate); locale != "" {
			return locale
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if locale := matchLocale(bundle, accept); locale != "" {
			return locale
		}
	}
	return catalog.BaseLocale
}

func matchLocale(bundle *catalog.Bundle, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if bundle.HasLocale(raw) {
		return raw
	}
	desired, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(desired) == 0 {
		return ""
	}
	locales := bundle.Locales()
	tags := make([]language.Tag, 0, len(locales))
	for _, locale := range locales {
		tags = append(tags, language.Make(locale))
	}
	_, idx, confidence := language.NewMatcher(tags).Match(desired...)
	if confidence == language.No {
		return ""
	}
	return locales[idx]
}

// Package weberror renders shared error responses for web modules.
package weberror

import (
	"log"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	apperrors "github.com/louisbranch/ocfweb/internal/services/web/platform/errors"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/pagerender"
	webtemplates "github.com/louisbranch/ocfweb/internal/services/web/templates"
	"golang.org/x/text/message"
)

// ShouldRenderErrorPage reports whether status should use the full error page.
func ShouldRenderErrorPage(statusCode int) bool {
	return statusCode == http.StatusNotFound || statusCode >= http.StatusInternalServerError
}

// PublicMessage resolves a user-safe localized error message.
func PublicMessage(loc webtemplates.Localizer, err error) string {
	if err == nil {
		return ""
	}
	if loc != nil {
		if key := apperrors.LocalizationKey(err); key != "" {
			if localized := strings.TrimSpace(loc.Sprintf(key)); localized != "" && localized != key {
				return localized
			}
		}
	}
	statusCode := apperrors.HTTPStatus(err)
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}
	return http.StatusText(statusCode)
}

// WriteModuleError logs err and writes a localized error response. Server
// failures and not-found use the full error page; other statuses get plain
// text. Raw error text is never sent to the client.
func WriteModuleError(w http.ResponseWriter, r *http.Request, err error, deps module.Dependencies) {
	if w == nil {
		return
	}
	statusCode := apperrors.HTTPStatus(err)
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}
	logError(r, statusCode, err)

	loc := pagerender.Localizer(r, deps)
	publicMsg := PublicMessage(loc, err)
	if !ShouldRenderErrorPage(statusCode) {
		http.Error(w, publicMsg, statusCode)
		return
	}
	renderErr := pagerender.Write(w, r, deps, pagerender.Page{
		Title:      webtemplates.ErrorPageTitle(statusCode, loc),
		StatusCode: statusCode,
		Body: func(*message.Printer) templ.Component {
			return webtemplates.ErrorState(statusCode, publicMsg)
		},
	})
	if renderErr != nil {
		log.Printf("render error page status=%d err=%v", statusCode, renderErr)
		http.Error(w, publicMsg, statusCode)
	}
}

func logError(r *http.Request, statusCode int, err error) {
	method, path, requestID := "-", "-", "-"
	if r != nil {
		method = r.Method
		path = r.URL.Path
		if rid := strings.TrimSpace(r.Header.Get("X-Request-ID")); rid != "" {
			requestID = rid
		}
	}
	log.Printf("web error status=%d method=%s path=%s request_id=%s err=%v", statusCode, method, path, requestID, err)
}

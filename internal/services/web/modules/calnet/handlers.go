package calnet

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/ocfweb/internal/platform/id"
	apperrors "github.com/louisbranch/ocfweb/internal/services/web/platform/errors"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/pagerender"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/weberror"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	webtemplates "github.com/louisbranch/ocfweb/internal/services/web/templates"
	"golang.org/x/text/message"
)

const nonceCookieName = "ocfweb_calnet_nonce"

type handlers struct {
	cfg    Config
	state  stateSigner
	newID  func() (string, error)
	policy requestmeta.SchemePolicy
}

func newHandlers(cfg Config) handlers {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return handlers{
		cfg:    cfg,
		state:  stateSigner{key: cfg.StateKey, now: now},
		newID:  id.NewID,
		policy: cfg.Policy,
	}
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.Handle("GET "+routepath.CalnetLogin, http.HandlerFunc(h.handleLogin))
	mux.Handle("GET "+routepath.CalnetStart, http.HandlerFunc(h.handleStart))
	mux.Handle("GET "+routepath.CalnetCallback, http.HandlerFunc(h.handleCallback))
	mux.Handle("POST "+routepath.CalnetDevLogin, http.HandlerFunc(h.handleDevLogin))
	mux.Handle("POST "+routepath.CalnetLogout, http.HandlerFunc(h.handleLogout))
}

func (h handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Authenticator == nil && !h.cfg.DevLogin {
		h.writeError(w, r, apperrors.E(apperrors.KindUnavailable, "calnet sign-in is not configured"))
		return
	}
	next := httpx.LocalRedirectTarget(r.URL.Query().Get("next"), routepath.Register)
	view := webtemplates.CalnetLoginView{Next: next}
	if h.cfg.Authenticator != nil {
		view.StartURL = routepath.CalnetStart + "?next=" + url.QueryEscape(next)
	}
	if h.cfg.DevLogin {
		view.DevLoginAction = routepath.CalnetDevLogin
	}
	err := pagerender.Write(w, r, h.cfg.Dependencies, pagerender.Page{
		TitleKey: "calnet.login.title",
		Body: func(loc *message.Printer) templ.Component {
			view.Loc = loc
			return webtemplates.CalnetLogin(view)
		},
	})
	if err != nil {
		h.writeError(w, r, apperrors.Internal("render calnet login", err))
	}
}

func (h handlers) handleStart(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Authenticator == nil {
		h.writeError(w, r, apperrors.E(apperrors.KindNotFound, "single sign-on is not configured"))
		return
	}
	next := httpx.LocalRedirectTarget(r.URL.Query().Get("next"), routepath.Register)
	nonce, err := h.newID()
	if err != nil {
		h.writeError(w, r, apperrors.Internal("generate login nonce", err))
		return
	}
	state, err := h.state.sign(next, nonce)
	if err != nil {
		h.writeError(w, r, apperrors.Internal("sign login state", err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookieName,
		Value:    nonce,
		Path:     routepath.CalnetPrefix,
		MaxAge:   int(stateTTL / time.Second),
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, h.policy),
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteRedirect(w, r, h.cfg.Authenticator.AuthCodeURL(state, nonce))
}

func (h handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Authenticator == nil {
		h.writeError(w, r, apperrors.E(apperrors.KindNotFound, "single sign-on is not configured"))
		return
	}
	query := r.URL.Query()
	if providerErr := strings.TrimSpace(query.Get("error")); providerErr != "" {
		h.writeError(w, r, apperrors.E(apperrors.KindUnauthorized, "provider returned "+providerErr))
		return
	}
	claims, err := h.state.verify(query.Get("state"))
	if err != nil {
		h.writeError(w, r, apperrors.Error{Kind: apperrors.KindUnauthorized, Message: "invalid login state", Cause: err})
		return
	}
	nonceCookie, err := r.Cookie(nonceCookieName)
	if err != nil || nonceCookie.Value != claims.Nonce {
		h.writeError(w, r, apperrors.E(apperrors.KindUnauthorized, "login nonce mismatch"))
		return
	}
	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		h.writeError(w, r, apperrors.E(apperrors.KindInvalidInput, "authorization code is required"))
		return
	}
	calnetUID, err := h.cfg.Authenticator.Exchange(r.Context(), code, claims.Nonce)
	if err != nil {
		h.writeError(w, r, apperrors.Error{Kind: apperrors.KindUnauthorized, Message: "calnet sign-in failed", Cause: err})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: nonceCookieName, Path: routepath.CalnetPrefix, MaxAge: -1, HttpOnly: true})
	h.startSession(w, r, calnetUID, claims.Next)
}

func (h handlers) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.DevLogin {
		h.writeError(w, r, apperrors.E(apperrors.KindNotFound, "development sign-in is disabled"))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, apperrors.Error{Kind: apperrors.KindInvalidInput, Message: "invalid form", Cause: err})
		return
	}
	calnetUID := strings.TrimSpace(r.PostForm.Get("calnet_uid"))
	if calnetUID == "" {
		h.writeError(w, r, apperrors.E(apperrors.KindInvalidInput, "calnet uid is required"))
		return
	}
	h.startSession(w, r, calnetUID, r.PostForm.Get("next"))
}

func (h handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Sessions.End(w, r); err != nil {
		log.Printf("end session: %v", err)
	}
	httpx.WriteRedirect(w, r, routepath.Root)
}

func (h handlers) startSession(w http.ResponseWriter, r *http.Request, calnetUID string, next string) {
	session, err := h.cfg.Sessions.Start(w, r, calnetUID)
	if err != nil {
		h.writeError(w, r, apperrors.Internal("start session", err))
		return
	}
	log.Printf("calnet sign-in calnet_uid=%s", session.CalnetUID)
	httpx.WriteRedirect(w, r, httpx.LocalRedirectTarget(next, routepath.Register))
}

func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	weberror.WriteModuleError(w, r, err, h.cfg.Dependencies)
}

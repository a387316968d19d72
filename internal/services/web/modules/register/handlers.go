package register

import (
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/ocfweb/internal/services/accounts"
	apperrors "github.com/louisbranch/ocfweb/internal/services/web/platform/errors"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/pagerender"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/webctx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/weberror"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	webtemplates "github.com/louisbranch/ocfweb/internal/services/web/templates"
	"golang.org/x/text/message"
)

// waitRefreshSeconds is how often the working page reloads itself.
const waitRefreshSeconds = 2

type handlers struct {
	svc service
	cfg Config
}

func newHandlers(svc service, cfg Config) handlers {
	return handlers{svc: svc, cfg: cfg}
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	form := httpx.Chain(http.HandlerFunc(h.handleRegister), h.cfg.RequireSignIn)
	mux.Handle("GET "+routepath.Register+"{$}", form)
	mux.Handle("POST "+routepath.Register+"{$}", form)

	limit := httpx.RateLimit(h.cfg.RateLimit, func(r *http.Request) string {
		return requestmeta.ClientIP(r, h.cfg.SchemePolicy)
	})
	mux.Handle("GET "+routepath.RegisterRecommend, httpx.Chain(http.HandlerFunc(h.handleRecommend), limit))
	mux.Handle("GET "+routepath.RegisterValidate, httpx.Chain(http.HandlerFunc(h.handleValidate), limit))

	mux.HandleFunc("GET "+routepath.RegisterWait+"{$}", h.handleWait)
	mux.HandleFunc("GET "+routepath.RegisterPending+"{$}", h.staticPage("register.pending.title", "register.pending.body"))
	mux.HandleFunc("GET "+routepath.RegisterCreated+"{$}", h.staticPage("register.created.title", "register.created.body"))
	mux.HandleFunc(routepath.RegisterPrefix, func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperrors.E(apperrors.KindNotFound, "page not found"))
	})
}

func (h handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	session, ok := webctx.Session(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.E(apperrors.KindUnauthorized, "calnet sign-in required"))
		return
	}
	ctx := r.Context()
	elig, err := h.svc.precheck(ctx, session.CalnetUID)
	if err != nil {
		h.writeError(w, r, apperrors.Internal("registration precheck", err))
		return
	}
	switch elig.outcome {
	case alreadyHasAccount:
		h.render(w, r, "register.already_has_account.title", 0, func(loc *message.Printer) templ.Component {
			return webtemplates.AlreadyHasAccount(loc, elig.existingAccounts)
		})
		return
	case notInDirectory:
		h.render(w, r, "register.cant_find.title", 0, func(loc *message.Printer) templ.Component {
			return webtemplates.CantFindInDirectory(loc, elig.calnetUID)
		})
		return
	}

	view := formView{elig: elig}
	if r.Method != http.MethodPost {
		h.renderForm(w, r, view)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, apperrors.Error{Kind: apperrors.KindInvalidInput, Message: "invalid form", Cause: err})
		return
	}
	posted := readForm(r.PostForm)
	view.form = posted
	chosen, fieldErrs := posted.validate(elig.choices)
	if len(fieldErrs) > 0 {
		view.fieldErrors = fieldErrs
		h.renderForm(w, r, view)
		return
	}

	result, err := h.svc.submit(ctx, session.ID, chosen, posted)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	switch result.outcome {
	case submitCreating:
		httpx.WriteRedirect(w, r, routepath.RegisterWait)
	case submitPending:
		httpx.WriteRedirect(w, r, routepath.RegisterPending)
	case submitFlagged:
		view.warnings = result.messages
		h.renderForm(w, r, view)
	default:
		view.formErrors = result.messages
		h.renderForm(w, r, view)
	}
}

func (h handlers) renderForm(w http.ResponseWriter, r *http.Request, view formView) {
	h.render(w, r, "register.title", 0, func(loc *message.Printer) templ.Component {
		return webtemplates.RegisterForm(view.build(loc))
	})
}

func (h handlers) handleWait(w http.ResponseWriter, r *http.Request) {
	session, ok, err := h.cfg.Sessions.Load(r)
	if err != nil {
		h.writeError(w, r, apperrors.Internal("load session", err))
		return
	}
	taskID := ""
	if ok {
		taskID = session.ApproveTaskID
	}
	result, err := h.svc.poll(r.Context(), taskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	switch result.outcome {
	case pollNoTask:
		h.render(w, r, "register.wait.no_task.title", 0, func(loc *message.Printer) templ.Component {
			return webtemplates.Message(loc.Sprintf("register.wait.no_task.body"))
		})
	case pollWorking:
		h.render(w, r, "register.wait.title", waitRefreshSeconds, func(loc *message.Printer) templ.Component {
			return webtemplates.WaitWorking(loc, result.phases)
		})
	case pollCreated:
		httpx.WriteRedirect(w, r, routepath.RegisterCreated)
	default:
		h.render(w, r, "register.wait.not_created.title", 0, func(loc *message.Printer) templ.Component {
			return webtemplates.Message(loc.Sprintf("register.wait.not_created.body"))
		})
	}
}

func (h handlers) staticPage(titleKey string, bodyKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, titleKey, 0, func(loc *message.Printer) templ.Component {
			return webtemplates.Message(loc.Sprintf(bodyKey))
		})
	}
}

type recommendResponse struct {
	Recommendations []string `json:"recommendations"`
}

func (h handlers) handleRecommend(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("real_name") {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "No real_name in recommend request")
		return
	}
	names, err := accounts.Recommend(r.Context(), query.Get("real_name"), accounts.RecommendLimit, h.cfg.Registry)
	if err != nil {
		log.Printf("recommend usernames: %v", err)
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, recommendResponse{Recommendations: names})
}

type validateResponse struct {
	IsValid   bool   `json:"is_valid"`
	IsWarning *bool  `json:"is_warning,omitempty"`
	Msg       string `json:"msg"`
}

func (h handlers) handleValidate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("real_name") {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "No real_name in validate request")
		return
	}
	if !query.Has("username") {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "No username in validate request")
		return
	}
	err := accounts.ValidateUsername(r.Context(), query.Get("username"), query.Get("real_name"), h.cfg.Registry)
	if err == nil {
		loc := pagerender.Localizer(r, h.cfg.Dependencies)
		_ = httpx.WriteJSON(w, http.StatusOK, validateResponse{IsValid: true, Msg: loc.Sprintf("register.validate.available")})
		return
	}
	isWarning := false
	switch e := err.(type) {
	case *accounts.ValidationError:
	case *accounts.ValidationWarning:
		isWarning = true
	default:
		log.Printf("validate username: %v", e)
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, validateResponse{IsValid: false, IsWarning: &isWarning, Msg: err.Error()})
}

func (h handlers) render(w http.ResponseWriter, r *http.Request, titleKey string, refresh int, body func(*message.Printer) templ.Component) {
	err := pagerender.Write(w, r, h.cfg.Dependencies, pagerender.Page{
		TitleKey:       titleKey,
		RefreshSeconds: refresh,
		Body:           body,
	})
	if err != nil {
		h.writeError(w, r, apperrors.Internal("render "+titleKey, err))
	}
}

func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	weberror.WriteModuleError(w, r, err, h.cfg.Dependencies)
}

package register

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	tqsqlite "github.com/louisbranch/ocfweb/internal/platform/taskqueue/sqlite"
	"github.com/louisbranch/ocfweb/internal/services/accounts"
	"github.com/louisbranch/ocfweb/internal/services/directory"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	webstorage "github.com/louisbranch/ocfweb/internal/services/web/storage"
	webtemplates "github.com/louisbranch/ocfweb/internal/services/web/templates"
	"golang.org/x/net/html"
)

const (
	johnUID = "1034192"
	adaUID  = "872544"
)

type harness struct {
	handler  http.Handler
	store    *tqsqlite.Store
	tasks    *taskqueue.Client
	sessions *fakeSessions
}

type harnessOptions struct {
	registry   fakeRegistry
	policy     accounts.Policy
	signedIn   string
	taskID     string
	submitWait time.Duration
	rateLimit  httpx.RateLimitConfig
}

func newHarness(t *testing.T, opts harnessOptions) harness {
	t.Helper()
	store := openTaskStore(t)
	tasks := taskqueue.NewClient(store, taskqueue.WithPollInterval(5*time.Millisecond))
	sessions := &fakeSessions{}
	if opts.signedIn != "" {
		sessions.ok = true
		sessions.session = webstorage.Session{ID: "sess-1", CalnetUID: opts.signedIn, ApproveTaskID: opts.taskID}
	}
	submitWait := opts.submitWait
	if submitWait == 0 {
		submitWait = 5 * time.Second
	}
	m, err := New(Config{
		Directory: fakeDirectory{
			people: map[string]string{johnUID: "John Smith", adaUID: "Ada Lovelace"},
			groups: []directory.Group{
				{OID: "46130", Name: "Open Computing Facility", Signatories: []string{johnUID, adaUID}},
				{OID: "91740", Name: "CSUA", Signatories: []string{johnUID}},
			},
		},
		Registry:      opts.registry,
		Policy:        opts.policy,
		Tasks:         tasks,
		Encrypter:     fakeEncrypter{},
		Sessions:      sessions,
		RequireSignIn: requireSession(sessions),
		SubmitWait:    submitWait,
		RateLimit:     opts.rateLimit,
	}).Mount()
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if m.Prefix != routepath.RegisterPrefix {
		t.Fatalf("prefix = %q", m.Prefix)
	}
	return harness{handler: m.Handler, store: store, tasks: tasks, sessions: sessions}
}

func (h harness) get(target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func (h harness) post(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, routepath.Register, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func validForm() url.Values {
	return url.Values{
		webtemplates.FieldAssociation:    {"user:" + johnUID},
		webtemplates.FieldUsername:       {"jsmith"},
		webtemplates.FieldPassword:       {"correct horse 9"},
		webtemplates.FieldVerifyPassword: {"correct horse 9"},
		webtemplates.FieldEmail:          {"john@example.edu"},
		webtemplates.FieldVerifyEmail:    {"john@example.edu"},
		webtemplates.FieldDisclaimer:     {"on"},
	}
}

func parse(t *testing.T, rr *httptest.ResponseRecorder) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(rr.Body.String()))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return strings.Contains(" "+attr(n, "class")+" ", " "+class+" ")
	}
}

func hasForm(doc *html.Node) bool {
	return len(findAll(doc, func(n *html.Node) bool { return n.Data == "form" && attr(n, "id") == "register-form" })) > 0
}

func fieldErrorsOf(doc *html.Node, field string) []string {
	var out []string
	for _, ul := range findAll(doc, func(n *html.Node) bool { return n.Data == "ul" && attr(n, "data-field") == field }) {
		for _, li := range findAll(ul, func(n *html.Node) bool { return n.Data == "li" }) {
			out = append(out, text(li))
		}
	}
	return out
}

func listItems(doc *html.Node, class string) []string {
	var out []string
	for _, list := range findAll(doc, hasClass(class)) {
		for _, li := range findAll(list, func(n *html.Node) bool { return n.Data == "li" }) {
			out = append(out, text(li))
		}
	}
	return out
}

func TestMountRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}).Mount(); err == nil {
		t.Fatal("expected mount error without collaborators")
	}
}

func TestRegisterRedirectsWhenSignedOut(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	rr := h.get(routepath.Register)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != routepath.CalnetLogin {
		t.Fatalf("signed-out register = %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestRegisterExistingAccountWithoutEligibleGroupNeverShowsForm(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{
		signedIn: adaUID,
		registry: fakeRegistry{
			byUID: map[string][]string{adaUID: {"ada"}},
			byOID: map[string][]string{"46130": {"ocf"}},
		},
	})
	for _, rr := range []*httptest.ResponseRecorder{h.get(routepath.Register), h.post(validForm())} {
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		doc := parse(t, rr)
		if hasForm(doc) {
			t.Fatal("form rendered for a person who already has an account")
		}
		if got := findAll(doc, hasClass("already-has-account")); len(got) != 1 || !strings.Contains(text(got[0]), "ada") {
			t.Fatalf("already-has-account copy missing: %s", rr.Body.String())
		}
	}
}

func TestRegisterTesterWithAccountSeesForm(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{
		signedIn: adaUID,
		registry: fakeRegistry{
			byUID: map[string][]string{adaUID: {"ada"}},
			byOID: map[string][]string{"46130": {"ocf"}},
		},
		policy: accounts.Policy{TesterCalnetUIDs: []string{adaUID}},
	})
	doc := parse(t, h.get(routepath.Register))
	if !hasForm(doc) {
		t.Fatal("expected form for tester")
	}
}

func TestRegisterNotInDirectoryNeverShowsForm(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{signedIn: "999999"})
	rr := h.get(routepath.Register)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	doc := parse(t, rr)
	if hasForm(doc) {
		t.Fatal("form rendered for a person missing from the directory")
	}
	if got := findAll(doc, hasClass("cant-find")); len(got) != 1 || !strings.Contains(text(got[0]), "999999") {
		t.Fatalf("cant-find copy missing: %s", rr.Body.String())
	}
}

func TestRegisterFormOffersEligibleAssociations(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{
		signedIn: johnUID,
		registry: fakeRegistry{byOID: map[string][]string{"91740": {"csua"}}},
	})
	rr := h.get(routepath.Register)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	doc := parse(t, rr)
	var values []string
	for _, option := range findAll(doc, func(n *html.Node) bool { return n.Data == "option" }) {
		values = append(values, attr(option, "value"))
	}
	if diff := cmp.Diff([]string{"user:" + johnUID, "group:46130"}, values); diff != "" {
		t.Fatalf("association choices mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"CSUA"}, listItems(doc, "existing-groups")); diff != "" {
		t.Fatalf("existing groups mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitValidFormRedirectsToWait(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{signedIn: johnUID})
	var got accounts.NewAccountRequest
	done := runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
		if err := lease.Decode(&got); err != nil {
			return err
		}
		return lease.Complete(context.Background(), accounts.ValidationResult{CreateTaskID: "create-1"})
	})

	rr := h.post(validForm())
	<-done
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusFound, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != routepath.RegisterWait {
		t.Fatalf("location = %q, want %q", loc, routepath.RegisterWait)
	}
	if diff := cmp.Diff(map[string]string{"sess-1": "create-1"}, h.sessions.stored); diff != "" {
		t.Fatalf("stored task ids mismatch (-want +got):\n%s", diff)
	}
	want := accounts.NewRequest(accounts.Individual(johnUID), "John Smith", "jsmith", "john@example.edu", []byte("sealed:correct horse 9"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitAnywayForGroupRedirectsToPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{signedIn: johnUID})
	var got accounts.NewAccountRequest
	done := runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
		if err := lease.Decode(&got); err != nil {
			return err
		}
		return lease.Complete(context.Background(), accounts.ValidationResult{Response: &accounts.NewAccountResponse{Status: accounts.StatusPending}})
	})

	form := validForm()
	form.Set(webtemplates.FieldAssociation, "group:46130")
	form.Set(webtemplates.FieldUsername, "ocfgroup")
	form.Set(webtemplates.FieldSubmitAnyway, "1")
	rr := h.post(form)
	<-done
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != routepath.RegisterPending {
		t.Fatalf("submit = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if len(h.sessions.stored) != 0 {
		t.Fatalf("pending submission stored a task id: %v", h.sessions.stored)
	}
	want := accounts.NewRequest(accounts.Group("46130"), "Open Computing Facility", "ocfgroup", "john@example.edu", []byte("sealed:correct horse 9")).
		WithWarnings(accounts.WarningsSubmit)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitMismatchedPasswordsRerendersForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		edit func(url.Values)
	}{
		{name: "only mismatch", edit: func(url.Values) {}},
		{name: "with other errors", edit: func(v url.Values) {
			v.Set(webtemplates.FieldUsername, "X")
			v.Set(webtemplates.FieldEmail, "not-an-email")
			v.Del(webtemplates.FieldDisclaimer)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, harnessOptions{signedIn: johnUID})
			form := validForm()
			form.Set(webtemplates.FieldVerifyPassword, "different horse 9")
			tc.edit(form)

			rr := h.post(form)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
			}
			doc := parse(t, rr)
			if !hasForm(doc) {
				t.Fatal("expected form re-render")
			}
			if diff := cmp.Diff([]string{msgPasswordsMismatch}, fieldErrorsOf(doc, webtemplates.FieldVerifyPassword)); diff != "" {
				t.Fatalf("verify password errors mismatch (-want +got):\n%s", diff)
			}
			resend := browserForm(doc)
			for _, field := range []string{webtemplates.FieldPassword, webtemplates.FieldVerifyPassword} {
				if got := resend.Get(field); got != "" {
					t.Fatalf("invalid form echoed %s %q", field, got)
				}
			}
			if _, ok := claim(t, h.store, accounts.TaskValidateThenCreate); ok {
				t.Fatal("invalid form submitted a task")
			}
		})
	}
}

func TestSubmitRejectedShowsFormErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{signedIn: johnUID})
	done := runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
		return lease.Complete(context.Background(), accounts.ValidationResult{Response: &accounts.NewAccountResponse{
			Status: accounts.StatusRejected,
			Errors: []string{"Username is already taken."},
		}})
	})
	rr := h.post(validForm())
	<-done
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	doc := parse(t, rr)
	if diff := cmp.Diff([]string{"Username is already taken."}, listItems(doc, "errors")); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if len(findAll(doc, func(n *html.Node) bool { return attr(n, "name") == webtemplates.FieldSubmitAnyway })) != 0 {
		t.Fatal("rejected form offered submit anyway")
	}
	if len(h.sessions.stored) != 0 {
		t.Fatalf("rejection stored a task id: %v", h.sessions.stored)
	}
}

func TestSubmitFlaggedOffersSubmitAnyway(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{signedIn: johnUID})
	done := runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
		return lease.Complete(context.Background(), accounts.ValidationResult{Response: &accounts.NewAccountResponse{
			Status: accounts.StatusFlagged,
			Errors: []string{`Username "jsmith" is not based on the real name "John Smith".`},
		}})
	})
	rr := h.post(validForm())
	<-done
	doc := parse(t, rr)
	if got := listItems(doc, "warnings"); len(got) != 1 {
		t.Fatalf("warnings = %v", got)
	}
	buttons := findAll(doc, func(n *html.Node) bool { return attr(n, "name") == webtemplates.FieldSubmitAnyway })
	if len(buttons) != 1 {
		t.Fatalf("submit anyway buttons = %d, want 1", len(buttons))
	}
}

// browserForm collects the values a browser would post from the register
// form in doc.
func browserForm(doc *html.Node) url.Values {
	values := url.Values{}
	forms := findAll(doc, func(n *html.Node) bool { return n.Data == "form" && attr(n, "id") == "register-form" })
	if len(forms) == 0 {
		return values
	}
	for _, n := range findAll(forms[0], func(n *html.Node) bool { return n.Data == "input" || n.Data == "select" }) {
		name := attr(n, "name")
		if name == "" {
			continue
		}
		if n.Data == "select" {
			for _, option := range findAll(n, func(n *html.Node) bool { return n.Data == "option" }) {
				if hasAttr(option, "selected") {
					values.Set(name, attr(option, "value"))
				}
			}
			continue
		}
		if attr(n, "type") == "checkbox" && !hasAttr(n, "checked") {
			continue
		}
		values.Set(name, attr(n, "value"))
	}
	return values
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func TestSubmitAnywayFromFlaggedPage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{signedIn: johnUID})
	done := runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
		return lease.Complete(context.Background(), accounts.ValidationResult{Response: &accounts.NewAccountResponse{
			Status: accounts.StatusFlagged,
			Errors: []string{`Username "jsmith" is not based on the real name "John Smith".`},
		}})
	})
	rr := h.post(validForm())
	<-done
	if rr.Code != http.StatusOK {
		t.Fatalf("flagged status = %d, want %d", rr.Code, http.StatusOK)
	}

	resend := browserForm(parse(t, rr))
	resend.Set(webtemplates.FieldSubmitAnyway, "1")
	for _, field := range []string{webtemplates.FieldPassword, webtemplates.FieldVerifyPassword} {
		if got := resend.Get(field); got != "correct horse 9" {
			t.Fatalf("%s resent as %q", field, got)
		}
	}

	var got accounts.NewAccountRequest
	done = runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
		if err := lease.Decode(&got); err != nil {
			return err
		}
		return lease.Complete(context.Background(), accounts.ValidationResult{CreateTaskID: "create-1"})
	})
	rr = h.post(resend)
	<-done
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != routepath.RegisterWait {
		t.Fatalf("submit anyway = %d %q: %s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}
	want := accounts.NewRequest(accounts.Individual(johnUID), "John Smith", "jsmith", "john@example.edu", []byte("sealed:correct horse 9")).
		WithWarnings(accounts.WarningsSubmit)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitInconsistentResultsAreInternalErrors(t *testing.T) {
	t.Parallel()

	t.Run("wait timeout", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{signedIn: johnUID, submitWait: 20 * time.Millisecond})
		if rr := h.post(validForm()); rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
		}
	})
	t.Run("unexpected status", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{signedIn: johnUID})
		done := runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
			return lease.Complete(context.Background(), accounts.ValidationResult{Response: &accounts.NewAccountResponse{Status: accounts.StatusCreated}})
		})
		rr := h.post(validForm())
		<-done
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
		}
	})
	t.Run("task failed", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{signedIn: johnUID})
		done := runWorker(t, h.store, accounts.TaskValidateThenCreate, func(lease *taskqueue.Lease) error {
			return lease.Fail(context.Background(), "registry unavailable")
		})
		rr := h.post(validForm())
		<-done
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
		}
	})
}

// submitCreateTask enqueues a create task the way the worker hands one off.
func submitCreateTask(t *testing.T, h harness) string {
	t.Helper()
	handle, err := h.tasks.Submit(context.Background(), accounts.TaskCreate, accounts.NewAccountRequest{Username: "jsmith"})
	if err != nil {
		t.Fatalf("submit create task: %v", err)
	}
	return handle.ID()
}

func TestWaitWithoutTaskShowsNoTaskPage(t *testing.T) {
	t.Parallel()

	for _, opts := range []harnessOptions{{}, {signedIn: johnUID}, {signedIn: johnUID, taskID: "missing-task"}} {
		h := newHarness(t, opts)
		rr := h.get(routepath.RegisterWait)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if !strings.Contains(rr.Body.String(), "No account request found") {
			t.Fatalf("expected no-task page: %s", rr.Body.String())
		}
	}
}

func TestWaitOnUnfinishedTaskShowsPhases(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{signedIn: johnUID})
	taskID := submitCreateTask(t, h)
	h.sessions.session.ApproveTaskID = taskID

	rr := h.get(routepath.RegisterWait)
	if rr.Code != http.StatusOK {
		t.Fatalf("queued status = %d, want %d", rr.Code, http.StatusOK)
	}
	if diff := cmp.Diff([]string{PhaseStartingCreation}, listItems(parse(t, rr), "phases")); diff != "" {
		t.Fatalf("queued phases mismatch (-want +got):\n%s", diff)
	}

	lease, ok := claim(t, h.store, accounts.TaskCreate)
	if !ok {
		t.Fatal("expected create task to be claimable")
	}
	for _, phase := range []string{"Reserving username", "Creating home directory"} {
		if err := lease.Progress(context.Background(), phase); err != nil {
			t.Fatalf("progress: %v", err)
		}
	}
	rr = h.get(routepath.RegisterWait)
	if rr.Code != http.StatusOK {
		t.Fatalf("running status = %d, want %d", rr.Code, http.StatusOK)
	}
	doc := parse(t, rr)
	want := []string{PhaseStartingCreation, "Reserving username", "Creating home directory"}
	if diff := cmp.Diff(want, listItems(doc, "phases")); diff != "" {
		t.Fatalf("running phases mismatch (-want +got):\n%s", diff)
	}
	refresh := findAll(doc, func(n *html.Node) bool { return n.Data == "meta" && attr(n, "http-equiv") == "refresh" })
	if len(refresh) != 1 {
		t.Fatalf("refresh meta tags = %d, want 1", len(refresh))
	}
}

func TestWaitOnFinishedTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		finish   func(*taskqueue.Lease) error
		status   int
		location string
		body     string
	}{
		{
			name:     "created",
			finish:   func(l *taskqueue.Lease) error { return l.Complete(context.Background(), accounts.NewAccountResponse{Status: accounts.StatusCreated}) },
			status:   http.StatusFound,
			location: routepath.RegisterCreated,
		},
		{
			name:   "other response",
			finish: func(l *taskqueue.Lease) error { return l.Complete(context.Background(), accounts.NewAccountResponse{Status: accounts.StatusRejected}) },
			status: http.StatusOK,
			body:   "probably not created",
		},
		{
			name:   "other shape",
			finish: func(l *taskqueue.Lease) error { return l.Complete(context.Background(), []string{"unexpected"}) },
			status: http.StatusOK,
			body:   "probably not created",
		},
		{
			name:   "failed",
			finish: func(l *taskqueue.Lease) error { return l.Fail(context.Background(), "home directory quota exceeded") },
			status: http.StatusInternalServerError,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, harnessOptions{signedIn: johnUID})
			h.sessions.session.ApproveTaskID = submitCreateTask(t, h)
			lease, ok := claim(t, h.store, accounts.TaskCreate)
			if !ok {
				t.Fatal("expected create task to be claimable")
			}
			if err := tc.finish(lease); err != nil {
				t.Fatalf("finish: %v", err)
			}

			rr := h.get(routepath.RegisterWait)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			if got := rr.Header().Get("Location"); got != tc.location {
				t.Fatalf("location = %q, want %q", got, tc.location)
			}
			if tc.body != "" && !strings.Contains(rr.Body.String(), tc.body) {
				t.Fatalf("body missing %q: %s", tc.body, rr.Body.String())
			}
		})
	}
}

func TestStaticPages(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	for path, title := range map[string]string{
		routepath.RegisterPending: "Account request pending",
		routepath.RegisterCreated: "Account request successful",
	} {
		rr := h.get(path)
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), title) {
			t.Fatalf("%s = %d: %s", path, rr.Code, rr.Body.String())
		}
	}
	if rr := h.get("/account/register/unknown"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRecommend(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{registry: fakeRegistry{taken: map[string]bool{"john": true}}})

	rr := h.get(routepath.RegisterRecommend)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing real_name status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = h.get(routepath.RegisterRecommend + "?real_name=" + url.QueryEscape("John Quincy Adams Smith"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body struct {
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Recommendations == nil || len(body.Recommendations) > accounts.RecommendLimit {
		t.Fatalf("recommendations = %v", body.Recommendations)
	}
	for _, name := range body.Recommendations {
		if name == "john" {
			t.Fatal("recommended a taken username")
		}
		if err := accounts.ValidateUsernameFormat(name); err != nil {
			t.Fatalf("recommended invalid username %q: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{registry: fakeRegistry{taken: map[string]bool{"jsmith": true}}})
	for _, target := range []string{
		routepath.RegisterValidate + "?username=jsmith",
		routepath.RegisterValidate + "?real_name=John+Smith",
	} {
		if rr := h.get(target); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want %d", target, rr.Code, http.StatusBadRequest)
		}
	}

	tests := []struct {
		username string
		want     map[string]any
	}{
		{username: "johns", want: map[string]any{"is_valid": true, "msg": "Username is available."}},
		{username: "jsmith", want: map[string]any{"is_valid": false, "is_warning": false, "msg": "Username is already taken."}},
		{username: "zebra", want: map[string]any{"is_valid": false, "is_warning": true, "msg": `Username "zebra" is not based on the real name "John Smith".`}},
	}
	for _, tc := range tests {
		rr := h.get(routepath.RegisterValidate + "?real_name=John+Smith&username=" + tc.username)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want %d", tc.username, rr.Code, http.StatusOK)
		}
		var got map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s response mismatch (-want +got):\n%s", tc.username, diff)
		}
	}
}

func TestHelperEndpointsAreRateLimited(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{rateLimit: httpx.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}})
	target := routepath.RegisterRecommend + "?real_name=John+Smith"
	if rr := h.get(target); rr.Code != http.StatusOK {
		t.Fatalf("first status = %d, want %d", rr.Code, http.StatusOK)
	}
	rr := h.get(target)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

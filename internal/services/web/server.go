package web

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/ocfweb/internal/platform/grpc"
	"github.com/louisbranch/ocfweb/internal/platform/schedule"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	taskqueuesqlite "github.com/louisbranch/ocfweb/internal/platform/taskqueue/sqlite"
	"github.com/louisbranch/ocfweb/internal/platform/timeouts"
	"github.com/louisbranch/ocfweb/internal/services/accounts"
	accountssqlite "github.com/louisbranch/ocfweb/internal/services/accounts/storage/sqlite"
	"github.com/louisbranch/ocfweb/internal/services/directory"
	"github.com/louisbranch/ocfweb/internal/services/web/composition"
	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	"github.com/louisbranch/ocfweb/internal/services/web/modules"
	"github.com/louisbranch/ocfweb/internal/services/web/modules/calnet"
	"github.com/louisbranch/ocfweb/internal/services/web/modules/register"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/i18n"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/weberror"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/websession"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	websqlite "github.com/louisbranch/ocfweb/internal/services/web/storage/sqlite"
	"google.golang.org/grpc"
)

// workerHealthService is the gRPC health service the worker reports.
const workerHealthService = "worker.runtime"

const defaultSessionPruneSchedule = "@every 15m"

// Config defines the inputs for the web server.
type Config struct {
	HTTPAddr       string
	SessionDBPath  string
	TasksDBPath    string
	AccountsDBPath string
	DirectoryPath  string
	PublicKeyPath  string

	// SubmitWait bounds how long a registration submit waits for the worker.
	SubmitWait           time.Duration
	SessionTTL           time.Duration
	SessionPruneSchedule string

	TesterCalnetUIDs []string
	TestGroupOIDs    []string

	// OIDC enables single sign-on when IssuerURL is set.
	OIDC calnet.OIDCConfig
	// StateKey signs login state tokens. Empty uses a per-process key.
	StateKey string
	DevLogin bool

	RateLimit           httpx.RateLimitConfig
	RequestSchemePolicy requestmeta.SchemePolicy

	// WorkerAddr is the worker health gRPC address; empty skips the probe.
	WorkerAddr      string
	GRPCDialTimeout time.Duration

	AccessLog *log.Logger
}

// Server hosts the account request web surface.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	pruner     *schedule.Scheduler
	workerConn *grpc.ClientConn
	closers    []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// NewServer builds a configured web server.
func NewServer(config Config) (*Server, error) {
	return NewServerWithContext(context.Background(), config)
}

// NewServerWithContext opens the stores, loads keys and the directory, and
// composes the HTTP handler.
func NewServerWithContext(ctx context.Context, config Config) (_ *Server, err error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if strings.TrimSpace(config.DirectoryPath) == "" {
		return nil, errors.New("directory path is required")
	}
	if strings.TrimSpace(config.PublicKeyPath) == "" {
		return nil, errors.New("public key path is required")
	}
	if config.GRPCDialTimeout <= 0 {
		config.GRPCDialTimeout = timeouts.GRPCDial
	}
	if strings.TrimSpace(config.SessionPruneSchedule) == "" {
		config.SessionPruneSchedule = defaultSessionPruneSchedule
	}

	s := &Server{httpAddr: httpAddr}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	for _, path := range []string{config.SessionDBPath, config.TasksDBPath, config.AccountsDBPath} {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
	}

	dir, err := directory.LoadFile(config.DirectoryPath)
	if err != nil {
		return nil, err
	}
	publicKey, err := accounts.LoadPublicKey(config.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}
	encrypter, err := accounts.NewPasswordEncrypter(publicKey)
	if err != nil {
		return nil, err
	}

	sessionStore, err := websqlite.Open(ctx, config.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("open session sqlite store: %w", err)
	}
	s.closers = append(s.closers, namedCloser{"session sqlite store", sessionStore.Close})

	tasksStore, err := taskqueuesqlite.Open(ctx, config.TasksDBPath)
	if err != nil {
		return nil, fmt.Errorf("open task sqlite store: %w", err)
	}
	s.closers = append(s.closers, namedCloser{"task sqlite store", tasksStore.Close})

	accountsStore, err := accountssqlite.Open(ctx, config.AccountsDBPath)
	if err != nil {
		return nil, fmt.Errorf("open account sqlite store: %w", err)
	}
	s.closers = append(s.closers, namedCloser{"account sqlite store", accountsStore.Close})

	var authenticator calnet.Authenticator
	if strings.TrimSpace(config.OIDC.IssuerURL) != "" {
		oidcAuth, err := calnet.NewOIDCAuthenticator(ctx, config.OIDC)
		if err != nil {
			return nil, err
		}
		authenticator = oidcAuth
	}
	if authenticator == nil && !config.DevLogin {
		log.Printf("no sign-in method configured; registration is unavailable")
	}
	stateKey, err := resolveStateKey(config.StateKey)
	if err != nil {
		return nil, err
	}

	if addr := strings.TrimSpace(config.WorkerAddr); addr != "" {
		conn, err := platformgrpc.DialWithHealth(ctx, addr, workerHealthService, config.GRPCDialTimeout, log.Printf)
		if err != nil {
			// Submissions queue until a worker claims them.
			log.Printf("worker health check failed, submissions will wait for a worker: %v", err)
		} else {
			s.workerConn = conn
		}
	}

	sessions := websession.NewManager(sessionStore, websession.Config{
		TTL:    config.SessionTTL,
		Policy: config.RequestSchemePolicy,
	})
	shared := module.Dependencies{
		ResolveLanguage: i18n.ResolveLanguage,
		ResolveSignedIn: sessions.SignedIn,
	}
	onSessionError := func(w http.ResponseWriter, r *http.Request, err error) {
		weberror.WriteModuleError(w, r, err, shared)
	}

	handler, err := composition.ComposeAppHandler(composition.ComposeInput{
		ModuleDependencies: modules.Dependencies{
			Shared: shared,
			Calnet: calnet.Config{
				Sessions:      sessions,
				Authenticator: authenticator,
				StateKey:      stateKey,
				DevLogin:      config.DevLogin,
			},
			Register: register.Config{
				Directory: dir,
				Registry:  accountsStore,
				Policy: accounts.Policy{
					TesterCalnetUIDs: config.TesterCalnetUIDs,
					TestGroupOIDs:    config.TestGroupOIDs,
				},
				Tasks:         taskqueue.NewClient(tasksStore, taskqueue.WithPollInterval(timeouts.TaskPoll)),
				Encrypter:     encrypter,
				Sessions:      sessions,
				RequireSignIn: sessions.Require(routepath.CalnetLogin, onSessionError),
				SubmitWait:    config.SubmitWait,
				RateLimit:     config.RateLimit,
			},
		},
		RequestSchemePolicy: config.RequestSchemePolicy,
		AccessLog:           config.AccessLog,
	})
	if err != nil {
		return nil, fmt.Errorf("build handler: %w", err)
	}

	s.pruner, err = schedule.Start(ctx, config.SessionPruneSchedule, schedule.Job{
		Name: "prune_expired_sessions",
		Run:  sessions.Prune,
	})
	if err != nil {
		return nil, fmt.Errorf("schedule session pruning: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return s, nil
}

// Handler returns the composed root handler.
func (s *Server) Handler() http.Handler {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Handler
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("web listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close stops background jobs and releases stores and connections.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.pruner != nil {
		s.pruner.Stop()
		s.pruner = nil
	}
	if s.workerConn != nil {
		if err := s.workerConn.Close(); err != nil {
			log.Printf("close worker gRPC connection: %v", err)
		}
		s.workerConn = nil
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].close(); err != nil {
			log.Printf("close %s: %v", s.closers[i].name, err)
		}
	}
	s.closers = nil
}

func resolveStateKey(configured string) ([]byte, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return []byte(key), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate state key: %w", err)
	}
	return key, nil
}

func ensureDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("storage path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return nil
}

// Package web parses web command flags and launches the account request
// web server.
package web

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/ocfweb/internal/platform/cmd"
	"github.com/louisbranch/ocfweb/internal/platform/discovery"
	"github.com/louisbranch/ocfweb/internal/platform/timeouts"
	"github.com/louisbranch/ocfweb/internal/services/web"
	"github.com/louisbranch/ocfweb/internal/services/web/modules/calnet"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
)

// Config holds the web command configuration.
type Config struct {
	HTTPAddr             string        `env:"WEB_HTTP_ADDR"`
	SessionDBPath        string        `env:"WEB_SESSION_DB_PATH" envDefault:"data/web.db"`
	TasksDBPath          string        `env:"TASKS_DB_PATH" envDefault:"data/tasks.db"`
	AccountsDBPath       string        `env:"ACCOUNTS_DB_PATH" envDefault:"data/accounts.db"`
	DirectoryPath        string        `env:"WEB_DIRECTORY_PATH" envDefault:"data/directory.yaml"`
	PublicKeyPath        string        `env:"WEB_PUBLIC_KEY_PATH" envDefault:"data/create.pub"`
	SubmitWait           time.Duration `env:"WEB_SUBMIT_WAIT"`
	SessionTTL           time.Duration `env:"WEB_SESSION_TTL" envDefault:"2h"`
	SessionPruneSchedule string        `env:"WEB_SESSION_PRUNE_SCHEDULE" envDefault:"@every 15m"`
	TesterCalnetUIDs     []string      `env:"TESTER_CALNET_UIDS" envSeparator:","`
	TestGroupOIDs        []string      `env:"TEST_GROUP_OIDS" envSeparator:","`
	OIDCIssuerURL        string        `env:"WEB_OIDC_ISSUER_URL"`
	OIDCClientID         string        `env:"WEB_OIDC_CLIENT_ID"`
	OIDCClientSecret     string        `env:"WEB_OIDC_CLIENT_SECRET"`
	OIDCRedirectURL      string        `env:"WEB_OIDC_REDIRECT_URL"`
	OIDCUIDClaim         string        `env:"WEB_OIDC_UID_CLAIM"`
	StateKey             string        `env:"WEB_STATE_KEY"`
	DevLogin             bool          `env:"WEB_DEV_LOGIN"`
	RateLimit            float64       `env:"WEB_RATE_LIMIT" envDefault:"5"`
	RateBurst            int           `env:"WEB_RATE_BURST" envDefault:"10"`
	TrustForwardedProto  bool          `env:"WEB_TRUST_FORWARDED_PROTO"`
	TrustForwardedFor    bool          `env:"WEB_TRUST_FORWARDED_FOR"`
	WorkerAddr           string        `env:"WEB_WORKER_ADDR"`
	GRPCDialTimeout      time.Duration `env:"WEB_GRPC_DIAL_TIMEOUT"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.HTTPAddr = discovery.OrDefaultHTTPAddr(cfg.HTTPAddr, discovery.ServiceWeb)
	cfg.WorkerAddr = discovery.OrDefaultGRPCAddr(cfg.WorkerAddr, discovery.ServiceWorker)
	if cfg.SubmitWait <= 0 {
		cfg.SubmitWait = timeouts.SubmitWait
	}
	if cfg.GRPCDialTimeout <= 0 {
		cfg.GRPCDialTimeout = timeouts.GRPCDial
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.SessionDBPath, "session-db-path", cfg.SessionDBPath, "The web session SQLite database path")
	fs.StringVar(&cfg.TasksDBPath, "tasks-db-path", cfg.TasksDBPath, "The task queue SQLite database path")
	fs.StringVar(&cfg.AccountsDBPath, "accounts-db-path", cfg.AccountsDBPath, "The account registry SQLite database path")
	fs.StringVar(&cfg.DirectoryPath, "directory", cfg.DirectoryPath, "YAML campus directory file")
	fs.StringVar(&cfg.PublicKeyPath, "public-key", cfg.PublicKeyPath, "PEM public key used to encrypt submitted passwords")
	fs.DurationVar(&cfg.SubmitWait, "submit-wait", cfg.SubmitWait, "How long a submit waits for validation")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Signed-in session lifetime")
	fs.StringVar(&cfg.SessionPruneSchedule, "session-prune-schedule", cfg.SessionPruneSchedule, "Cron spec for pruning expired sessions")
	fs.StringVar(&cfg.OIDCIssuerURL, "oidc-issuer", cfg.OIDCIssuerURL, "CalNet OpenID Connect issuer URL; empty disables single sign-on")
	fs.StringVar(&cfg.OIDCClientID, "oidc-client-id", cfg.OIDCClientID, "OpenID Connect client id")
	fs.StringVar(&cfg.OIDCRedirectURL, "oidc-redirect-url", cfg.OIDCRedirectURL, "OpenID Connect callback URL")
	fs.BoolVar(&cfg.DevLogin, "dev-login", cfg.DevLogin, "Allow signing in with a typed CalNet UID")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Trust X-Forwarded-Proto from the proxy")
	fs.BoolVar(&cfg.TrustForwardedFor, "trust-forwarded-for", cfg.TrustForwardedFor, "Trust X-Forwarded-For from the proxy")
	fs.StringVar(&cfg.WorkerAddr, "worker-addr", cfg.WorkerAddr, "Worker health gRPC address; empty skips the check")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the web server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, func(ctx context.Context) error {
		server, err := web.NewServerWithContext(ctx, serverConfig(cfg))
		if err != nil {
			return fmt.Errorf("init web server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve web: %w", err)
		}
		return nil
	})
}

func serverConfig(cfg Config) web.Config {
	return web.Config{
		HTTPAddr:             cfg.HTTPAddr,
		SessionDBPath:        cfg.SessionDBPath,
		TasksDBPath:          cfg.TasksDBPath,
		AccountsDBPath:       cfg.AccountsDBPath,
		DirectoryPath:        cfg.DirectoryPath,
		PublicKeyPath:        cfg.PublicKeyPath,
		SubmitWait:           cfg.SubmitWait,
		SessionTTL:           cfg.SessionTTL,
		SessionPruneSchedule: cfg.SessionPruneSchedule,
		TesterCalnetUIDs:     cfg.TesterCalnetUIDs,
		TestGroupOIDs:        cfg.TestGroupOIDs,
		OIDC: calnet.OIDCConfig{
			IssuerURL:    cfg.OIDCIssuerURL,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			UIDClaim:     cfg.OIDCUIDClaim,
		},
		StateKey: cfg.StateKey,
		DevLogin: cfg.DevLogin,
		RateLimit: httpx.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit,
			Burst:             cfg.RateBurst,
		},
		RequestSchemePolicy: requestmeta.SchemePolicy{
			TrustForwardedProto: cfg.TrustForwardedProto,
			TrustForwardedFor:   cfg.TrustForwardedFor,
		},
		WorkerAddr:      cfg.WorkerAddr,
		GRPCDialTimeout: cfg.GRPCDialTimeout,
	}
}

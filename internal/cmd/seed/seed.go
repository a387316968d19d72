// Package seed loads existing accounts into the account registry and lists
// requests held for staff review.
package seed

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	entrypoint "github.com/louisbranch/ocfweb/internal/platform/cmd"
	"github.com/louisbranch/ocfweb/internal/services/accounts/storage"
	accountssqlite "github.com/louisbranch/ocfweb/internal/services/accounts/storage/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config holds seed command configuration.
type Config struct {
	AccountsDBPath string `env:"ACCOUNTS_DB_PATH" envDefault:"data/accounts.db"`
	FixturePath    string `env:"SEED_FIXTURE_PATH" envDefault:"data/accounts.yaml"`
	// Pending lists held requests instead of loading the fixture.
	Pending bool
	Limit   int
}

// Account is one fixture entry. Exactly one of CalnetUID and CallinkOID is set.
type Account struct {
	Username   string `yaml:"username"`
	RealName   string `yaml:"real_name"`
	CalnetUID  string `yaml:"calnet_uid"`
	CallinkOID string `yaml:"callink_oid"`
	Email      string `yaml:"email"`
}

type fixture struct {
	Accounts []Account `yaml:"accounts"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Limit: 50}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.AccountsDBPath, "accounts-db-path", cfg.AccountsDBPath, "The account registry SQLite database path")
	fs.StringVar(&cfg.FixturePath, "fixture", cfg.FixturePath, "YAML file of existing accounts")
	fs.BoolVar(&cfg.Pending, "pending", cfg.Pending, "List requests held for staff review")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "Maximum pending requests to list")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	store, err := accountssqlite.Open(ctx, cfg.AccountsDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Pending {
		return listPending(ctx, store, cfg.Limit, out)
	}
	entries, err := loadFixture(cfg.FixturePath)
	if err != nil {
		return err
	}
	created, skipped, err := seedAccounts(ctx, store, entries)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded accounts created=%d skipped=%d\n", created, skipped)
	return nil
}

func loadFixture(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var contents fixture
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return contents.Accounts, nil
}

// seedAccounts inserts entries with an unusable password. Usernames that
// already exist are skipped.
func seedAccounts(ctx context.Context, registry storage.Registry, entries []Account) (created int, skipped int, err error) {
	for _, entry := range entries {
		hash, err := unusablePasswordHash()
		if err != nil {
			return created, skipped, err
		}
		err = registry.CreateAccount(ctx, storage.AccountRecord{
			Username:     strings.TrimSpace(entry.Username),
			RealName:     entry.RealName,
			CalnetUID:    strings.TrimSpace(entry.CalnetUID),
			CallinkOID:   strings.TrimSpace(entry.CallinkOID),
			Email:        entry.Email,
			PasswordHash: hash,
		})
		if errors.Is(err, storage.ErrUsernameTaken) {
			skipped++
			continue
		}
		if err != nil {
			return created, skipped, fmt.Errorf("seed account %q: %w", entry.Username, err)
		}
		created++
	}
	return created, skipped, nil
}

func unusablePasswordHash() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	return bcrypt.GenerateFromPassword(secret, bcrypt.MinCost)
}

func listPending(ctx context.Context, registry storage.Registry, limit int, out io.Writer) error {
	requests, err := registry.ListPendingRequests(ctx, limit)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		fmt.Fprintln(out, "No pending requests.")
		return nil
	}
	for _, req := range requests {
		owner := "calnet_uid=" + req.CalnetUID
		if req.CallinkOID != "" {
			owner = "callink_oid=" + req.CallinkOID
		}
		fmt.Fprintf(out, "%s username=%s %s created_at=%s\n", req.ID, req.Username, owner, req.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
		for _, warning := range req.Warnings {
			fmt.Fprintf(out, "  warning: %s\n", warning)
		}
	}
	return nil
}

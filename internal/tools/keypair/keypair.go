// Package keypair generates the RSA key pair used to seal submitted passwords
// between the web front end and the worker.
package keypair

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/ocfweb/internal/services/accounts"
)

const minBits = 2048

// Config holds configuration for key pair generation.
type Config struct {
	Bits           int
	PrivateKeyPath string
	PublicKeyPath  string
	Force          bool
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bits: 3072, PrivateKeyPath: "data/create.key", PublicKeyPath: "data/create.pub"}
	fs.IntVar(&cfg.Bits, "bits", cfg.Bits, "RSA modulus size in bits")
	fs.StringVar(&cfg.PrivateKeyPath, "private", cfg.PrivateKeyPath, "output path for the worker private key")
	fs.StringVar(&cfg.PublicKeyPath, "public", cfg.PublicKeyPath, "output path for the web public key")
	fs.BoolVar(&cfg.Force, "force", cfg.Force, "overwrite existing key files")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the key pair, writes both PEM files, and reports the
// environment settings pointing at them to out.
func Run(cfg Config, out io.Writer) error {
	if cfg.Bits < minBits {
		return fmt.Errorf("bits must be at least %d", minBits)
	}
	if strings.TrimSpace(cfg.PrivateKeyPath) == "" || strings.TrimSpace(cfg.PublicKeyPath) == "" {
		return errors.New("private and public key paths are required")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if !cfg.Force {
		for _, path := range []string{cfg.PrivateKeyPath, cfg.PublicKeyPath} {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists; use -force to overwrite", path)
			}
		}
	}

	key, err := rsa.GenerateKey(rand.Reader, cfg.Bits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	privatePEM, publicPEM, err := accounts.EncodeKeyPair(key)
	if err != nil {
		return err
	}
	if err := writeFile(cfg.PrivateKeyPath, privatePEM, 0o600); err != nil {
		return err
	}
	if err := writeFile(cfg.PublicKeyPath, publicPEM, 0o644); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "OCFWEB_WORKER_PRIVATE_KEY_PATH=%s\nOCFWEB_WEB_PUBLIC_KEY_PATH=%s\n", cfg.PrivateKeyPath, cfg.PublicKeyPath)
	return err
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

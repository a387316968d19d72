package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedHasExpectedLocales(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	if !bundle.HasLocale(BaseLocale) {
		t.Fatalf("expected base locale %s", BaseLocale)
	}
	if !bundle.HasLocale("es-419") {
		t.Fatal("expected locale es-419")
	}
	if got := len(bundle.NamespaceMessages("en-US", "register")); got == 0 {
		t.Fatal("expected en-US register namespace messages")
	}
}

func TestPrinterUsesBaseCopy(t *testing.T) {
	p := Default().Printer("en-US")
	if got, want := p.Sprintf("register.validate.available"), "Username is available."; got != want {
		t.Fatalf("Sprintf() = %q, want %q", got, want)
	}
	if got, want := p.Sprintf("register.form.association.group", "Open Computing Facility"), "Group account for Open Computing Facility"; got != want {
		t.Fatalf("Sprintf() = %q, want %q", got, want)
	}
}

func TestPrinterMatchesAcceptLanguage(t *testing.T) {
	p := Default().Printer("es-MX,es;q=0.9,en;q=0.5")
	if got, want := p.Sprintf("register.pending.title"), "Solicitud de cuenta pendiente"; got != want {
		t.Fatalf("Sprintf() = %q, want %q", got, want)
	}
	// Keys missing from es-419 fall back to base copy.
	if got, want := p.Sprintf("register.validate.available"), "Username is available."; got != want {
		t.Fatalf("fallback Sprintf() = %q, want %q", got, want)
	}
}

func TestPrinterDefaultsOnGarbageHeader(t *testing.T) {
	p := Default().Printer(";;;")
	if got, want := p.Sprintf("register.created.title"), "Account request successful"; got != want {
		t.Fatalf("Sprintf() = %q, want %q", got, want)
	}
}

func TestMessageFallsBackToBase(t *testing.T) {
	value, ok := Default().Message("es-419", "register.created.body")
	if !ok {
		t.Fatal("expected fallback message")
	}
	if value == "" {
		t.Fatal("expected non-empty fallback")
	}
	if _, ok := Default().Message("en-US", "register.nope"); ok {
		t.Fatal("expected missing key")
	}
}

func TestLoadFromFSRejectsCoreKeyOutsideCoreNamespace(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/register.yaml"), `locale: "en-US"
namespace: "register"
messages:
  core.bad: "nope"
`)
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/core.yaml"), `locale: "en-US"
namespace: "core"
messages:
  core.good: "ok"
`)

	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFromFSRejectsDuplicateKeysAcrossNamespaces(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/core.yaml"), `locale: "en-US"
namespace: "core"
messages:
  a.key: "a"
`)
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/register.yaml"), `locale: "en-US"
namespace: "register"
messages:
  a.key: "b"
`)

	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestLoadFromFSRejectsLocaleMismatch(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/core.yaml"), `locale: "pt-BR"
namespace: "core"
messages:
  core.a: "a"
`)
	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected locale mismatch error")
	}
}

func TestLoadFromFSRequiresBaseLocale(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/es-419/core.yaml"), `locale: "es-419"
namespace: "core"
messages:
  core.a: "a"
`)
	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected missing base locale error")
	}
}

func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

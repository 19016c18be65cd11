package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// unsetEnv clears keys for the duration of the test. t.Setenv registers the
// restore, Unsetenv makes them absent rather than empty.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	path, err := Load("/nonexistent/path/config.yaml", discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	cfgPath := writeConfig(t, `
knowledge:
  root: /srv/knowledge_base
  schema_dir: /srv/schemas
store:
  backend: qdrant
  collection: agency_knowledge_v2
embedding:
  provider: ollama
  model: nomic-embed-text
  dimensions: 768
qdrant:
  host: qdrant.internal
  port: 6334
  tls: true
logging:
  level: debug
  format: text
`)

	checks := map[string]string{
		"KBRAG_ROOT":           "/srv/knowledge_base",
		"KBRAG_SCHEMA_DIR":     "/srv/schemas",
		"KBRAG_STORE":          "qdrant",
		"KBRAG_COLLECTION":     "agency_knowledge_v2",
		"EMBEDDING_PROVIDER":   "ollama",
		"EMBEDDING_MODEL":      "nomic-embed-text",
		"EMBEDDING_DIMENSIONS": "768",
		"QDRANT_HOST":          "qdrant.internal",
		"QDRANT_PORT":          "6334",
		"QDRANT_TLS":           "true",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	keys := make([]string, 0, len(checks)+1)
	for k := range checks {
		keys = append(keys, k)
	}
	unsetEnv(t, append(keys, "KBRAG_DB_PATH")...)

	loaded, err := Load(cfgPath, discard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
	if _, set := os.LookupEnv("KBRAG_DB_PATH"); set {
		t.Error("KBRAG_DB_PATH should stay unset when absent from YAML")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	cfgPath := writeConfig(t, "store:\n  backend: memory\n")
	t.Setenv("KBRAG_STORE", "sqlite")

	if _, err := Load(cfgPath, discard()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := os.Getenv("KBRAG_STORE"); got != "sqlite" {
		t.Errorf("KBRAG_STORE: expected env override %q, got %q", "sqlite", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "{{invalid yaml")
	if _, err := Load(cfgPath, discard()); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestResolveConfigPath_EnvVar(t *testing.T) {
	cfgPath := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv("KBRAG_CONFIG", cfgPath)

	if got := resolveConfigPath(""); got != cfgPath {
		t.Errorf("expected %q, got %q", cfgPath, got)
	}
	if got := resolveConfigPath("/does/not/exist.yaml"); got != "" {
		t.Errorf("missing explicit path should resolve to empty, got %q", got)
	}
}

func TestIntStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int
		want string
	}{
		{0, ""},
		{768, "768"},
		{-1, "-1"},
	}
	for _, tt := range tests {
		if got := intStr(tt.in); got != tt.want {
			t.Errorf("intStr(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

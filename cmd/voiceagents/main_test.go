package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func setupCLIEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV_FILE", filepath.Join(dir, "none.env"))
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "agents.db"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("VOICE_PROVIDER", "mock")
	return dir
}

func TestAgentsImportAndList(t *testing.T) {
	dir := setupCLIEnv(t)
	catalog := filepath.Join(dir, "agents.toml")
	content := `
[[agent]]
id = "7"
name = "Support"
voice_id = "v1"
is_active = true

[agent.voice_settings]
stability = 0.5
similarity_boost = 0.8

[[agent]]
id = "8"
name = "Silent"
`
	if err := os.WriteFile(catalog, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out, _, err := runCLI(t, "agents", "import", catalog)
	if err != nil {
		t.Fatalf("agents import: %v", err)
	}
	if !strings.Contains(out, "Imported 2 agent(s)") {
		t.Fatalf("import output = %q", out)
	}

	out, _, err = runCLI(t, "agents", "list")
	if err != nil {
		t.Fatalf("agents list: %v", err)
	}
	for _, want := range []string{"Support", "Silent", "v1", "0.50", "0.75"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestAgentsListEmpty(t *testing.T) {
	setupCLIEnv(t)
	out, _, err := runCLI(t, "agents", "list")
	if err != nil {
		t.Fatalf("agents list: %v", err)
	}
	if !strings.Contains(out, "No agents found") {
		t.Fatalf("list output = %q", out)
	}
}

func TestAgentsImportRejectsInvalidCatalog(t *testing.T) {
	dir := setupCLIEnv(t)
	catalog := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(catalog, []byte("[[agent]]\nname = \"no id\"\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, _, err := runCLI(t, "agents", "import", catalog); err == nil {
		t.Fatalf("agents import expected error for missing id")
	}
}

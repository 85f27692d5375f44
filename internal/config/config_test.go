package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"calllab/internal/config"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calllab.json")
	body := `{
  "db_config": {
    "host": "db.internal",
    "port": 5433,
    "database": "pipeline",
    "user": "svc",
    "password": "secret",
    "fallback_hosts": ["10.0.0.2", "10.0.0.3"]
  },
  "llm_endpoint": "http://10.0.0.5:1234",
  "grading": {"api_base": "https://api.openai.com/v1", "model": "gpt-4o-mini"}
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.Port != 5433 {
		t.Fatalf("db config = %+v", cfg.DB)
	}
	if len(cfg.DB.FallbackHosts) != 2 {
		t.Fatalf("fallback hosts = %v", cfg.DB.FallbackHosts)
	}
	if cfg.LLMEndpoint != "http://10.0.0.5:1234" {
		t.Fatalf("endpoint = %q", cfg.LLMEndpoint)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 {
		t.Fatalf("defaults = %+v", cfg.DB)
	}
	if cfg.Grading.Model != "gpt-4o-mini" {
		t.Fatalf("grading model = %q", cfg.Grading.Model)
	}
}

func TestEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://u:p@10.1.1.1:5432/calllab")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.URL != "postgres://u:p@10.1.1.1:5432/calllab" {
		t.Fatalf("db url = %q", cfg.DB.URL)
	}
	if cfg.Grading.APIKey != "sk-test" {
		t.Fatalf("api key = %q", cfg.Grading.APIKey)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPromptsFromYAML(t *testing.T) {
	set, err := config.PromptsFromYAML([]byte(`
prompts:
  - id: basic_booking
    domain: healthcare
    prompt: "Generate a scheduling conversation."
  - id: cancellation
    prompt: "Generate a cancellation conversation."
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(set.Prompts) != 2 {
		t.Fatalf("prompts = %d, want 2", len(set.Prompts))
	}
	if set.Prompts[0].ID != "basic_booking" || set.Prompts[0].Domain != "healthcare" {
		t.Fatalf("first prompt = %+v", set.Prompts[0])
	}
}

func TestPromptsValidation(t *testing.T) {
	if _, err := config.PromptsFromYAML([]byte("prompts: []")); err == nil {
		t.Fatal("empty set should fail")
	}
	if _, err := config.PromptsFromYAML([]byte("prompts:\n  - id: x\n    prompt: \"\"")); err == nil {
		t.Fatal("empty template should fail")
	}
	if _, err := config.PromptsFromYAML([]byte("prompts:\n  - prompt: hi")); err == nil {
		t.Fatal("missing id should fail")
	}
}

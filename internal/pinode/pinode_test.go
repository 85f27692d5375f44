package pinode

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	governorDir := filepath.Join(dir, "cpu0")
	if err := os.MkdirAll(governorDir, 0o755); err != nil {
		t.Fatal(err)
	}
	governor := filepath.Join(governorDir, "scaling_governor")
	writeFile(t, governor, "ondemand")

	m := NewManager(modelsDir)
	m.GovernorGlob = filepath.Join(dir, "cpu*", "scaling_governor")
	return m, governor
}

func TestSetupSplitsModels(t *testing.T) {
	m, governor := newTestManager(t)
	writeFile(t, filepath.Join(m.ModelDirs[0], "gemma-1.1-2b-it-Q4_K_M.gguf"), "")
	writeFile(t, filepath.Join(m.ModelDirs[0], "nomic-embed-text-v1.5.f16.gguf"), "")
	writeFile(t, filepath.Join(m.ModelDirs[0], "notes.txt"), "")

	if err := m.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if filepath.Base(m.ChatModel) != "gemma-1.1-2b-it-Q4_K_M.gguf" {
		t.Fatalf("chat model = %q", m.ChatModel)
	}
	if filepath.Base(m.EmbeddingModel) != "nomic-embed-text-v1.5.f16.gguf" {
		t.Fatalf("embedding model = %q", m.EmbeddingModel)
	}
	data, _ := os.ReadFile(governor)
	if string(data) != "performance" {
		t.Fatalf("governor = %q, want performance", string(data))
	}
}

func TestSetupRequiresChatModel(t *testing.T) {
	m, governor := newTestManager(t)
	writeFile(t, filepath.Join(m.ModelDirs[0], "nomic-embed-text-v1.5.f16.gguf"), "")

	if err := m.Setup(); err == nil {
		t.Fatal("setup should fail without a chat model")
	}
	data, _ := os.ReadFile(governor)
	if string(data) != "ondemand" {
		t.Fatal("governor must not change when setup fails")
	}
}

func TestTeardownResetsGovernor(t *testing.T) {
	m, governor := newTestManager(t)
	writeFile(t, governor, "performance")
	if err := m.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	data, _ := os.ReadFile(governor)
	if string(data) != "ondemand" {
		t.Fatalf("governor = %q, want ondemand", string(data))
	}
}

func TestMissingModelDirsTolerated(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := m.scanModels(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m.ChatModel != "" {
		t.Fatalf("chat model = %q, want empty", m.ChatModel)
	}
}

// Package pinode prepares a Raspberry Pi worker for local inference:
// it locates the GGUF model files and switches the CPU frequency
// governor for the run.
package pinode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const governorGlob = "/sys/devices/system/cpu/cpu*/cpufreq/scaling_governor"

// Manager scans the configured model directories and drives the CPU
// governor through sysfs.
type Manager struct {
	ModelDirs      []string
	GovernorGlob   string
	ChatModel      string
	EmbeddingModel string
}

func NewManager(dirs ...string) *Manager {
	if len(dirs) == 0 {
		home, _ := os.UserHomeDir()
		dirs = []string{
			filepath.Join(home, "llama.cpp", "models"),
			filepath.Join(home, "models"),
		}
	}
	return &Manager{ModelDirs: dirs, GovernorGlob: governorGlob}
}

// Setup locates the chat and embedding models and sets the governor to
// performance. It fails when no chat model is found; a missing embedding
// model is tolerated.
func (m *Manager) Setup() error {
	if err := m.scanModels(); err != nil {
		return err
	}
	if m.ChatModel == "" {
		return fmt.Errorf("no chat model (.gguf) found in %v", m.ModelDirs)
	}
	if err := m.setGovernor("performance"); err != nil {
		return fmt.Errorf("set cpu governor: %w", err)
	}
	return nil
}

// Teardown resets the governor to ondemand.
func (m *Manager) Teardown() error {
	if err := m.setGovernor("ondemand"); err != nil {
		return fmt.Errorf("reset cpu governor: %w", err)
	}
	return nil
}

// scanModels walks the model directories and splits GGUF files into the
// chat model and the embedding model. A file counts as an embedding
// model when its name contains "embed".
func (m *Manager) scanModels() error {
	for _, dir := range m.ModelDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".gguf") {
				continue
			}
			path := filepath.Join(dir, name)
			if strings.Contains(strings.ToLower(name), "embed") {
				if m.EmbeddingModel == "" {
					m.EmbeddingModel = path
				}
			} else if m.ChatModel == "" {
				m.ChatModel = path
			}
		}
	}
	return nil
}

func (m *Manager) setGovernor(mode string) error {
	paths, err := filepath.Glob(m.GovernorGlob)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no cpufreq governor files under %s", m.GovernorGlob)
	}
	for _, p := range paths {
		if err := os.WriteFile(p, []byte(mode), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}

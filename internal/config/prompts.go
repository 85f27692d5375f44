package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptTemplate is one entry of a prompt-template YAML file.
type PromptTemplate struct {
	ID     string `yaml:"id"`
	Domain string `yaml:"domain,omitempty"`
	Prompt string `yaml:"prompt"`
}

// PromptSet models a test_prompts.yaml file.
type PromptSet struct {
	Prompts []PromptTemplate `yaml:"prompts"`
}

// LoadPrompts parses a prompt-template YAML file.
func LoadPrompts(path string) (*PromptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return PromptsFromYAML(data)
}

// PromptsFromYAML parses and validates prompt templates from raw YAML bytes.
func PromptsFromYAML(data []byte) (*PromptSet, error) {
	var set PromptSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("invalid prompts yaml: %w", err)
	}
	if len(set.Prompts) == 0 {
		return nil, fmt.Errorf("prompts file contains no prompts")
	}
	for i, p := range set.Prompts {
		if p.ID == "" {
			return nil, fmt.Errorf("prompt %d has no id", i)
		}
		if p.Prompt == "" {
			return nil, fmt.Errorf("prompt %s has empty template", p.ID)
		}
	}
	return &set, nil
}

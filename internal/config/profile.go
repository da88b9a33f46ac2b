package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentProfile configures the support agent's persona.
type AgentProfile struct {
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
	Greeting     string `yaml:"greeting"`
	MaxSteps     int    `yaml:"max_steps"`
	HistoryLimit int    `yaml:"history_limit"`
}

// DefaultAgentProfile is used when no profile file is configured.
func DefaultAgentProfile() AgentProfile {
	return AgentProfile{
		Name:         "Support Agent",
		Instructions: "You are a Customer Support Agent.",
		Greeting:     "Hey! How can I help you today?",
		MaxSteps:     5,
		HistoryLimit: 50,
	}
}

// LoadAgentProfile reads a YAML profile. Fields left empty keep their defaults.
// An empty path returns the defaults.
func LoadAgentProfile(path string) (AgentProfile, error) {
	p := DefaultAgentProfile()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read agent profile: %w", err)
	}

	var override AgentProfile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("parse agent profile: %w", err)
	}

	if override.Name != "" {
		p.Name = override.Name
	}
	if override.Instructions != "" {
		p.Instructions = override.Instructions
	}
	if override.Greeting != "" {
		p.Greeting = override.Greeting
	}
	if override.MaxSteps > 0 {
		p.MaxSteps = override.MaxSteps
	}
	if override.HistoryLimit > 0 {
		p.HistoryLimit = override.HistoryLimit
	}
	return p, nil
}

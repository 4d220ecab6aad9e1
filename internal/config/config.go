package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Dependency describes one piece of the development stack frogup waits on.
type Dependency struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
	Target      string            `yaml:"target"`
	Command     []string          `yaml:"command"`
	Expect      string            `yaml:"expect"`
	Headers     map[string]string `yaml:"headers"`
	Timeout     Duration          `yaml:"timeout"`
	Interval    Duration          `yaml:"interval"`
	WaitTimeout Duration          `yaml:"wait_timeout"`
}

// ComposeConfig holds docker compose settings.
type ComposeConfig struct {
	File    string `yaml:"file"`
	Project string `yaml:"project"`
}

// WebhookConfig holds notification webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// NotifyConfig holds all notification configuration.
type NotifyConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Tool is one developer tool the environment doctor verifies.
type Tool struct {
	Name     string   `yaml:"name"`
	Command  []string `yaml:"command"`
	Optional bool     `yaml:"optional"`
}

// DoctorConfig holds environment doctor settings. An empty Tools list
// means the built-in toolchain set.
type DoctorConfig struct {
	Tools []Tool `yaml:"tools"`
}

// Config is the root application configuration.
type Config struct {
	Dependencies []Dependency  `yaml:"dependencies"`
	Compose      ComposeConfig `yaml:"compose"`
	Notify       NotifyConfig  `yaml:"notify"`
	Server       ServerConfig  `yaml:"server"`
	Storage      StorageConfig `yaml:"storage"`
	Doctor       DoctorConfig  `yaml:"doctor"`
}

var validTypes = map[string]bool{
	"http":   true,
	"port":   true,
	"cmd":    true,
	"docker": true,
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Unmarshal into a raw intermediate to detect YAML parse errors vs duration errors.
	type rawDependency struct {
		Name        string            `yaml:"name"`
		Type        string            `yaml:"type"`
		Target      string            `yaml:"target"`
		Command     []string          `yaml:"command"`
		Expect      string            `yaml:"expect"`
		Headers     map[string]string `yaml:"headers"`
		Timeout     string            `yaml:"timeout"`
		Interval    string            `yaml:"interval"`
		WaitTimeout string            `yaml:"wait_timeout"`
	}
	type rawConfig struct {
		Dependencies []rawDependency `yaml:"dependencies"`
		Compose      ComposeConfig   `yaml:"compose"`
		Notify       NotifyConfig    `yaml:"notify"`
		Server       ServerConfig    `yaml:"server"`
		Storage      StorageConfig   `yaml:"storage"`
		Doctor       DoctorConfig    `yaml:"doctor"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults.
	if raw.Server.Address == "" {
		raw.Server.Address = ":8080"
	}
	if raw.Storage.Path == "" {
		raw.Storage.Path = "frogup.db"
	}
	if raw.Compose.File == "" {
		raw.Compose.File = "docker-compose.yml"
	}

	if len(raw.Dependencies) == 0 {
		return nil, fmt.Errorf("at least one dependency must be configured")
	}

	cfg := &Config{
		Compose: raw.Compose,
		Notify:  raw.Notify,
		Server:  raw.Server,
		Storage: raw.Storage,
		Doctor:  raw.Doctor,
	}

	names := make(map[string]bool, len(raw.Dependencies))
	for i, rd := range raw.Dependencies {
		if rd.Name == "" {
			return nil, fmt.Errorf("dependency[%d]: name is required", i)
		}
		if names[rd.Name] {
			return nil, fmt.Errorf("duplicate dependency name %q", rd.Name)
		}
		names[rd.Name] = true

		if !validTypes[rd.Type] {
			return nil, fmt.Errorf("dependency %q: invalid type %q (must be http, port, cmd, or docker)", rd.Name, rd.Type)
		}

		switch rd.Type {
		case "cmd":
			if len(rd.Command) == 0 {
				return nil, fmt.Errorf("dependency %q: command is required for type cmd", rd.Name)
			}
			if rd.Expect == "" {
				return nil, fmt.Errorf("dependency %q: expect is required for type cmd", rd.Name)
			}
		default:
			if rd.Target == "" {
				return nil, fmt.Errorf("dependency %q: target is required", rd.Name)
			}
		}

		dep := Dependency{
			Name:    rd.Name,
			Type:    rd.Type,
			Target:  rd.Target,
			Command: rd.Command,
			Expect:  rd.Expect,
			Headers: rd.Headers,
		}

		var err error
		dep.Timeout, err = parseDurationField(rd.Name, "timeout", rd.Timeout, 5*time.Second)
		if err != nil {
			return nil, err
		}
		dep.Interval, err = parseDurationField(rd.Name, "interval", rd.Interval, 2*time.Second)
		if err != nil {
			return nil, err
		}
		dep.WaitTimeout, err = parseDurationField(rd.Name, "wait_timeout", rd.WaitTimeout, 60*time.Second)
		if err != nil {
			return nil, err
		}

		cfg.Dependencies = append(cfg.Dependencies, dep)
	}

	return cfg, nil
}

func parseDurationField(dep, field, value string, def time.Duration) (Duration, error) {
	if value == "" {
		return Duration{def}, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return Duration{}, fmt.Errorf("dependency %q: invalid %s %q: %w", dep, field, value, err)
	}
	return Duration{d}, nil
}

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"leadboard/internal/domain"
)

// Config models leadboard.yml.
type Config struct {
	Store struct {
		Backend   string `yaml:"backend"`
		Workspace string `yaml:"workspace"`
		Firebase  struct {
			ProjectID       string `yaml:"project_id"`
			CredentialsFile string `yaml:"credentials_file"`
		} `yaml:"firebase"`
	} `yaml:"store"`
	Auth struct {
		Mode         string `yaml:"mode"`
		LocalUser    string `yaml:"local_user"`
		JWTSecretEnv string `yaml:"jwt_secret_env"`
	} `yaml:"auth"`
	Board  Board  `yaml:"board"`
	Report Report `yaml:"report"`
}

type Board struct {
	StatusCriticality []string      `yaml:"status_criticality"`
	PendingLimit      int           `yaml:"pending_limit"`
	DefaultTasks      []DefaultTask `yaml:"default_tasks"`
}

type DefaultTask struct {
	Title string `yaml:"title" json:"title"`
	Link  string `yaml:"link" json:"link,omitempty"`
}

type Report struct {
	Timezone        string        `yaml:"timezone"`
	RetentionDays   int           `yaml:"retention_days"`
	MaxEntries      int           `yaml:"max_entries"`
	CompletedWindow time.Duration `yaml:"completed_window"`
	NoSystemLabel   string        `yaml:"no_system_label"`
	OtherLabel      string        `yaml:"other_label"`
	RetentionSweep  time.Duration `yaml:"retention_sweep"`
}

const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"

	AuthLocal    = "local"
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
	case BackendFirestore:
		if c.Store.Firebase.ProjectID == "" && c.Store.Firebase.CredentialsFile == "" {
			return fmt.Errorf("store.firebase needs project_id or credentials_file")
		}
	default:
		return fmt.Errorf("store.backend must be sqlite or firestore, got %q", c.Store.Backend)
	}
	switch c.Auth.Mode {
	case AuthLocal:
		if c.Auth.LocalUser == "" {
			return fmt.Errorf("auth.local_user is required in local mode")
		}
	case AuthJWT:
		if c.Auth.JWTSecretEnv == "" {
			return fmt.Errorf("auth.jwt_secret_env is required in jwt mode")
		}
	case AuthFirebase:
		if c.Store.Backend != BackendFirestore {
			return fmt.Errorf("auth.mode firebase requires store.backend firestore")
		}
	default:
		return fmt.Errorf("auth.mode must be local, jwt or firebase, got %q", c.Auth.Mode)
	}
	seen := map[string]bool{}
	for _, s := range c.Board.StatusCriticality {
		st := domain.Status(s)
		if !st.Valid() || st == domain.StatusConcluido {
			return fmt.Errorf("board.status_criticality has invalid status %q", s)
		}
		if seen[s] {
			return fmt.Errorf("board.status_criticality repeats %q", s)
		}
		seen[s] = true
	}
	if c.Board.PendingLimit <= 0 {
		return fmt.Errorf("board.pending_limit must be positive")
	}
	for i, t := range c.Board.DefaultTasks {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("board.default_tasks[%d] has empty title", i)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("report.timezone: %w", err)
	}
	if c.Report.RetentionDays <= 0 {
		return fmt.Errorf("report.retention_days must be positive")
	}
	if c.Report.MaxEntries <= 0 {
		return fmt.Errorf("report.max_entries must be positive")
	}
	if c.Report.CompletedWindow <= 0 {
		return fmt.Errorf("report.completed_window must be positive")
	}
	return nil
}

// Location resolves report.timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.Timezone == "" || c.Report.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.Timezone)
}

// Criticality returns board.status_criticality as typed statuses.
func (c *Config) Criticality() []domain.Status {
	out := make([]domain.Status, 0, len(c.Board.StatusCriticality))
	for _, s := range c.Board.StatusCriticality {
		out = append(out, domain.Status(s))
	}
	return out
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "leadboard.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(localUser string) string {
	return fmt.Sprintf(defaultTemplate, localUser)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with leadboard config init", path)
		}
		return nil, err
	}
	return fromWorkspace(workspace, data)
}

func fromWorkspace(workspace string, data []byte) (*Config, error) {
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Workspace == "" {
		cfg.Store.Workspace = workspace
	}
	return cfg, nil
}

// LoadOrDefault returns the default config when the workspace has no file.
func LoadOrDefault(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default("")
			cfg.Store.Workspace = workspace
			return cfg, nil
		}
		return nil, err
	}
	return fromWorkspace(workspace, data)
}

// Default returns the default Config struct.
func Default(localUser string) *Config {
	if localUser == "" {
		localUser = "local-user"
	}
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(localUser))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing sections keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `store:
  backend: sqlite
  workspace: .
  firebase:
    project_id: ""
    credentials_file: ""

auth:
  mode: local
  local_user: %s
  jwt_secret_env: LEADBOARD_JWT_SECRET

board:
  status_criticality: [op_assistida, homologacao, desenvolvimento, setup]
  pending_limit: 5
  default_tasks:
    - title: "Verificar igualdade das chaves do KeyVault entre ambientes"
    - title: "Criar documento de release"
      link: "https://dev.azure.com/leadboard/_wiki/wikis/release-notes"
    - title: "Equalizar branches"

report:
  timezone: Local
  retention_days: 3
  max_entries: 3
  completed_window: 24h
  no_system_label: "Sem Sistema"
  other_label: "Outros"
  retention_sweep: 1h
`

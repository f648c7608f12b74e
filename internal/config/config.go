package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoRoles            = errors.New("no roles configured")
	ErrTooManyRoles       = errors.New("too many roles configured")
	ErrDuplicateRole      = errors.New("duplicate role")
	ErrUnnamedRole        = errors.New("role without a name")
	ErrInvalidMinimum     = errors.New("role minimum must be at least 1")
	ErrInvalidReadyPeriod = errors.New("ready period must be positive")
)

// Settings come from the environment and flags.
type Settings struct {
	Addr        string        `env:"ADDR" envDefault:":8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	RolesFile   string        `env:"ROLES_FILE" envDefault:"roles.yaml"`
	ReadyPeriod time.Duration `env:"READY_PERIOD" envDefault:"30s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string        `env:"LOG_FILE"`
}

type Config struct {
	Settings
	Roles []engine.Role
}

type roleFile struct {
	Roles []engine.Role `yaml:"roles"`
}

// Load reads .env (if present), the environment, then command-line flags, and
// finally the role file. The result is validated; any error is fatal.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg.Settings); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.RolesFile, "roles", cfg.RolesFile, "role configuration file")
	flags.DurationVar(&cfg.ReadyPeriod, "ready-period", cfg.ReadyPeriod, "ready check duration")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	roles, err := LoadRoles(cfg.RolesFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Roles = roles

	if cfg.ReadyPeriod <= 0 {
		return Config{}, ErrInvalidReadyPeriod
	}
	return cfg, nil
}

// LoadRoles reads the ordered role list from a YAML file.
func LoadRoles(path string) ([]engine.Role, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles: %w", err)
	}
	return ParseRoles(data)
}

func ParseRoles(data []byte) ([]engine.Role, error) {
	var rf roleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse roles: %w", err)
	}
	if err := ValidateRoles(rf.Roles); err != nil {
		return nil, err
	}
	return rf.Roles, nil
}

func ValidateRoles(roles []engine.Role) error {
	if len(roles) == 0 {
		return ErrNoRoles
	}
	if len(roles) > engine.MaxRoles {
		return fmt.Errorf("%w: %d > %d", ErrTooManyRoles, len(roles), engine.MaxRoles)
	}

	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if r.Name == "" {
			return ErrUnnamedRole
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateRole, r.Name)
		}
		seen[r.Name] = true
		if r.MinimumPerTeam < 1 {
			return fmt.Errorf("%w: %s", ErrInvalidMinimum, r.Name)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Verdant/internal/advisor"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

type Config struct {
	Server   ServerConfig       `yaml:"server"`
	Database DatabaseConfig     `yaml:"database"`
	Hermes   HermesConfig       `yaml:"hermes"`
	Run      RunDefaults        `yaml:"run"`
	Advisor  advisor.Config     `yaml:"advisor"`
	Profiles map[string]Profile `yaml:"profiles"`
	Logging  LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL   string `yaml:"url"`
	Query string `yaml:"query"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

// RunDefaults apply to every run unless the profile or a flag overrides them.
type RunDefaults struct {
	Method          string  `yaml:"method"`
	Workers         int     `yaml:"workers"`
	ChunkSize       int     `yaml:"chunk_size"`
	SingleCandidate string  `yaml:"single_candidate"`
	PassThreshold   float64 `yaml:"pass_threshold"`
	ParetoLimit     int     `yaml:"pareto_limit"`
}

// Profile is a named evaluation setup: which column identifies candidates,
// which criteria are scored, and how results are classified.
type Profile struct {
	Description    string                        `yaml:"description" json:"description"`
	IDColumn       string                        `yaml:"id_column" json:"id_column"`
	Criteria       []scoring.CriterionSpec       `yaml:"criteria" json:"criteria"`
	Requirements   []scoring.Requirement         `yaml:"requirements" json:"requirements,omitempty"`
	Classification *scoring.ClassificationPolicy `yaml:"classification" json:"classification,omitempty"`
	Advisor        bool                          `yaml:"advisor" json:"advisor"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Overrides are per-run adjustments, typically from CLI flags or a request.
type Overrides struct {
	RunID     string
	Weights   map[string]float64
	Threshold *float64
	Workers   *int
	Method    string
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Run: RunDefaults{
			Method:          string(scoring.MinMax),
			Workers:         1,
			SingleCandidate: string(scoring.FailOnSingle),
			PassThreshold:   scoring.DefaultPassThreshold,
			ParetoLimit:     scoring.DefaultParetoLimit,
		},
		Advisor:  advisor.DefaultConfig(),
		Profiles: BuiltinProfiles(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VERDANT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("VERDANT_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("VERDANT_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("VERDANT_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("VERDANT_DATABASE_QUERY"); v != "" {
		cfg.Database.Query = v
	}
	if v := os.Getenv("VERDANT_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("VERDANT_METHOD"); v != "" {
		cfg.Run.Method = v
	}
	if v := os.Getenv("VERDANT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Run.Workers = n
		}
	}
	if v := os.Getenv("VERDANT_PASS_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Run.PassThreshold = f
		}
	}
	if v := os.Getenv("VERDANT_ADVISOR_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Advisor.Seed = n
		}
	}
	if v := os.Getenv("VERDANT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VERDANT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VERDANT_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile looks up a profile by name.
func (c *Config) Profile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (have %v)", name, c.ProfileNames())
	}
	return p, nil
}

// ToRunConfig combines the run defaults, a profile and per-run overrides into
// a validated run configuration. Weight overrides must name every criterion
// of the profile.
func (c *Config) ToRunConfig(p Profile, o Overrides) (scoring.RunConfig, error) {
	criteria := p.Criteria
	if len(o.Weights) > 0 {
		var err error
		criteria, err = scoring.ApplyWeights(p.Criteria, o.Weights)
		if err != nil {
			return scoring.RunConfig{}, err
		}
	}

	policy := scoring.ThresholdPolicy(c.Run.PassThreshold, scoring.StatusPass, scoring.StatusFail)
	if p.Classification != nil {
		policy = *p.Classification
	}
	if o.Threshold != nil {
		policy = scoring.ThresholdPolicy(*o.Threshold, scoring.StatusPass, scoring.StatusFail)
	}

	method := scoring.NormalizationMethod(c.Run.Method)
	if o.Method != "" {
		method = scoring.NormalizationMethod(o.Method)
	}

	workers := c.Run.Workers
	if o.Workers != nil {
		workers = *o.Workers
	}

	rc := scoring.RunConfig{
		RunID:           o.RunID,
		Criteria:        criteria,
		Method:          method,
		Policy:          policy,
		Requirements:    p.Requirements,
		Workers:         workers,
		ChunkSize:       c.Run.ChunkSize,
		SingleCandidate: scoring.SingleCandidatePolicy(c.Run.SingleCandidate),
		ParetoLimit:     c.Run.ParetoLimit,
	}
	if err := rc.Validate(); err != nil {
		return scoring.RunConfig{}, err
	}
	return rc, nil
}

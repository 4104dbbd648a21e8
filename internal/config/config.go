// Package config loads and validates the craft-stats configuration file.
package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "craft-stats.yaml"

// EnvPrefix prefixes environment variables overriding configuration keys.
const EnvPrefix = "CRAFT_STATS"

var (
	ErrMissingToken   = errors.New("no GitHub token in CRAFT_STATS_GITHUB_TOKEN or GITHUB_TOKEN")
	ErrUnknownProject = errors.New("unknown project")
)

// Application is an application whose branches are tracked for dependencies and releases.
type Application struct {
	Name  string `mapstructure:"name" validate:"required"`
	Owner string `mapstructure:"owner"`
	// MinHotfix drops hotfix branches older than this major.minor version.
	MinHotfix string `mapstructure:"min-hotfix" validate:"omitempty,majorminor"`
}

// Issues configures the issue collector and the snapshot window.
type Issues struct {
	StartDate           string `mapstructure:"start-date" validate:"omitempty,datetime=2006-01-02"`
	LookbackDays        int    `mapstructure:"lookback-days" validate:"gte=1"`
	RefreshIntervalDays int    `mapstructure:"refresh-interval-days" validate:"gte=0"`
}

// Retry bounds the retries of every API client.
type Retry struct {
	Attempts   int           `mapstructure:"attempts" validate:"gte=1"`
	Backoff    time.Duration `mapstructure:"backoff" validate:"gt=0"`
	MaxBackoff time.Duration `mapstructure:"max-backoff" validate:"gtefield=Backoff"`
}

// Render configures the chart windows and the output of the render command.
type Render struct {
	AverageWindow int    `mapstructure:"average-window" validate:"gte=1"`
	SumWindow     int    `mapstructure:"sum-window" validate:"gte=1"`
	OutputDir     string `mapstructure:"output-dir" validate:"required"`
}

// Config is the validated configuration of a run.
type Config struct {
	Owner        string        `mapstructure:"owner" validate:"required"`
	DataDir      string        `mapstructure:"data-dir" validate:"required"`
	Workers      int           `mapstructure:"workers" validate:"gte=1,lte=32"`
	Libraries    []string      `mapstructure:"libraries" validate:"required,min=1,unique,dive,required"`
	Projects     []string      `mapstructure:"projects" validate:"required,min=1,unique,dive,required"`
	Applications []Application `mapstructure:"applications" validate:"required,min=1,dive"`
	Launchpad    []string      `mapstructure:"launchpad" validate:"unique,dive,required"`
	Issues       Issues        `mapstructure:"issues"`
	Retry        Retry         `mapstructure:"retry"`
	Render       Render        `mapstructure:"render"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("owner", "canonical")
	v.SetDefault("data-dir", "html/data")
	v.SetDefault("workers", 4)
	v.SetDefault("issues.lookback-days", 365)
	v.SetDefault("issues.refresh-interval-days", 7)
	v.SetDefault("retry.attempts", 5)
	v.SetDefault("retry.backoff", 2*time.Second)
	v.SetDefault("retry.max-backoff", time.Minute)
	v.SetDefault("render.average-window", 4)
	v.SetDefault("render.sum-window", 7)
	v.SetDefault("render.output-dir", "html")
}

// Load reads the configuration file at path, applies defaults and
// CRAFT_STATS_ environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "could not read config file %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "could not decode config file %s", path)
	}
	for i := range cfg.Applications {
		if cfg.Applications[i].Owner == "" {
			cfg.Applications[i].Owner = cfg.Owner
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("majorminor", func(fl validator.FieldLevel) bool {
		_, ok := ParseMajorMinor(fl.Field().String())
		return ok
	})
	return v
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Start returns the first day of the issue time series, or the zero time
// when the series starts at the first collection run.
func (c *Config) Start() time.Time {
	if c.Issues.StartDate == "" {
		return time.Time{}
	}
	start, err := time.Parse(domain.DateLayout, c.Issues.StartDate)
	if err != nil {
		return time.Time{}
	}
	return start
}

// Lookback returns the trailing window used for yearly sums.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Issues.LookbackDays) * 24 * time.Hour
}

// SelectProjects returns the named projects, or every configured project when
// names is empty. Naming a project missing from the configuration is an error.
func (c *Config) SelectProjects(names []string) ([]domain.Project, error) {
	if len(names) == 0 {
		names = c.Projects
	}
	projects := make([]domain.Project, 0, len(names))
	for _, name := range names {
		if !slices.Contains(c.Projects, name) {
			return nil, errors.Wrap(ErrUnknownProject, name)
		}
		projects = append(projects, domain.Project{Owner: c.Owner, Name: name})
	}
	return projects, nil
}

// LoadToken reads the GitHub token from the environment. CRAFT_STATS_GITHUB_TOKEN
// takes priority so a personal token with a higher rate limit can override the
// token provided by CI.
func LoadToken() (string, error) {
	if token := os.Getenv(EnvPrefix + "_GITHUB_TOKEN"); token != "" {
		return token, nil
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

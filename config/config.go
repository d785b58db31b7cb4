// Package config loads the benchmark configuration from a yaml file, a .env file, the
// environment (ORMBENCH_ prefix) and command line flags, in increasing priority.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/creachadair/atomicfile"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/generator"
	"ormbench/report"
)

const EnvPrefix = "ORMBENCH"

type Config struct {
	Dialect          string `mapstructure:"dialect" yaml:"dialect" validate:"oneof=postgres postgresql sqlite sqlite3"`
	ConnectionString string `mapstructure:"connectionString" yaml:"connectionString" validate:"required"`
	CleanDatabase    bool   `mapstructure:"cleanDatabase" yaml:"cleanDatabase"`

	Seed      Seed          `mapstructure:"seed" yaml:"seed"`
	Benchmark Benchmark     `mapstructure:"benchmark" yaml:"benchmark"`
	Targets   Targets       `mapstructure:"targets" yaml:"targets"`
	Probes    engine.Probes `mapstructure:"probes" yaml:"probes"`
	Report    Report        `mapstructure:"report" yaml:"report"`
	Log       Log           `mapstructure:"log" yaml:"log"`
}

type Seed struct {
	generator.Counts `mapstructure:",squash" yaml:",inline"`
	// 0 picks a time based seed
	RandomSeed int64 `mapstructure:"randomSeed" yaml:"randomSeed"`
}

type Benchmark struct {
	Warmup         int           `mapstructure:"warmup" yaml:"warmup" validate:"min=0"`
	Iterations     int           `mapstructure:"iterations" yaml:"iterations" validate:"min=2"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	RemoveOutliers bool          `mapstructure:"removeOutliers" yaml:"removeOutliers"`
	// empty means every adapter that supports the dialect
	Adapters     []string `mapstructure:"adapters" yaml:"adapters" validate:"unique"`
	Operations   []string `mapstructure:"operations" yaml:"operations" validate:"unique,dive,operation"`
	Baseline     string   `mapstructure:"baseline" yaml:"baseline"`
	MaxOpenConns int      `mapstructure:"maxOpenConns" yaml:"maxOpenConns" validate:"min=1"`
}

// Targets bound the olympiad ids picked by update and delete.
type Targets struct {
	Min int64 `mapstructure:"min" yaml:"min" validate:"min=1"`
	Max int64 `mapstructure:"max" yaml:"max" validate:"gtefield=Min"`
}

type Report struct {
	Formats []string        `mapstructure:"formats" yaml:"formats" validate:"dive,format"`
	Dir     string          `mapstructure:"dir" yaml:"dir" validate:"required"`
	S3      report.S3Config `mapstructure:"s3" yaml:"s3"`
}

type Log struct {
	Level   string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Disable bool   `mapstructure:"disable" yaml:"disable"`
	Pretty  bool   `mapstructure:"pretty" yaml:"pretty"`
}

var defaults = map[string]any{
	"dialect":                  "postgres",
	"connectionString":         "",
	"cleanDatabase":            false,
	"seed.olympiads":           10,
	"seed.sportsPerOlympiad":   10,
	"seed.teamsPerSport":       100,
	"seed.playersPerTeam":      100,
	"seed.randomSeed":          0,
	"benchmark.warmup":         3,
	"benchmark.iterations":     20,
	"benchmark.timeout":        30 * time.Second,
	"benchmark.removeOutliers": true,
	"benchmark.adapters":       []string{},
	"benchmark.operations":     []string{},
	"benchmark.baseline":       "sql",
	"benchmark.maxOpenConns":   10,
	"targets.min":              1,
	"targets.max":              9,
	"probes.playerId":          1,
	"probes.teamId":            1,
	"probes.sportId":           1,
	"probes.olympiadId":        1,
	"report.formats":           []string{"table"},
	"report.dir":               "results",
	"report.s3.bucket":         "",
	"report.s3.prefix":         "",
	"report.s3.region":         "",
	"report.s3.endpoint":       "",
	"report.s3.pathStyle":      false,
	"log.level":                "info",
	"log.disable":              false,
	"log.pretty":               true,
}

// New returns a viper instance with the defaults and the environment bound. Flags
// bound to it take precedence over both.
func New() *viper.Viper {
	v := viper.New()
	for k, value := range defaults {
		v.SetDefault(k, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) and the optional .env file into v, then decodes and
// validates the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("operation", func(fl validator.FieldLevel) bool {
		return engine.IsOperation(fl.Field().String())
	})
	_ = v.RegisterValidation("format", func(fl validator.FieldLevel) bool {
		name := strings.ToLower(fl.Field().String())
		for _, f := range report.Formats {
			if f == name {
				return true
			}
		}
		return false
	})
	return v
}

// Validate checks every field and the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			msgs := make([]string, len(fieldErrors))
			for i, fe := range fieldErrors {
				msgs[i] = fmt.Sprintf("%s: failed %q (%v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Targets.Max > int64(c.Seed.Olympiads) {
		return fmt.Errorf("invalid config: targets.max %d exceeds seed.olympiads %d", c.Targets.Max, c.Seed.Olympiads)
	}
	if c.Probes.OlympiadID > int64(c.Seed.Olympiads) {
		return fmt.Errorf("invalid config: probes.olympiadId %d exceeds seed.olympiads %d", c.Probes.OlympiadID, c.Seed.Olympiads)
	}
	if c.HasFormat("s3") && c.Report.S3.Bucket == "" {
		return errors.New("invalid config: report.s3.bucket is required by the s3 format")
	}
	return nil
}

// HasFormat reports whether the report format is enabled.
func (c *Config) HasFormat(name string) bool {
	for _, f := range c.Report.Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Dump writes the effective configuration as yaml, with the connection password
// redacted.
func (c *Config) Dump(path string) error {
	redacted := *c
	redacted.ConnectionString = Redact(c.ConnectionString)
	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if _, err := atomicfile.WriteAll(path, bytes.NewReader(data), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

var passwordPattern = regexp.MustCompile(`(?i)(password=)\S+`)

// Redact hides the password of a postgres url or key/value connection string.
func Redact(conn string) string {
	if u, err := url.Parse(conn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
			return u.String()
		}
	}
	return passwordPattern.ReplaceAllString(conn, "${1}xxxxx")
}

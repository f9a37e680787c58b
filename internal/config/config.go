// Package config loads and validates game settings.
//
// Settings are layered, later layers winning:
//
//  1. Built-in defaults
//  2. A YAML file (unknown keys are rejected)
//  3. A .env file
//  4. Process environment (PAIRS_ prefix)
//
// The result is checked against an embedded CUE schema and face names are
// normalized to NFC so that visually identical names always pair up.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pairs/internal/audio"
	"github.com/roach88/pairs/internal/card"
	"github.com/roach88/pairs/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PAIRS_"

// Config holds every tunable of a game.
type Config struct {
	Rows  int      `yaml:"rows" json:"rows" env:"ROWS"`
	Cols  int      `yaml:"cols" json:"cols" env:"COLS"`
	Faces []string `yaml:"faces" json:"faces" env:"FACES" envSeparator:","`

	JudgeDelayMS int     `yaml:"judge_delay_ms" json:"judge_delay_ms" env:"JUDGE_DELAY_MS"`
	WinDelayMS   int     `yaml:"win_delay_ms" json:"win_delay_ms" env:"WIN_DELAY_MS"`
	FlipMS       int     `yaml:"flip_ms" json:"flip_ms" env:"FLIP_MS"`
	PopMS        int     `yaml:"pop_ms" json:"pop_ms" env:"POP_MS"`
	PopScale     float64 `yaml:"pop_scale" json:"pop_scale" env:"POP_SCALE"`

	FlipPitchMin float64 `yaml:"flip_pitch_min" json:"flip_pitch_min" env:"FLIP_PITCH_MIN"`
	FlipPitchMax float64 `yaml:"flip_pitch_max" json:"flip_pitch_max" env:"FLIP_PITCH_MAX"`
	Volume       float64 `yaml:"volume" json:"volume" env:"VOLUME"`

	// DB is the transcript database path. Empty disables recording.
	DB string `yaml:"db" json:"db,omitempty" env:"DB"`
}

// DefaultFaces is the stock face pool.
var DefaultFaces = []string{
	"apple", "bell", "cherry", "diamond", "star", "moon", "heart", "clover",
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Rows:         4,
		Cols:         4,
		Faces:        append([]string(nil), DefaultFaces...),
		JudgeDelayMS: 150,
		WinDelayMS:   250,
		FlipMS:       250,
		PopMS:        120,
		PopScale:     1.08,
		FlipPitchMin: 0.97,
		FlipPitchMax: 1.03,
		Volume:       1,
	}
}

// ValidationError reports the first setting that violates the schema.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %s", e.Message)
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Option adjusts how Load reads its layers.
type Option func(*loader)

type loader struct {
	envFile string
	environ map[string]string
}

// WithEnvFile reads dotenv values from path instead of ".env".
// A missing file is not an error.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// WithEnviron replaces the process environment.
func WithEnviron(vars map[string]string) Option {
	return func(l *loader) { l.environ = vars }
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the dotenv file and the environment, then validates it.
func Load(path string, opts ...Option) (Config, error) {
	l := &loader{envFile: ".env"}
	for _, opt := range opts {
		opt(l)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	vars, err := l.variables()
	if err != nil {
		return Config{}, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML decodes strictly: unknown keys are errors.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// variables merges the dotenv file under the real environment. As with
// godotenv.Load, a variable already set in the environment wins.
func (l *loader) variables() (map[string]string, error) {
	base := l.environ
	if base == nil {
		base = env.ToMap(os.Environ())
	}

	vars := make(map[string]string, len(base))
	if l.envFile != "" {
		fileVars, err := godotenv.Read(l.envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", l.envFile, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for k, v := range base {
		vars[k] = v
	}
	return vars, nil
}

// normalize trims face names and converts them to NFC.
func (c *Config) normalize() {
	for i, f := range c.Faces {
		c.Faces[i] = norm.NFC.String(strings.TrimSpace(f))
	}
}

// Validate checks c against the embedded schema.
// Returns a *ValidationError naming the offending field.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	first := errs[0]
	path := first.Path()
	if len(path) > 0 && path[0] == "#Config" {
		path = path[1:]
	}
	format, args := first.Msg()
	return &ValidationError{
		Field:   strings.Join(path, "."),
		Message: fmt.Sprintf(format, args...),
	}
}

// Pool returns the faces as engine face IDs.
func (c Config) Pool() []card.FaceID {
	out := make([]card.FaceID, len(c.Faces))
	for i, f := range c.Faces {
		out[i] = card.FaceID(f)
	}
	return out
}

// Timing converts the millisecond settings into engine durations.
func (c Config) Timing() engine.Timing {
	return engine.Timing{
		JudgeDelay:   ms(c.JudgeDelayMS),
		WinDelay:     ms(c.WinDelayMS),
		FlipDuration: ms(c.FlipMS),
		PopDuration:  ms(c.PopMS),
		PopScale:     c.PopScale,
	}
}

// AudioOptions returns the dispatcher options for the audio settings.
func (c Config) AudioOptions() []audio.Option {
	return []audio.Option{
		audio.WithVolume(c.Volume),
		audio.WithFlipPitch(c.FlipPitchMin, c.FlipPitchMax),
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

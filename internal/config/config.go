// Package config loads and validates worldtext configuration.
//
// The schema lives in schema.cue and is embedded in the binary. Files may be
// written in CUE, JSON, YAML or TOML; every format is turned into a CUE value
// and unified with #Config, so defaults and constraints are the same for all
// of them. Unknown fields are rejected.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/worldtext/internal/export"
	"github.com/roach88/worldtext/internal/extract"
)

//go:embed schema.cue
var schemaCUE string

// EnvConfig names the environment variable holding the default config path.
const EnvConfig = "WORLDTEXT_CONFIG"

// Lang holds key-table output settings.
type Lang struct {
	Output      string `json:"output"`
	Indent      int    `json:"indent"`
	EnsureASCII bool   `json:"ensure_ascii"`
	SortKeys    bool   `json:"sort_keys"`
}

// Config is the validated configuration of one run.
type Config struct {
	Backup         bool              `json:"backup"`
	SaveThreshold  int               `json:"save_threshold"`
	ComponentsMax  int               `json:"components_max"`
	MacrosMax      int               `json:"macros_max"`
	LegacySpawners *bool             `json:"legacy_spawners,omitempty"`
	EmptyTextKey   string            `json:"empty_text_key,omitempty"`
	NormalizeText  bool              `json:"normalize_text"`
	Journal        string            `json:"journal"`
	Lang           Lang              `json:"lang"`
	Dedupe         map[string]bool   `json:"dedupe"`
	DefaultKeys    map[string]string `json:"default_keys"`

	// Source is the file the configuration came from; empty for defaults.
	Source string `json:"-"`
}

// Policy returns the dedup flags as an extraction policy.
func (c *Config) Policy() extract.Policy {
	p := make(extract.Policy, len(c.Dedupe))
	for name, on := range c.Dedupe {
		p[extract.Category(name)] = on
	}
	return p
}

// ExtractOptions returns the extraction options this configuration selects.
// legacy is the spawner layout derived from the world; the configured
// override wins when present.
func (c *Config) ExtractOptions(legacy bool) extract.Options {
	if c.LegacySpawners != nil {
		legacy = *c.LegacySpawners
	}
	return extract.Options{
		Policy:         c.Policy(),
		DefaultKeys:    c.DefaultKeys,
		ComponentsMax:  c.ComponentsMax,
		MacrosMax:      c.MacrosMax,
		EmptyTextKey:   c.EmptyTextKey,
		NormalizeText:  c.NormalizeText,
		LegacySpawners: legacy,
	}
}

// ExportWriter returns the key-table writer for the lang settings.
func (c *Config) ExportWriter() export.Writer {
	return export.Writer{
		Indent:      c.Lang.Indent,
		EnsureASCII: c.Lang.EnsureASCII,
		SortKeys:    c.Lang.SortKeys,
	}
}

// Default returns the configuration of an empty document.
func Default() *Config {
	cfg, err := FromMap(nil)
	if err != nil {
		// The embedded schema is broken; nothing can run.
		panic(fmt.Sprintf("config: default configuration: %v", err))
	}
	return cfg
}

// Load reads and validates the configuration at path. An empty path falls
// back to $WORLDTEXT_CONFIG, then to the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "config file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}

// Parse validates data, choosing the format from name's extension.
func Parse(name string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	var v cue.Value
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue", ".json":
		v = ctx.CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return nil, fromCUE(ErrCodeParse, name, err)
		}
	case ".yaml", ".yml":
		var m map[string]any
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeParse, Path: name, Message: err.Error()}
		}
		v = ctx.Encode(m)
	case ".toml":
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Path: name, Message: err.Error()}
		}
		v = ctx.Encode(m)
	default:
		return nil, &LoadError{
			Code:    ErrCodeFormat,
			Path:    name,
			Message: fmt.Sprintf("unsupported config format %q (want .cue, .json, .yaml, .yml or .toml)", ext),
		}
	}

	return validate(ctx, name, v)
}

// FromMap validates a decoded document, such as scenario overrides.
func FromMap(m map[string]any) (*Config, error) {
	ctx := cuecontext.New()
	if m == nil {
		m = map[string]any{}
	}
	return validate(ctx, "", ctx.Encode(m))
}

// validate unifies v with #Config and decodes the result.
func validate(ctx *cue.Context, name string, v cue.Value) (*Config, error) {
	if err := v.Err(); err != nil {
		return nil, fromCUE(ErrCodeParse, name, err)
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fromCUE(ErrCodeGeneric, "schema.cue", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(ErrCodeSchema, name, err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fromCUE(ErrCodeSchema, name, err)
	}
	if cfg.Dedupe == nil {
		cfg.Dedupe = map[string]bool{}
	}
	if cfg.DefaultKeys == nil {
		cfg.DefaultKeys = map[string]string{}
	}
	return &cfg, nil
}

// Package config loads fleetgrid settings from the embedded defaults, an
// optional YAML file and the environment.
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
	"slices"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/settings"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// Environment overrides.
const (
	EnvAPIURL    = "FLEETGRID_API_URL"
	EnvToken     = "FLEETGRID_TOKEN"
	EnvTokenType = "FLEETGRID_TOKEN_TYPE"
)

// DefaultConfigYAML returns a copy of the embedded default config.
func DefaultConfigYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Default decodes the embedded defaults.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, fmt.Errorf("embedded default config is empty")
	}
	if err := decodeInto(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

func decodeInto(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Path resolves the config file to read. An explicit path wins; otherwise
// $XDG_CONFIG_HOME/fleetgrid/config.yaml, then ~/.config/fleetgrid/config.yaml.
// It returns "" when no file exists.
func Path(explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	var candidates []string
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, settings.CliBinaryName, "config.yaml"))
	}
	if home := getenv("HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", settings.CliBinaryName, "config.yaml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load merges the defaults with the file at path ("" for none) and the
// environment read through getenv, then validates the result.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config file %s not found", path)
			}
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decodeInto(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	applyEnv(&cfg, getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		cfg.Session.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvTokenType)); v != "" {
		cfg.Session.TokenType = v
	}
}

// Validate checks values the rest of the program relies on.
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("api.base_url is required"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative"))
	}
	if c.Grid.PageSize < 0 {
		errs = append(errs, fmt.Errorf("grid.page_size must not be negative"))
	}
	if len(c.Grid.PageSizes) > 0 && !slices.Contains(c.Grid.PageSizes, c.Grid.PageSize) {
		errs = append(errs, fmt.Errorf("grid.page_size %d is not one of grid.page_sizes %v", c.Grid.PageSize, c.Grid.PageSizes))
	}
	if c.Grid.SearchDebounce < 0 || c.Grid.OptionDebounce < 0 {
		errs = append(errs, fmt.Errorf("grid debounce delays must not be negative"))
	}
	if _, err := language.Parse(c.Grid.Locale); err != nil {
		errs = append(errs, fmt.Errorf("grid.locale: %w", err))
	}
	if c.Export.Format != "" {
		if _, err := export.ParseFormat(c.Export.Format); err != nil {
			errs = append(errs, fmt.Errorf("export.format: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Locale returns the parsed grid locale, English when unset or invalid.
func (c Config) Locale() language.Tag {
	tag, err := language.Parse(c.Grid.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// PageSizes returns the configured page-size menu, or the grid defaults.
func (c Config) PageSizes() []int {
	if len(c.Grid.PageSizes) == 0 {
		return grid.DefaultPageSizes
	}
	return c.Grid.PageSizes
}

// Marshal renders the effective config. The session token is masked.
func (c Config) Marshal() ([]byte, error) {
	out := c
	if out.Session.Token != "" {
		out.Session.Token = "********"
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return []byte(addComments(string(data))), nil
}

func addComments(yml string) string {
	inline := func(find, repl string) {
		yml = strings.Replace(yml, find, repl, 1)
	}
	inline("    page_sizes:\n", "    # 0 shows all rows on one page\n    page_sizes:\n")
	inline("    format: ", "    # csv|xlsx|pdf|html|json\n    format: ")
	inline("    pointer_scale: ", "    # column width units per terminal cell\n    pointer_scale: ")
	return yml
}

// HelpHeader renders app.cli.help_header_template. Templates see .config
// and .build; a broken template yields its source text.
func (c Config) HelpHeader(version settings.VersionInfo) string {
	text := c.App.CLI.HelpHeaderTemplate
	if !strings.Contains(text, "{{") {
		return text
	}
	data := map[string]any{
		"config": map[string]any{
			"app": map[string]any{
				"about": map[string]any{
					"name":           c.App.About.Name,
					"description":    c.App.About.Description,
					"repository_url": c.App.About.RepositoryURL,
				},
			},
			"api": map[string]any{"base_url": c.API.BaseURL},
		},
		"build": map[string]any{
			"version": version.BuildVersion,
			"commit":  version.Commit,
		},
	}
	tmpl, err := template.New("header").Parse(text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return text
	}
	return buf.String()
}

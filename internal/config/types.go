package config

import "time"

// Config is the merged configuration: embedded defaults, the user file, then
// environment overrides.
type Config struct {
	App     AppConfig     `yaml:"app"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Grid    GridConfig    `yaml:"grid"`
	Export  ExportConfig  `yaml:"export"`
	UI      UIConfig      `yaml:"ui"`
}

type AppConfig struct {
	About AboutConfig `yaml:"about"`
	CLI   CLIConfig   `yaml:"cli"`
}

type AboutConfig struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	RepositoryURL string `yaml:"repository_url,omitempty"`
}

type CLIConfig struct {
	// HelpHeaderTemplate is a text/template rendered with .config and .build.
	HelpHeaderTemplate string `yaml:"help_header_template"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Token     string `yaml:"token"`
	TokenType string `yaml:"token_type"`
}

type GridConfig struct {
	PageSize       int           `yaml:"page_size"`
	PageSizes      []int         `yaml:"page_sizes"`
	SearchDebounce time.Duration `yaml:"search_debounce"`
	OptionDebounce time.Duration `yaml:"option_debounce"`
	OptionLimit    int           `yaml:"option_limit"`
	Locale         string        `yaml:"locale"`
}

type ExportConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"`
}

type UIConfig struct {
	NoColor bool `yaml:"no_color"`
	// PointerScale is how many width units one terminal cell represents.
	PointerScale int `yaml:"pointer_scale"`
	// Table colors for `list -o table`, as ANSI codes or hex values.
	Table TableTheme `yaml:"table"`
}

type TableTheme struct {
	HeaderFG  string `yaml:"header_fg"`
	HeaderBG  string `yaml:"header_bg"`
	Key       string `yaml:"key"`
	Value     string `yaml:"value"`
	Separator string `yaml:"separator"`
}

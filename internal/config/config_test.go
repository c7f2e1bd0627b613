package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/settings"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "fleetgrid", cfg.App.About.Name)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 25, cfg.Grid.PageSize)
	assert.Equal(t, []int{10, 25, 50, 100, 0}, cfg.PageSizes())
	assert.Equal(t, 500*time.Millisecond, cfg.Grid.SearchDebounce)
	assert.Equal(t, grid.DefaultSearchDebounce, cfg.Grid.SearchDebounce)
	assert.Equal(t, grid.DefaultOptionDebounce, cfg.Grid.OptionDebounce)
	assert.Equal(t, "Bearer", cfg.Session.TokenType)
	assert.Equal(t, language.English, cfg.Locale())
}

func TestLoadMergesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://fleet.example/api
grid:
  page_size: 50
  locale: de
`), 0o644))

	cfg, err := Load(path, env(map[string]string{EnvToken: " abc ", EnvAPIURL: "https://override.example"}))
	require.NoError(t, err)
	assert.Equal(t, "https://override.example", cfg.API.BaseURL)
	assert.Equal(t, 50, cfg.Grid.PageSize)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout, "untouched keys keep defaults")
	assert.Equal(t, "abc", cfg.Session.Token)
	assert.Equal(t, language.German, cfg.Locale())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"), env(nil))
	assert.ErrorContains(t, err, "not found")

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("grid:\n  rows_per_page: 10\n"), 0o644))
	_, err = Load(unknown, env(nil))
	assert.ErrorContains(t, err, "rows_per_page")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("grid:\n  page_size: 30\nexport:\n  format: docx\n"), 0o644))
	_, err = Load(bad, env(nil))
	assert.ErrorContains(t, err, "grid.page_size 30")
	assert.ErrorContains(t, err, "export.format")
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	cfg, err := Load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Grid.PageSize)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "/x.yaml", Path("/x.yaml", env(nil)))

	home := t.TempDir()
	assert.Empty(t, Path("", env(map[string]string{"HOME": home})))

	p := filepath.Join(home, ".config", "fleetgrid", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	assert.Equal(t, p, Path("", env(map[string]string{"HOME": home})))

	xdg := t.TempDir()
	px := filepath.Join(xdg, "fleetgrid", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(px), 0o755))
	require.NoError(t, os.WriteFile(px, []byte("{}"), 0o644))
	assert.Equal(t, px, Path("", env(map[string]string{"HOME": home, "XDG_CONFIG_HOME": xdg})))
}

func TestMarshalMasksToken(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	cfg.Session.Token = "secret"

	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.Contains(t, string(out), "********")
	assert.Contains(t, string(out), "# 0 shows all rows on one page")
	assert.Equal(t, "secret", cfg.Session.Token)
}

func TestHelpHeader(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	got := cfg.HelpHeader(settings.VersionInfo{BuildVersion: "v1.2.3"})
	assert.Equal(t, "fleetgrid v1.2.3 - Terminal data grid for the fleet admin console", got)

	cfg.App.CLI.HelpHeaderTemplate = "{{ .broken"
	assert.Equal(t, "{{ .broken", cfg.HelpHeader(settings.VersionInfo{}))
}

func TestColumnStatesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "columns.yaml")

	got, err := LoadColumnStates(path, "devices")
	require.NoError(t, err)
	assert.Nil(t, got)

	devices := []grid.ColumnState{{Field: "name", Visible: true, Pinned: grid.PinLeft, Width: 200}}
	alerts := []grid.ColumnState{{Field: "type", Visible: false, Pinned: grid.PinNone, Width: 120}}
	require.NoError(t, SaveColumnStates(path, "devices", devices))
	require.NoError(t, SaveColumnStates(path, "alerts", alerts))

	got, err = LoadColumnStates(path, "devices")
	require.NoError(t, err)
	assert.Equal(t, devices, got)
	got, err = LoadColumnStates(path, "alerts")
	require.NoError(t, err)
	assert.Equal(t, alerts, got)
}

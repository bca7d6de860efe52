package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/abiiranathan/qute-lsp/htmlx"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{SearchDir: t.TempDir()})
	require.NoError(t, err)

	want := Config{
		Workspace:  Workspace{Dir: ".", Java: true, Go: true, Watch: true},
		Completion: Completion{Attributes: htmlx.DefaultRouteAttributes},
		Log:        Log{Level: "info"},
		Hello:      Hello{Addr: ":8080"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `workspace:
  templates: views
  go: false
completion:
  attributes: [href, hx-get]
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qute-lsp.yaml"), []byte(content), 0644))
	t.Setenv("QUTE_LSP_HELLO_ADDR", ":9999")

	cfg, err := Load(Options{
		SearchDir: dir,
		Overrides: map[string]any{"workspace.dir": dir},
	})
	require.NoError(t, err)

	require.Equal(t, dir, cfg.Workspace.Dir)
	require.Equal(t, "views", cfg.Workspace.Templates)
	require.False(t, cfg.Workspace.Go)
	require.True(t, cfg.Workspace.Java)
	require.Equal(t, []string{"href", "hx-get"}, cfg.Completion.Attributes)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, ":9999", cfg.Hello.Addr)
	require.Equal(t, filepath.Join(dir, "views"), cfg.Workspace.TemplatesDir())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestTemplatesDirDefaults(t *testing.T) {
	dir := t.TempDir()
	w := Workspace{Dir: dir}
	require.Empty(t, w.TemplatesDir())

	quarkus := filepath.Join(dir, "src", "main", "resources", "templates")
	require.NoError(t, os.MkdirAll(quarkus, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0755))
	require.Equal(t, quarkus, w.TemplatesDir())

	abs := filepath.Join(dir, "elsewhere")
	require.Equal(t, abs, Workspace{Dir: dir, Templates: abs}.TemplatesDir())
}

func TestLogger(t *testing.T) {
	logger, err := Log{Level: "debug"}.Logger()
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(-1))

	_, err = Log{Level: "loud"}.Logger()
	require.Error(t, err)
}

// Package config loads qute-lsp settings from an optional qute-lsp.yaml,
// QUTE_LSP_* environment variables and command line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/abiiranathan/qute-lsp/htmlx"
)

// FileName is the config file looked up in the workspace root.
const FileName = "qute-lsp"

// EnvPrefix prefixes environment overrides: workspace.dir is QUTE_LSP_WORKSPACE_DIR.
const EnvPrefix = "QUTE_LSP"

// Config is the merged configuration of the qute-lsp binaries.
type Config struct {
	Workspace  Workspace  `mapstructure:"workspace"`
	Completion Completion `mapstructure:"completion"`
	Log        Log        `mapstructure:"log"`
	Hello      Hello      `mapstructure:"hello"`
}

// Workspace selects what the language server scans.
type Workspace struct {
	// Dir is the project root.
	Dir string `mapstructure:"dir"`
	// Templates is the templates folder, relative to Dir unless absolute.
	// Empty means the first of src/main/resources/templates and templates.
	Templates string `mapstructure:"templates"`
	// Java enables the JAX-RS resource scan.
	Java bool `mapstructure:"java"`
	// Go enables the Go router scan.
	Go bool `mapstructure:"go"`
	// Watch rescans the templates folder when its files change on disk.
	Watch bool `mapstructure:"watch"`
}

// Completion tunes route completion inside templates.
type Completion struct {
	// Attributes are the attribute names whose values complete to routes.
	Attributes []string `mapstructure:"attributes"`
}

// Log configures the zap logger.
type Log struct {
	// Level is a zap level name: debug, info, warn or error.
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
}

// Hello configures the sample HTTP server started by cmd/hello.
type Hello struct {
	// Addr is the listen address, e.g. :8080.
	Addr string `mapstructure:"addr"`
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file; it must exist.
	File string
	// SearchDir is searched for qute-lsp.yaml when File is empty.
	SearchDir string
	// Overrides are applied last, keyed like the config file (workspace.dir).
	Overrides map[string]any
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace.dir", ".")
	v.SetDefault("workspace.templates", "")
	v.SetDefault("workspace.java", true)
	v.SetDefault("workspace.go", true)
	v.SetDefault("workspace.watch", true)
	v.SetDefault("completion.attributes", htmlx.DefaultRouteAttributes)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", false)
	v.SetDefault("hello.addr", ":8080")
}

// Load reads the configuration. A missing qute-lsp.yaml is not an error; a
// missing explicit file is.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if opts.SearchDir != "" {
			v.AddConfigPath(opts.SearchDir)
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// defaultTemplateDirs are tried in order below the workspace root.
var defaultTemplateDirs = []string{
	filepath.Join("src", "main", "resources", "templates"),
	"templates",
}

// TemplatesDir resolves the templates folder. It returns "" when no
// folder is configured and none of the defaults exist.
func (w Workspace) TemplatesDir() string {
	if w.Templates != "" {
		if filepath.IsAbs(w.Templates) {
			return w.Templates
		}
		return filepath.Join(w.Dir, w.Templates)
	}
	for _, rel := range defaultTemplateDirs {
		dir := filepath.Join(w.Dir, rel)
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
	}
	return ""
}

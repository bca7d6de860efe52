// Command qute-lsp is a language server for Qute templates backed by JAX-RS
// resources or Go routers. Without flags it speaks the Language Server
// Protocol on stdin and stdout; logs go to stderr.
//
// Usage:
//
//	qute-lsp                          # run the language server
//	qute-lsp --get-routes --dir app   # print the routes of app as JSON
//	qute-lsp --get-templates --format yaml
//	qute-lsp --validate               # print unresolved includes
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/abiiranathan/qute-lsp/analyzer"
	"github.com/abiiranathan/qute-lsp/config"
	"github.com/abiiranathan/qute-lsp/lsp"
	"github.com/abiiranathan/qute-lsp/qute"
)

// options are the command line flags.
type options struct {
	getRoutes    bool
	getTemplates bool
	validate     bool
	format       string
	compress     bool
	dir          string
	templates    string
	configFile   string
	logLevel     string
}

func main() {
	var opts options
	flag.BoolVar(&opts.getRoutes, "get-routes", false, "Print the workspace routes and exit")
	flag.BoolVar(&opts.getTemplates, "get-templates", false, "Print the templates index and exit")
	flag.BoolVar(&opts.validate, "validate", false, "Check that template includes resolve, print the problems and exit")
	flag.StringVar(&opts.format, "format", "json", "Output format for --get-routes, --get-templates and --validate: json or yaml")
	flag.BoolVar(&opts.compress, "compress", false, "Gzip the printed output")
	flag.StringVar(&opts.dir, "dir", "", "Workspace root (default: config or current directory)")
	flag.StringVar(&opts.templates, "templates", "", "Templates folder, relative to the workspace root")
	flag.StringVar(&opts.configFile, "config", "", "Path to a qute-lsp.yaml config file")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, opts, os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "qute-lsp:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	switch {
	case opts.getRoutes:
		result, err := analyzer.ScanRoutes(ctx, cfg.Workspace)
		if err != nil {
			return err
		}
		return writeOutput(stdout, result, opts.format, opts.compress)

	case opts.getTemplates, opts.validate:
		dir := cfg.Workspace.TemplatesDir()
		if dir == "" {
			return fmt.Errorf("no templates folder in %s", cfg.Workspace.Dir)
		}
		index, err := qute.ScanTemplates(ctx, dir)
		if err != nil {
			return err
		}
		if opts.getTemplates {
			return writeOutput(stdout, index, opts.format, opts.compress)
		}
		problems, err := index.Validate(ctx)
		if err != nil {
			return err
		}
		return writeOutput(stdout, ValidationOutput{Problems: problems, Errors: index.Errors}, opts.format, opts.compress)
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting language server", zap.String("dir", cfg.Workspace.Dir))
	err = lsp.NewServer(cfg, logger).Serve(ctx, stdio{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ValidationOutput is printed by --validate.
type ValidationOutput struct {
	// Problems lists includes that do not resolve.
	Problems []qute.Problem `json:"problems" yaml:"problems"`
	// Errors contains non-fatal scan problems such as duplicate fragments.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// loadConfig reads the config file and applies the flags on top.
func loadConfig(opts options) (*config.Config, error) {
	overrides := map[string]any{}
	searchDir := ""
	if opts.dir != "" {
		dir, err := filepath.Abs(opts.dir)
		if err != nil {
			return nil, fmt.Errorf("resolve dir: %w", err)
		}
		overrides["workspace.dir"] = dir
		searchDir = dir
	}
	if opts.templates != "" {
		overrides["workspace.templates"] = opts.templates
	}
	if opts.logLevel != "" {
		overrides["log.level"] = opts.logLevel
	}

	cfg, err := config.Load(config.Options{File: opts.configFile, SearchDir: searchDir, Overrides: overrides})
	if err != nil {
		return nil, err
	}
	if cfg.Workspace.Dir, err = filepath.Abs(cfg.Workspace.Dir); err != nil {
		return nil, fmt.Errorf("resolve dir: %w", err)
	}
	return cfg, nil
}

// stdio joins stdin and stdout into the server's connection.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdio) Close() error {
	return errors.Join(os.Stdin.Close(), os.Stdout.Close())
}

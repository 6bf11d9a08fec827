// Command wasm-loader loads a bridged WebAssembly module and runs its entry point.
//
// Usage:
//
//	wasm-loader [-config loader.yaml] [-var name=value]... [-module URL|path] [-base-url URL] [-log-level L] [-log-format F] [module]
//	wasm-loader -schema
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/reglet-dev/wasm-loader/application/config"
	"github.com/reglet-dev/wasm-loader/application/schema"
	"github.com/reglet-dev/wasm-loader/application/validation"
	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/host"
	"github.com/reglet-dev/wasm-loader/log"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wasm-loader", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	module := fs.String("module", "", "module URL or path, overrides the config")
	baseURL := fs.String("base-url", "", "origin used to resolve a relative module path")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "text, json, auto or zap")
	printSchema := fs.Bool("schema", false, "print the JSON schema of the config file and exit")
	vars := map[string]interface{}{}
	fs.Func("var", "template variable for the config file, as name=value (repeatable)", func(s string) error {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return fmt.Errorf("want name=value, got %q", s)
		}
		vars[name] = value
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *printSchema {
		data, err := schema.GenerateConfigSchema()
		if err != nil {
			fmt.Fprintf(stderr, "wasm-loader: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, string(data))
		return exitOK
	}

	cfg, err := loadConfig(*configPath, vars)
	if err != nil {
		fmt.Fprintf(stderr, "wasm-loader: %v\n", err)
		return exitError
	}
	if fs.NArg() > 0 {
		cfg.Module = fs.Arg(0)
	}
	if *module != "" {
		cfg.Module = *module
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if err := validation.Check(validation.NewConfigValidator(), cfg); err != nil {
		fmt.Fprintf(stderr, "wasm-loader: %v\n", err)
		return exitError
	}

	logger, err := log.New(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "wasm-loader: %v\n", err)
		return exitError
	}

	loader, err := host.NewLoader(ctx, host.WithConfig(*cfg), host.WithLogger(logger))
	if err != nil {
		logger.Error("wasm-loader: invalid configuration", "error", err)
		return exitError
	}
	defer func() {
		if err := loader.Close(context.Background()); err != nil {
			logger.Warn("wasm-loader: close failed", "error", err)
		}
	}()

	inst, err := loader.Run(ctx)
	if err != nil {
		// Run gives up waiting when ctx ends, possibly before the startup
		// resolves and reaches the rejection handler.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Error("wasm-loader: interrupted", "module", cfg.Module, "error", err)
		}
		return exitError
	}
	logger.Info("wasm-loader: entry point returned", "module", inst.Name(), "entry_point", cfg.EntryPoint)
	return exitOK
}

// loadConfig loads the config file at path. An empty path yields the defaults.
func loadConfig(path string, vars map[string]interface{}) (*entities.LoaderConfig, error) {
	if path == "" {
		cfg := entities.DefaultLoaderConfig()
		return &cfg, nil
	}
	loader, err := config.NewLoader()
	if err != nil {
		return nil, err
	}
	return loader.LoadFile(path, vars)
}

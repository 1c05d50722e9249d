// Package main is the termquery CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/termquery/internal/cli"
	"github.com/hyperjump/termquery/internal/config"
	"github.com/hyperjump/termquery/internal/dictionary"
	"github.com/hyperjump/termquery/internal/keyword"
	"github.com/hyperjump/termquery/internal/metrics"
	"github.com/hyperjump/termquery/internal/query"
	"github.com/hyperjump/termquery/internal/server"
	"github.com/hyperjump/termquery/internal/storage"
	"github.com/hyperjump/termquery/internal/watcher"
	"github.com/hyperjump/termquery/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/termquery/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if neither exists the
// built-in defaults are used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "date-range":
		runDateRange()
	case "has-term":
		runHasTerm()
	case "index":
		runIndex()
	case "import-model":
		runImportModel()
	case "delete":
		runDelete()
	case "terms":
		runTerms()
	case "properties":
		runProperties()
	case "version", "--version", "-v":
		fmt.Printf("termquery version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, builds the logger and opens all components, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolvedConfigPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, resolvedConfigPath, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Dictionary.ModelPath != "" && cfg.Dictionary.WatchOrDefault() {
		w := watcher.NewWatcher(
			[]string{cfg.Dictionary.ModelPath},
			func(path string) {
				if err := components.ImportModel(context.Background(), path); err != nil {
					logger.Warn("model reload failed", zap.String("path", path), zap.Error(err))
					metrics.DictionaryReloads.WithLabelValues(metrics.StatusError).Inc()
					return
				}
				metrics.DictionaryReloads.WithLabelValues(metrics.StatusOK).Inc()
				logger.Info("model reloaded", zap.String("path", path))
			},
			watcher.WithLogger(logger),
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start model watcher", zap.Error(err))
		}
		logger.Info("watching dictionary model", zap.Strings("files", w.Files()))
		defer w.Stop()
	}

	srv := server.NewServer(components.Registry, components.Index, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder splits args into flags (with their values) and positional arguments and
// returns the flags first so that fs.Parse sees every flag. Go's flag package stops at
// the first non-flag argument, so "termquery date-range cm:created -from 2020-01-01"
// would otherwise leave -from unparsed. Arguments after "--" are always positional.
func argsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	var positional, rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			rest = args[i+1:]
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if f := fs.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	out := append(flags, positional...)
	if rest != nil {
		out = append(out, "--")
		out = append(out, rest...)
	}
	return out
}

func isBoolFlag(f *flag.Flag) bool {
	bf, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && bf.IsBoolFlag()
}

func runDateRange() {
	fs := flag.NewFlagSet("date-range", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	from := fs.String("from", "", "range start (YYYY-MM-DD, YYYY-MM-DDTHH:mm:ss or RFC 3339); default 1970-01-01")
	to := fs.String("to", "", "range end; default 3000-12-31")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: termquery date-range [flags] <property>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	fragment, err := buildDateRange(components.Registry, fs.Arg(0), *from, *to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "date-range: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQuery(os.Stdout, fs.Arg(0), fragment, format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildDateRange resolves the property name and dates and returns the range fragment.
func buildDateRange(reg *dictionary.Registry, property, from, to string) (string, error) {
	name, err := dictionary.ResolveQName(property, reg)
	if err != nil {
		return "", err
	}
	fromDate, err := query.ParseDate(from)
	if err != nil {
		return "", fmt.Errorf("from: %w", err)
	}
	toDate, err := query.ParseDate(to)
	if err != nil {
		return "", fmt.Errorf("to: %w", err)
	}
	return query.DateRangeQuery(fromDate, toDate, name, reg, reg)
}

func runHasTerm() {
	fs := flag.NewFlagSet("has-term", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: termquery has-term [flags] <field>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	exists, err := components.Index.HasField(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "has-term: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFieldExists(os.Stdout, fs.Arg(0), exists, format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	id := fs.String("id", "", "document id (default: random UUID)")
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: termquery index [flags] <document.json>")
		os.Exit(1)
	}

	fields, err := readDocument(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "index: %v\n", err)
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	docID := *id
	if docID == "" {
		docID = uuid.New().String()
	}
	if err := components.Index.Index(context.Background(), docID, fields); err != nil {
		fmt.Fprintf(os.Stderr, "index: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %s\n", docID)
}

// readDocument reads a JSON object whose keys are field names (cm:name).
func readDocument(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("document %s has no fields", path)
	}
	return fields, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: termquery delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	if err := components.Index.Delete(context.Background(), docID); err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runTerms() {
	fs := flag.NewFlagSet("terms", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: termquery terms [flags] <field>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	terms, err := components.Index.FieldTerms(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "terms: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteTerms(os.Stdout, fs.Arg(0), terms, format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runImportModel() {
	fs := flag.NewFlagSet("import-model", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: termquery import-model [flags] <model.yaml>")
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	if err := components.ImportModel(context.Background(), fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "import-model: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %s (%d properties)\n", fs.Arg(0), len(components.Registry.Properties()))
}

func runProperties() {
	fs := flag.NewFlagSet("properties", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	if err := cli.WriteProperties(os.Stdout, components.Registry.Properties(), components.Registry, format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Components holds the opened dictionary store, registry and index.
type Components struct {
	Storage  storage.Storage
	Registry *dictionary.Registry
	Index    *keyword.BleveIndex
}

// Close releases the index and the store.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// ImportModel merges the model file into the registry and persists the result.
func (c *Components) ImportModel(ctx context.Context, path string) error {
	if err := c.Registry.LoadModelFile(path); err != nil {
		return err
	}
	if err := c.Storage.SaveRegistry(ctx, c.Registry); err != nil {
		return fmt.Errorf("failed to persist dictionary: %w", err)
	}
	return nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	components := &Components{Storage: store}

	reg, err := store.LoadRegistry(context.Background())
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to load dictionary: %w", err)
	}
	components.Registry = reg

	if cfg.Dictionary.ModelPath != "" {
		if err := components.ImportModel(context.Background(), cfg.Dictionary.ModelPath); err != nil {
			logger.Warn("model import skipped", zap.String("path", cfg.Dictionary.ModelPath), zap.Error(err))
		}
	}
	logger.Debug("dictionary loaded", zap.Int("properties", len(reg.Properties())))

	idxOpts := []keyword.IndexOption{keyword.WithDictionary(reg)}
	if debug {
		idxOpts = append(idxOpts, keyword.WithLogger(logger))
	}
	idx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath, idxOpts...)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	components.Index = idx
	return components, nil
}

func printUsage() {
	fmt.Println(`termquery - query fragments and term lookups for the full-text index

Usage:
  termquery server [flags]                  Start the HTTP server
  termquery date-range [flags] <property>   Print a date range query fragment
  termquery has-term [flags] <field>        Check whether a field has any indexed term
  termquery terms [flags] <field>           List the indexed terms of a field
  termquery index [flags] <document.json>   Index a document (JSON object of fields)
  termquery delete [flags] <document-id>    Remove a document from the index
  termquery import-model [flags] <model>    Import a YAML dictionary model
  termquery properties [flags]              List dictionary properties
  termquery version                         Show version
  termquery help                            Show this help

Flags may be given before or after the positional argument.

Common Flags:
  --config string    Config file path (default: /usr/local/etc/termquery/config.yaml)

Server Flags:
  --debug            Enable debug logging

Date Range Flags:
  --from string      Range start (default: 1970-01-01T00:00:00)
  --to string        Range end (default: 3000-12-31T00:00:00)
  --output string    Output format: text or json (default: text)

Index Flags:
  --id string        Document id (default: random UUID)

Examples:
  termquery date-range cm:created --from 2020-01-01 --to 2020-12-31
  termquery has-term cm:title
  termquery import-model ./models/content.yaml
  termquery properties --output json`)
}

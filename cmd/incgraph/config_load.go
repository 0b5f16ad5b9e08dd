package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"incgraph/internal/cli"
	"incgraph/internal/logging"
	"incgraph/internal/session"
	"incgraph/internal/tree"
	"incgraph/internal/version"

	"github.com/joho/godotenv"
)

type Config struct {
	Root          string
	Port          int
	AuthToken     string
	RelayCapacity int
	ScanWorkers   int
	TreeSize      int
	MaxWatches    int
	LogLevel      logging.Level
	NoColor       bool
	Sources       map[string]configSource
}

type configSource string

const (
	sourceDefault configSource = "default"
	sourceEnv     configSource = "env"
	sourceFlag    configSource = "flag"
)

type configDefaults struct {
	Port          int
	RelayCapacity int
	ScanWorkers   int
	TreeSize      int
	MaxWatches    int
	LogLevel      logging.Level
}

type flagValues struct {
	Root          string
	Port          int
	Token         string
	RelayCapacity int
	ScanWorkers   int
	TreeSize      int
	MaxWatches    int
	LogLevel      string
	NoColor       bool
	Help          bool
	Version       bool
	Set           map[string]bool
}

type helpOption struct {
	Name string
	Desc string
}

func defaultConfigValues() configDefaults {
	return configDefaults{
		Port:          8417,
		RelayCapacity: session.DefaultRelayCapacity,
		ScanWorkers:   4 * runtime.NumCPU(),
		TreeSize:      tree.DefaultSize,
		MaxWatches:    8192,
		LogLevel:      logging.LevelInfo,
	}
}

// loadEnvFile exports variables from a dotenv file without overriding the
// process environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// loadConfig resolves settings with flags over INCGRAPH_* env over defaults.
func loadConfig(args []string, out io.Writer) (Config, error) {
	defaults := defaultConfigValues()
	flags, err := parseFlags(args, defaults, out)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Sources: make(map[string]configSource),
	}

	root := ""
	rootSource := sourceDefault
	if rawRoot := strings.TrimSpace(os.Getenv("INCGRAPH_ROOT")); rawRoot != "" {
		root = rawRoot
		rootSource = sourceEnv
	}
	if flags.Set["root"] {
		trimmed := strings.TrimSpace(flags.Root)
		if trimmed == "" {
			return Config{}, fmt.Errorf("invalid --root: value cannot be empty")
		}
		root = trimmed
		rootSource = sourceFlag
	}
	cfg.Root = root
	cfg.Sources["root"] = rootSource

	token := os.Getenv("INCGRAPH_TOKEN")
	tokenSource := sourceDefault
	if token != "" {
		tokenSource = sourceEnv
	}
	if flags.Set["token"] {
		token = flags.Token
		tokenSource = sourceFlag
	}
	cfg.AuthToken = token
	cfg.Sources["token"] = tokenSource

	intSettings := []struct {
		name     string
		env      string
		fallback int
		flag     int
		target   *int
	}{
		{name: "port", env: "INCGRAPH_PORT", fallback: defaults.Port, flag: flags.Port, target: &cfg.Port},
		{name: "relay-capacity", env: "INCGRAPH_RELAY_CAPACITY", fallback: defaults.RelayCapacity, flag: flags.RelayCapacity, target: &cfg.RelayCapacity},
		{name: "scan-workers", env: "INCGRAPH_SCAN_WORKERS", fallback: defaults.ScanWorkers, flag: flags.ScanWorkers, target: &cfg.ScanWorkers},
		{name: "tree-size", env: "INCGRAPH_TREE_SIZE", fallback: defaults.TreeSize, flag: flags.TreeSize, target: &cfg.TreeSize},
		{name: "max-watches", env: "INCGRAPH_MAX_WATCHES", fallback: defaults.MaxWatches, flag: flags.MaxWatches, target: &cfg.MaxWatches},
	}
	for _, setting := range intSettings {
		value := setting.fallback
		source := sourceDefault
		if raw := strings.TrimSpace(os.Getenv(setting.env)); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				value = parsed
				source = sourceEnv
			}
		}
		if flags.Set[setting.name] {
			if setting.flag <= 0 {
				return Config{}, fmt.Errorf("invalid --%s: must be > 0", setting.name)
			}
			value = setting.flag
			source = sourceFlag
		}
		*setting.target = value
		cfg.Sources[setting.name] = source
	}

	level := defaults.LogLevel
	levelSource := sourceDefault
	if raw := os.Getenv("INCGRAPH_LOG_LEVEL"); raw != "" {
		if parsed, ok := logging.ParseLevel(raw); ok {
			level = parsed
			levelSource = sourceEnv
		}
	}
	if flags.Set["log-level"] {
		parsed, ok := logging.ParseLevel(flags.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("invalid --log-level: %q", flags.LogLevel)
		}
		level = parsed
		levelSource = sourceFlag
	}
	cfg.LogLevel = level
	cfg.Sources["log-level"] = levelSource

	noColor := false
	noColorSource := sourceDefault
	if raw := strings.TrimSpace(os.Getenv("INCGRAPH_NO_COLOR")); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			noColor = parsed
			noColorSource = sourceEnv
		}
	}
	if flags.Set["no-color"] {
		noColor = flags.NoColor
		noColorSource = sourceFlag
	}
	cfg.NoColor = noColor
	cfg.Sources["no-color"] = noColorSource

	return cfg, nil
}

func parseFlags(args []string, defaults configDefaults, out io.Writer) (flagValues, error) {
	if args == nil {
		args = []string{}
	}
	fs := flag.NewFlagSet("incgraph", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	root := fs.String("root", "", "Directory to watch at startup")
	port := fs.Int("port", defaults.Port, "HTTP port")
	token := fs.String("token", "", "Auth token for REST/WS")
	relayCapacity := fs.Int("relay-capacity", defaults.RelayCapacity, "Pending filesystem events before drops")
	scanWorkers := fs.Int("scan-workers", defaults.ScanWorkers, "Concurrent parses during the initial scan")
	treeSize := fs.Int("tree-size", defaults.TreeSize, "Files kept in the in-memory view")
	maxWatches := fs.Int("max-watches", defaults.MaxWatches, "Max watched directories")
	logLevel := fs.String("log-level", string(defaults.LogLevel), "Minimum log level")
	noColor := fs.Bool("no-color", false, "Disable colored console output")
	helpVersion := cli.AddHelpVersionFlags(fs)

	fs.Usage = func() {
		printHelp(out, defaults)
	}

	if err := fs.Parse(args); err != nil {
		return flagValues{}, err
	}
	if fs.NArg() > 0 {
		return flagValues{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	set := make(map[string]bool)
	fs.Visit(func(flag *flag.Flag) {
		set[flag.Name] = true
	})

	flags := flagValues{
		Root:          *root,
		Port:          *port,
		Token:         *token,
		RelayCapacity: *relayCapacity,
		ScanWorkers:   *scanWorkers,
		TreeSize:      *treeSize,
		MaxWatches:    *maxWatches,
		LogLevel:      *logLevel,
		NoColor:       *noColor,
		Help:          helpVersion.Help,
		Version:       helpVersion.Version,
		Set:           set,
	}

	if flags.Help {
		fs.Usage()
		return flags, flag.ErrHelp
	}
	if flags.Version {
		cli.PrintVersion(out, "incgraph")
		return flags, flag.ErrHelp
	}
	return flags, nil
}

func printHelp(out io.Writer, defaults configDefaults) {
	if out == nil {
		return
	}
	fmt.Fprintln(out, "Usage: incgraph [options]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Watches a C/C++ tree and streams file changesets with their includes")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")

	writeOptionGroup(out, "Server", []helpOption{
		{Name: "--port PORT", Desc: fmt.Sprintf("HTTP port (env: INCGRAPH_PORT, default: %d)", defaults.Port)},
		{Name: "--token TOKEN", Desc: "Auth token for REST/WS (env: INCGRAPH_TOKEN, default: none)"},
	})
	writeOptionGroup(out, "Watching", []helpOption{
		{Name: "--root DIR", Desc: "Directory to watch at startup (env: INCGRAPH_ROOT, default: none)"},
		{Name: "--relay-capacity N", Desc: fmt.Sprintf("Pending events before drops (env: INCGRAPH_RELAY_CAPACITY, default: %d)", defaults.RelayCapacity)},
		{Name: "--scan-workers N", Desc: fmt.Sprintf("Concurrent initial parses (env: INCGRAPH_SCAN_WORKERS, default: %d)", defaults.ScanWorkers)},
		{Name: "--tree-size N", Desc: fmt.Sprintf("Files kept in memory (env: INCGRAPH_TREE_SIZE, default: %d)", defaults.TreeSize)},
		{Name: "--max-watches N", Desc: fmt.Sprintf("Max watched directories (env: INCGRAPH_MAX_WATCHES, default: %d)", defaults.MaxWatches)},
	})
	writeOptionGroup(out, "Output", []helpOption{
		{Name: "--log-level LEVEL", Desc: fmt.Sprintf("debug, info, warning or error (env: INCGRAPH_LOG_LEVEL, default: %s)", defaults.LogLevel)},
		{Name: "--no-color", Desc: "Disable colored console output (env: INCGRAPH_NO_COLOR)"},
		{Name: "--help", Desc: "Show help"},
		{Name: "--version", Desc: "Print version and exit"},
	})
}

func writeOptionGroup(out io.Writer, title string, options []helpOption) {
	if len(options) == 0 {
		return
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, title+":")
	for _, option := range options {
		fmt.Fprintf(out, "  %-24s %s\n", option.Name, option.Desc)
	}
}

func logStartupConfig(logger *logging.Logger, cfg Config) {
	fields := map[string]string{
		"version":        version.Get().String(),
		"port":           strconv.Itoa(cfg.Port),
		"relay_capacity": strconv.Itoa(cfg.RelayCapacity),
		"scan_workers":   strconv.Itoa(cfg.ScanWorkers),
		"tree_size":      strconv.Itoa(cfg.TreeSize),
		"log_level":      string(cfg.LogLevel),
	}
	if cfg.Root != "" {
		fields["root"] = cfg.Root
	}
	if cfg.AuthToken != "" {
		fields["token"] = "set"
	}
	logger.Info("config resolved", fields)
}

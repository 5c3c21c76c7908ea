package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/framegraph/internal/app"
)

// Environment variables consulted for flags that were not given.
const (
	EnvLogLevel  = "FRAMEGRAPH_LOG_LEVEL"
	EnvLogFormat = "FRAMEGRAPH_LOG_FORMAT"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// pathList collects repeated -graph flags.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("framegraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
framegraph - Compile declarative node graphs into framed, laid-out scopes.

Usage:
  framegraph [options] [GRAPH_PATH...]

Arguments:
  GRAPH_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Environment:
  FRAMEGRAPH_LOG_LEVEL, FRAMEGRAPH_LOG_FORMAT
    Defaults for -log-level and -log-format. Also read from the -env-file.

Options:
`)
		flagSet.PrintDefaults()
	}

	var graphs pathList
	flagSet.Var(&graphs, "graph", "Path to a graph file or directory. May be repeated.")
	flagSet.Var(&graphs, "g", "Path to a graph file or directory (shorthand).")
	envFileFlag := flagSet.String("env-file", ".env", "File with environment defaults. Ignored when missing.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'. (default $"+EnvLogFormat+" or 'text')")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. (default $"+EnvLogLevel+" or 'info')")
	outputFlag := flagSet.String("output", "text", "Report format. Options: 'text' or 'json'.")
	recompileFlag := flagSet.Int("recompile", 0, "Number of extra compiles after the first one.")
	metricsFlag := flagSet.Bool("metrics", false, "Append builder metrics to the report.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := append([]string(nil), graphs...)
	paths = append(paths, flagSet.Args()...)
	if len(paths) == 0 {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if err := loadEnvFile(*envFileFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(firstNonEmpty(*logFormatFlag, os.Getenv(EnvLogFormat), "text"))
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(firstNonEmpty(*logLevelFlag, os.Getenv(EnvLogLevel), "info"))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GraphPaths: paths,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		Output:     strings.ToLower(*outputFlag),
		Recompile:  *recompileFlag,
		Metrics:    *metricsFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// loadEnvFile applies path to the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No env file found.", "path", path)
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	slog.Debug("Env file loaded.", "path", path)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

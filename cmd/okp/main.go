// Command okp searches the Red Hat Offline Knowledge Portal from the shell,
// answers questions from retrieved documentation, and serves retrieval over HTTP.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/config"
	logpkg "github.com/kailas-cloud/okp/internal/logger"
	"github.com/kailas-cloud/okp/internal/version"
)

const usage = `Usage: okp <command> [flags]

Commands:
  search   Search OKP and print the result as JSON (or the LLM context)
  ask      Answer a question from retrieved documentation with an LLM
  health   Check OKP reachability
  serve    Serve retrieval over HTTP
  version  Print version information

Run "okp <command> -h" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "search":
		err = runSearch(rest, stdout, stderr)
	case "ask":
		err = runAsk(rest, stdout, stderr)
	case "health":
		err = runHealth(rest, stdout, stderr)
	case "serve":
		err = runServe(rest, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "okp %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage error")

// commonFlags are shared by every command that talks to OKP.
type commonFlags struct {
	configPath string
	verbose    bool
	jsonLog    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", os.Getenv("OKP_CONFIG"), "path to a YAML config file (env OKP_CONFIG)")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logging to stderr")
	fs.BoolVar(&c.jsonLog, "json-log", false, "emit JSON log lines")
}

// load reads the configuration and builds the logger. Flags override the
// logging section of the file.
func (c *commonFlags) load() (config.App, *zap.Logger, error) {
	app, err := config.Load(c.configPath)
	if err != nil {
		return config.App{}, nil, err
	}
	if c.jsonLog {
		app.Logging.Format = "json"
	}
	if c.verbose {
		app.Logging.Level = "debug"
	}
	logger, err := logpkg.NewLogger(app.Logging.Format, app.Logging.Level)
	if err != nil {
		return config.App{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return app, logger, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

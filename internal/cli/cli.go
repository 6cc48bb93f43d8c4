// Package cli implements the aiaa command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"aiaa/internal/client"
	"aiaa/internal/config"
	"aiaa/internal/request"
	"aiaa/pkg/types"
)

// API is the part of the inference client the commands use.
type API interface {
	request.ModelSource
	request.Inferer
	QueryModels(ctx context.Context, q client.ModelQuery) ([]types.Model, error)
	CreateSession(ctx context.Context, imagePath string, expirySeconds int) (types.Session, error)
	GetSession(ctx context.Context, id string) (types.Session, error)
	CloseSession(ctx context.Context, id string) error
}

// fnNewClient builds the API used by every command; tests replace it.
var fnNewClient = func(server string, opts client.Options) (API, error) {
	c, err := client.New(server, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// commonFlags are accepted by every command that talks to a server.
type commonFlags struct {
	Server   string
	Timeout  int
	Config   string
	APIKey   string
	LogLevel string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.Server, "server", "", "Server URI (default "+config.DefaultServer+")")
	fs.IntVar(&c.Timeout, "timeout", 0, "Timeout in seconds (default 60)")
	fs.StringVar(&c.Config, "config", "", "Config file (.yaml|.json|.toml), defaults to AIAA_CONFIG")
	fs.StringVar(&c.APIKey, "api-key", "", "Bearer token sent to the server")
	fs.StringVar(&c.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
}

// resolve layers explicitly given flags over config.Resolve.
func (c *commonFlags) resolve(set map[string]bool) (config.Config, error) {
	cfg, err := config.Resolve(c.Config)
	if err != nil {
		return config.Config{}, err
	}
	if set["server"] {
		cfg.Server = c.Server
	}
	if set["timeout"] {
		if c.Timeout <= 0 {
			return config.Config{}, fmt.Errorf("timeout must be a positive number of seconds, got %d", c.Timeout)
		}
		cfg.TimeoutSeconds = c.Timeout
	}
	if set["api-key"] {
		cfg.APIKey = c.APIKey
	}
	if set["log-level"] {
		cfg.LogLevel = c.LogLevel
	}
	return cfg, nil
}

// newAPI builds a client for cfg, logging at cfg.LogLevel.
func newAPI(cfg config.Config) (API, error) {
	logger := newLogger(cfg.LogLevel)
	return fnNewClient(cfg.Server, client.Options{
		APIKey:  cfg.APIKey,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:  &logger,
	})
}

// visited returns the names of flags given on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// reportError prints err the way the command line reports failures.
func reportError(err error) {
	if ce, ok := request.ClientError(err); ok {
		fmt.Fprintf(stderr, "aiaa error => %s\n", ce.Error())
		return
	}
	var re *request.Error
	if errors.As(err, &re) && re.Kind == request.KindTransport {
		fmt.Fprintf(stderr, "aiaa error => %v\n", err)
		return
	}
	fmt.Fprintln(stderr, err.Error())
}

func isHelpFlag(a string) bool { return a == "-h" || a == "--help" || a == "-help" }

func isHelpArg(a string) bool { return isHelpFlag(a) || a == "help" }

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns the process exit code.
func MainWithArgs(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, args)
}

// Run executes one command line under ctx.
func Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		usage()
		return 0
	}
	// aiaa -label liver ... behaves like aiaa dextr3d -label liver ...
	if strings.HasPrefix(args[0], "-") && !isHelpArg(args[0]) {
		return runDextr3D(ctx, args)
	}
	code := 0
	root := buildRootCmd(ctx, &code)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return code
}

// Main returns an exit code for use by cmd/aiaa.
func Main() int { return MainWithArgs(os.Args[1:]) }

func usage() {
	fmt.Fprintln(stdout, "Usage: aiaa <command> [options]")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  dextr3d   Run point-based 3D annotation (DEXTR3D); aiaa -label ... is the same")
	fmt.Fprintln(stdout, "  models    List models known to the server")
	fmt.Fprintln(stdout, "  session   create|get|close server-side image sessions")
	fmt.Fprintln(stdout, "  completion bash|zsh|fish|powershell")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/mmcdole/sonicache/internal/adapter"
	"github.com/mmcdole/sonicache/internal/manager"
	"github.com/mmcdole/sonicache/internal/result"
)

const shutdownTimeout = 10 * time.Second

// Runner holds the dependencies shared by all commands.
type Runner struct {
	config    *adapter.Config
	manager   *manager.Manager
	logger    *slog.Logger
	logCloser io.Closer
	output    io.Writer
	input     *os.File

	managerOpts []manager.Option
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Output io.Writer
	Input  *os.File

	// ManagerOptions are passed to every manager the runner creates.
	ManagerOptions []manager.Option
}

// NewRunner creates a Runner writing to stdout unless told otherwise.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	return &Runner{
		output:      opts.Output,
		input:       opts.Input,
		logger:      adapter.NullLogger(),
		managerOpts: opts.ManagerOptions,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range []func(*Runner) *cli.Command{
		configureCommand, artistsCommand, albumsCommand, albumCommand, searchCommand,
		artworkCommand, syncCommand, queueCommand, clearCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// Before loads configuration and sets up logging for every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := adapter.LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}
	r.config = cfg

	if cmd.Bool("verbose") {
		r.logger = adapter.ConsoleLogger(os.Stderr, "DEBUG")
	} else if logger, closer, err := adapter.SetupLogger(&cfg.Logging); err == nil {
		r.logger, r.logCloser = logger, closer
	} else {
		// Fall back to null logger if file logging fails
		r.logger = adapter.NullLogger()
	}
	slog.SetDefault(r.logger)

	r.logger.Info("starting sonicache", "version", Version, "command", cmd.Args().First())
	return ctx, nil
}

// After drains background work and saves the cache.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	defer func() {
		if r.logCloser != nil {
			r.logCloser.Close()
		}
	}()

	if r.manager == nil {
		return nil
	}
	m := r.manager
	r.manager = nil

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return m.Shutdown(ctx)
}

// open connects the cache to the configured server on first use.
func (r *Runner) open(ctx context.Context) (*manager.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}
	if !r.config.IsConfigured() {
		return nil, fmt.Errorf("no server configured, run 'sonicache configure' first")
	}
	if r.config.Server.Password == "" {
		password, err := r.promptPassword(fmt.Sprintf("Password for %s: ", r.config.Server.Username))
		if err != nil {
			return nil, err
		}
		r.config.Server.Password = password
	}

	m := manager.New(r.logger, r.managerOpts...)
	if err := m.Reset(ctx, r.config); err != nil {
		return nil, err
	}
	r.manager = m
	return m, nil
}

func (r *Runner) promptPassword(prompt string) (string, error) {
	fd := int(r.input.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password is not configured and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(password)), nil
}

func (r *Runner) outputIsTerminal() bool {
	f, ok := r.output.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// await blocks until a cache accessor's Result resolves.
func await[T any](res *result.Result[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return res.Result()
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := fmt.Fprintln(r.output, string(output)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format+"\n", args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/shared"
	"github.com/desertthunder/vidx/internal/tasks"
)

// Conn is an engine connection owned by one command.
type Conn interface {
	engine.Engine
	Close() error
}

// Dialer opens an engine connection.
type Dialer func(ctx context.Context) (Conn, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	dial       Dialer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Dial       Dialer // defaults to a websocket connection to config.Engine.URL
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		dial:       opts.Dial,
	}
	if r.dial == nil {
		r.dial = r.dialWebsocket
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, tuiCommand, listCommand, addCommand, startCommand, stopCommand, deleteCommand, editCommand,
		convertCommand, logCommand, playerCommand, engineCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) dialWebsocket(ctx context.Context) (Conn, error) {
	r.logger.Debug("connecting to engine", "url", r.config.Engine.URL)
	client, err := engine.Dial(ctx, r.config.Engine.URL, engine.ClientOptions{
		RequestTimeout: r.config.Engine.RequestTimeout(),
		Logger:         r.logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// taskList builds a task list over conn from the configuration. The list is not attached.
func (r *Runner) taskList(conn engine.Engine, concurrency int) *tasks.TaskList {
	if concurrency <= 0 {
		concurrency = r.config.List.BatchConcurrency
	}
	return tasks.New(conn, tasks.Options{
		PageSize:         r.config.List.PageSize,
		BatchConcurrency: concurrency,
		Preferences:      r.config.Preferences,
		PlaybackPort:     r.config.Server.Port,
		Logger:           r.logger,
	})
}

// withTasks dials the engine, hands fn a task list over it and tears both down afterwards.
//
// Event subscriptions are left off: one-shot commands read state through explicit refreshes.
func (r *Runner) withTasks(ctx context.Context, concurrency int, fn func(*tasks.TaskList) error) error {
	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(r.taskList(conn, concurrency))
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

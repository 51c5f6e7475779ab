// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func concurrencyFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "concurrency",
		Usage: "Tasks processed at once when several ids are given (0 uses list.batch_concurrency)",
	}
}

// listCommand prints one page of tasks
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List download tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "View to list (list or done)",
				Value:   "list",
			},
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "Page number, starting at 1",
				Value:   1,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (text, csv or markdown)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the listing to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.List,
	}
}

// addCommand creates tasks
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create a download task",
		ArgsUsage: "<url> [name]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "headers",
				Usage: "Request headers, one `Name: value` per line",
			},
			&cli.StringFlag{
				Name:  "batch-file",
				Usage: "File with one `url [name]` per line; creates one task per line",
			},
			&cli.BoolFlag{
				Name:  "start",
				Usage: "Start the created tasks right away",
			},
		},
		Action: r.Add,
	}
}

// startCommand starts, resumes or retries tasks
func startCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Aliases:   []string{"download"},
		Usage:     "Start, resume or retry tasks",
		ArgsUsage: "<id>...",
		Flags:     []cli.Flag{concurrencyFlag()},
		Action:    r.Start,
	}
}

// stopCommand pauses a task
func stopCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "Pause a downloading task",
		ArgsUsage: "<id>",
		Action:    r.Stop,
	}
}

// deleteCommand removes tasks
func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete tasks",
		ArgsUsage: "<id>...",
		Flags:     []cli.Flag{concurrencyFlag()},
		Action:    r.Delete,
	}
}

// editCommand updates task metadata
func editCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit the name, url or headers of a task",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "New name"},
			&cli.StringFlag{Name: "url", Usage: "New source url"},
			&cli.StringFlag{Name: "headers", Usage: "New request headers"},
		},
		Action: r.Edit,
	}
}

// convertCommand extracts audio from a finished task
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a finished download to audio",
		ArgsUsage: "<id>",
		Action:    r.Convert,
	}
}

// logCommand prints the engine log of a task
func logCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Show the engine log of a task",
		ArgsUsage: "<id>",
		Action:    r.Log,
	}
}

// playerCommand prints or opens the mobile playback page
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "player",
		Usage: "Show the address phones on this network can open to play finished downloads",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the player page in the browser",
			},
		},
		Action: r.Player,
	}
}

// engineCommand runs the development engine
func engineCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "engine",
		Usage: "Development engine commands",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the SQLite-backed development engine over websocket",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (defaults to server.host:server.port)",
					},
					&cli.StringFlag{
						Name:  "db",
						Usage: "Database path (defaults to database.path)",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Log every request",
					},
				},
				Action: r.EngineServe,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml with the default settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive task management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive download manager",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/vidx-tui.log",
			},
		},
		Action: r.TUI,
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vidx/internal/formatter"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
	"github.com/desertthunder/vidx/internal/tasks"
)

// parseIDs reads task ids from positional arguments.
func parseIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one task id", shared.ErrMissingArgument)
	}
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q is not a task id", shared.ErrInvalidArgument, a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(args []string) (int64, error) {
	ids, err := parseIDs(args)
	if err != nil {
		return 0, err
	}
	if len(ids) > 1 {
		return 0, fmt.Errorf("%w: expected a single task id", shared.ErrInvalidArgument)
	}
	return ids[0], nil
}

// printNotices writes the notices produced so far without waiting for more.
func (r *Runner) printNotices(l *tasks.TaskList) {
	for {
		select {
		case n := <-l.Notices():
			mark := "✓"
			switch n.Level {
			case tasks.LevelError:
				mark = "✗"
			case tasks.LevelInfo:
				mark = "•"
			}
			r.writePlain("%s %s\n", mark, n.Message)
		default:
			return
		}
	}
}

// List prints one page of the chosen view.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	filter, err := models.ParseFilter(cmd.String("filter"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	page := cmd.Int("page")
	outputPath := cmd.String("output")

	return r.withTasks(ctx, 0, func(l *tasks.TaskList) error {
		// the store starts on the list filter, so SetFilter alone may not fetch
		if err := l.SetFilter(ctx, filter); err != nil {
			return err
		}
		if err := l.SetPage(ctx, page); err != nil {
			return err
		}
		view := l.View()

		if cmd.Bool("json") {
			return r.writeJSON(view, cmd.Bool("pretty"))
		}
		if outputPath != "" {
			if err := formatter.WriteExport(view, format, outputPath); err != nil {
				return err
			}
			r.logger.Info("listing written", "path", outputPath, "tasks", len(view.Rows))
			return nil
		}

		data, err := formatter.Export(view, format)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	})
}

// Add creates one task from arguments, or one per line of --batch-file.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	headers := cmd.String("headers")
	batchFile := cmd.String("batch-file")
	args := cmd.Args().Slice()

	if batchFile == "" && len(args) == 0 {
		return fmt.Errorf("%w: a url or --batch-file", shared.ErrMissingArgument)
	}
	if batchFile != "" && len(args) > 0 {
		return fmt.Errorf("%w: cannot combine a url with --batch-file", shared.ErrInvalidArgument)
	}

	return r.withTasks(ctx, 0, func(l *tasks.TaskList) error {
		defer r.printNotices(l)

		var created []models.DownloadItem
		if batchFile != "" {
			text, err := os.ReadFile(batchFile)
			if err != nil {
				return fmt.Errorf("failed to read batch file: %w", err)
			}
			if created, err = l.AddBatch(ctx, string(text), headers); err != nil {
				return err
			}
		} else {
			item := models.NewDownloadItem{URL: args[0], Headers: headers, Type: models.TypeM3U8}
			if len(args) > 1 {
				item.Name = strings.Join(args[1:], " ")
			}
			c, err := l.Add(ctx, item)
			if err != nil {
				return err
			}
			created = append(created, c)
		}

		for _, item := range created {
			r.writePlain("%d\t%s\n", item.ID, item.Name)
		}

		if !cmd.Bool("start") {
			return nil
		}
		for _, item := range created {
			l.SelectItem(item.ID)
		}
		return l.BulkDownload(ctx)
	})
}

// Start starts one task, or every given task through the batch executor.
func (r *Runner) Start(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return r.withTasks(ctx, cmd.Int("concurrency"), func(l *tasks.TaskList) error {
		defer r.printNotices(l)
		if len(ids) == 1 {
			return l.Start(ctx, ids[0])
		}
		for _, id := range ids {
			l.SelectItem(id)
		}
		return l.BulkDownload(ctx)
	})
}

// Stop pauses one task.
func (r *Runner) Stop(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return r.withTasks(ctx, 0, func(l *tasks.TaskList) error {
		defer r.printNotices(l)
		return l.Stop(ctx, id)
	})
}

// Delete removes one task, or every given task through the batch executor.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return r.withTasks(ctx, cmd.Int("concurrency"), func(l *tasks.TaskList) error {
		defer r.printNotices(l)
		if len(ids) == 1 {
			return l.Delete(ctx, ids[0])
		}
		for _, id := range ids {
			l.SelectItem(id)
		}
		return l.BulkDelete(ctx)
	})
}

// Edit changes the given fields of a task and keeps the rest.
func (r *Runner) Edit(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.Args().Slice())
	if err != nil {
		return err
	}
	if !cmd.IsSet("name") && !cmd.IsSet("url") && !cmd.IsSet("headers") {
		return fmt.Errorf("%w: one of --name, --url or --headers", shared.ErrMissingArgument)
	}

	return r.withTasks(ctx, 0, func(l *tasks.TaskList) error {
		defer r.printNotices(l)

		item, err := findItem(ctx, l, id)
		if err != nil {
			return err
		}

		edit := models.EditDownloadItem{ID: id, Name: item.Name, URL: item.URL, Headers: item.Headers, Type: item.Type}
		if cmd.IsSet("name") {
			edit.Name = cmd.String("name")
		}
		if cmd.IsSet("url") {
			edit.URL = cmd.String("url")
		}
		if cmd.IsSet("headers") {
			edit.Headers = cmd.String("headers")
		}
		return l.Edit(ctx, edit)
	})
}

// findItem looks id up page by page in both views.
func findItem(ctx context.Context, l *tasks.TaskList, id int64) (models.DownloadItem, error) {
	for _, filter := range []models.DownloadFilter{models.FilterList, models.FilterDone} {
		if err := l.SetFilter(ctx, filter); err != nil {
			return models.DownloadItem{}, err
		}
		for page := 1; ; page++ {
			if err := l.SetPage(ctx, page); err != nil {
				return models.DownloadItem{}, err
			}
			view := l.View()
			for _, row := range view.Rows {
				if row.Item.ID == id {
					return row.Item, nil
				}
			}
			if page >= view.Pages {
				break
			}
		}
	}
	return models.DownloadItem{}, fmt.Errorf("%w: %d", shared.ErrTaskNotFound, id)
}

// Convert extracts audio from a finished task.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return r.withTasks(ctx, 0, func(l *tasks.TaskList) error {
		defer r.printNotices(l)
		return l.Convert(ctx, id)
	})
}

// Log prints the engine log of a task.
func (r *Runner) Log(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return r.withTasks(ctx, 0, func(l *tasks.TaskList) error {
		text, err := l.GetLog(ctx, id)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return r.writePlain("no log output for task %d\n", id)
		}
		return r.writePlain("%s\n", strings.TrimRight(text, "\n"))
	})
}

// Player prints the mobile playback address, and opens it with --open.
func (r *Runner) Player(ctx context.Context, cmd *cli.Command) error {
	return r.withTasks(ctx, 0, func(l *tasks.TaskList) error {
		base, err := l.PlaybackURL(ctx)
		if err != nil {
			return err
		}
		r.writePlain("%splayer\n", base)

		if cmd.Bool("open") {
			defer r.printNotices(l)
			return l.Play(ctx)
		}
		return nil
	})
}

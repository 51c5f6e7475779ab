// package formatter renders a task list page as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
	"github.com/desertthunder/vidx/internal/tasks"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts a flag value into a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv or markdown)", shared.ErrInvalidArgument, s)
	}
}

// Export renders view in format.
func Export(view tasks.View, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(view.Rows)
	case FormatMarkdown:
		return ExportToMarkdown(view)
	default:
		return ExportToText(view)
	}
}

// ExportToCSV converts rows to CSV with columns: ID, Name, Status, Tags, Progress, Speed, URL
func ExportToCSV(rows []tasks.Row) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Status", "Tags", "Progress", "Speed", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		progress, speed := "", ""
		if row.Progress != nil {
			progress = strconv.Itoa(row.Progress.Percent)
			speed = row.Progress.Speed
		}
		record := []string{
			strconv.FormatInt(row.Item.ID, 10),
			row.Title,
			row.Item.Status.String(),
			strings.Join(tagLabels(row.Tags), ";"),
			progress,
			speed,
			row.Item.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a view to a Markdown document with one list entry per task
func ExportToMarkdown(view tasks.View) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", heading(view.Request.Filter)))
	buf.WriteString(fmt.Sprintf("**Tasks**: %d\n", view.Total))
	buf.WriteString(fmt.Sprintf("**Page**: %d of %d\n\n", view.Request.Current, max(view.Pages, 1)))

	for i, row := range view.Rows {
		title := row.Title
		if row.TitleDisabled {
			title = "~~" + title + "~~"
		}
		tags := ""
		for _, label := range tagLabels(row.Tags) {
			tags += fmt.Sprintf(" `%s`", label)
		}
		buf.WriteString(fmt.Sprintf("%d. **%s**%s\n", i+1, title, tags))
		buf.WriteString(fmt.Sprintf("   - %s\n", describe(row)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a view to plain text
func ExportToText(view tasks.View) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s: %d tasks (page %d/%d)\n\n", heading(view.Request.Filter), view.Total, view.Request.Current, max(view.Pages, 1)))

	for _, row := range view.Rows {
		line := fmt.Sprintf("%d. %s", row.Item.ID, row.Title)
		for _, label := range tagLabels(row.Tags) {
			line += " [" + label + "]"
		}
		buf.WriteString(line + "\n")
		buf.WriteString(fmt.Sprintf("   %s\n", describe(row)))
		if row.Note != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", row.Note))
		}
	}

	return buf.Bytes(), nil
}

// WriteExport renders view in format and writes it to path.
func WriteExport(view tasks.View, format Format, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path is required", shared.ErrMissingArgument)
	}

	data, err := Export(view, format)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	return nil
}

func heading(f models.DownloadFilter) string {
	if f == models.FilterDone {
		return "Downloaded"
	}
	return "Downloading"
}

func describe(row tasks.Row) string {
	if row.Progress != nil {
		return fmt.Sprintf("%d%% %s", row.Progress.Percent, row.Progress.Speed)
	}
	return row.Description
}

func tagLabels(tags []tasks.Tag) []string {
	labels := make([]string, len(tags))
	for i, t := range tags {
		labels[i] = t.Label
	}
	return labels
}

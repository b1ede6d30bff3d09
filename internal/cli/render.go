package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/amirbrooks/todo-vault/internal/codec"
	"github.com/amirbrooks/todo-vault/internal/model"
)

const telegramMaxChars = 3800

type renderFormat string

const (
	formatTree     renderFormat = "tree"
	formatASCII    renderFormat = "ascii"
	formatPlain    renderFormat = "plain"
	formatTelegram renderFormat = "telegram"
	formatJSON     renderFormat = "json"
)

func parseRenderFormat(s string) (renderFormat, error) {
	switch f := renderFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return formatTree, nil
	case formatTree, formatASCII, formatPlain, formatTelegram, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (tree|ascii|plain|telegram|json)", model.ErrInvalid, s)
	}
}

func statusMark(s model.Status, ascii bool) string {
	if ascii {
		switch s {
		case model.StatusDone:
			return "[x]"
		case model.StatusInProgress:
			return "[~]"
		default:
			return "[ ]"
		}
	}
	switch s {
	case model.StatusDone:
		return "☑"
	case model.StatusInProgress:
		return "◐"
	default:
		return "☐"
	}
}

func telegramStatusEmoji(s model.Status) string {
	switch s {
	case model.StatusDone:
		return "✅"
	case model.StatusInProgress:
		return "🔨"
	default:
		return "📝"
	}
}

func cleanTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func tagSuffix(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " #" + strings.Join(tags, " #")
}

func renderTasks(w io.Writer, p *model.Project, tasks []model.Task, f renderFormat) error {
	switch f {
	case formatJSON:
		out := codec.PlainProject{ID: p.ID, Name: p.Name, Tasks: make([]codec.PlainTask, 0, len(tasks))}
		for _, t := range tasks {
			out.Tasks = append(out.Tasks, codec.TaskToPlain(t))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case formatPlain:
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDEPTH\tSTATUS\tTITLE\tTAGS\tUPDATED")
		model.Walk(tasks, func(t *model.Task, depth int) bool {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", t.ID, depth, t.Status, cleanTitle(t.Title), strings.Join(t.Tags, ","), codec.FormatTime(t.UpdatedAt))
			return true
		})
		return tw.Flush()
	case formatTelegram:
		_, err := io.WriteString(w, renderTelegram(p, tasks)+"\n")
		return err
	default:
		_, err := io.WriteString(w, renderTree(p, tasks, f == formatASCII))
		return err
	}
}

func renderTree(p *model.Project, tasks []model.Task, ascii bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", p.Name, p.ID)
	if len(tasks) == 0 {
		b.WriteString("  No tasks.\n")
		return b.String()
	}
	model.Walk(tasks, func(t *model.Task, depth int) bool {
		fmt.Fprintf(&b, "%s%s %s%s  %s\n", strings.Repeat("  ", depth+1), statusMark(t.Status, ascii), cleanTitle(t.Title), tagSuffix(t.Tags), t.ID)
		return true
	})
	return b.String()
}

func renderTelegram(p *model.Project, tasks []model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Tasks — %s\n\n", cleanTitle(p.Name))
	if len(tasks) == 0 {
		b.WriteString("No tasks.\n")
		return trimTelegramOutput(b.String())
	}
	model.Walk(tasks, func(t *model.Task, depth int) bool {
		b.WriteString(strings.Repeat("   ", depth))
		b.WriteString("• ")
		b.WriteString(telegramStatusEmoji(t.Status))
		b.WriteString(" ")
		b.WriteString(cleanTitle(t.Title))
		b.WriteString(tagSuffix(t.Tags))
		b.WriteString("\n")
		return true
	})
	return trimTelegramOutput(b.String())
}

func trimTelegramOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= telegramMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	limit := telegramMaxChars - len([]rune(suffix))
	return string(runes[:limit]) + suffix
}

func renderFilters(w io.Writer, f model.Filters) {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}
	show := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "statuses\t%s\n", show(strings.Join(statuses, ",")))
	fmt.Fprintf(tw, "tags\t%s\n", show(strings.Join(f.Tags, ",")))
	fmt.Fprintf(tw, "search\t%s\n", show(f.Search))
	_ = tw.Flush()
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"filemgr/internal/diff"
	"filemgr/internal/dispatch"
	"filemgr/internal/lines"

	"github.com/fatih/color"
)

// printer renders dispatcher results for the operator.
type printer struct {
	out    io.Writer
	errOut io.Writer
	differ *diff.Engine
	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
}

func newPrinter(out, errOut io.Writer, contextLines int) *printer {
	return &printer{
		out:    out,
		errOut: errOut,
		differ: diff.NewEngine(contextLines),
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
	}
}

func (p *printer) result(op dispatch.Op, res *dispatch.Result) {
	switch op := op.(type) {
	case dispatch.ShowLine:
		fmt.Fprintf(p.out, "Line %d of '%s':\n%s\n", op.Line, op.Name, res.Output)
	case dispatch.ListDir:
		fmt.Fprintln(p.out, "Files in current directory:")
		for _, name := range res.Entries {
			fmt.Fprintln(p.out, name)
		}
	case dispatch.ListBackups:
		p.backups(res)
	default:
		if res.Output != "" {
			fmt.Fprint(p.out, res.Output)
			if !strings.HasSuffix(res.Output, "\n") {
				fmt.Fprintln(p.out)
			}
		}
	}

	if res.Before != nil || res.After != nil {
		p.diff(res.Before, res.After)
	}
	if res.Message != "" {
		p.green.Fprintln(p.out, res.Message)
	}
	if res.LogErr != nil {
		p.yellow.Fprintf(p.errOut, "[Warning] changelog not updated: %v\n", res.LogErr)
	}
}

func (p *printer) backups(res *dispatch.Result) {
	if len(res.Backups) == 0 {
		fmt.Fprintln(p.out, "No backups held")
		return
	}
	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tSIZE\tCREATED")
	for _, b := range res.Backups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", b.ID, b.Source, b.Size, b.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func (p *printer) diff(before, after []byte) {
	result := p.differ.Diff(before, after)
	if result.Empty() {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(result.Format(), "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			p.cyan.Fprintln(p.out, line)
		case strings.HasPrefix(line, "+"):
			p.green.Fprintln(p.out, line)
		case strings.HasPrefix(line, "-"):
			p.red.Fprintln(p.out, line)
		default:
			fmt.Fprintln(p.out, line)
		}
	}
}

func (p *printer) error(err error) {
	p.red.Fprintf(p.errOut, "[Error] %v\n", err)

	var commitErr *lines.CommitError
	if errors.As(err, &commitErr) && commitErr.BackupID != "" {
		p.yellow.Fprintf(p.errOut, "Restore the original with: filemgr recover %s <new-file>\n", commitErr.BackupID)
	}
}

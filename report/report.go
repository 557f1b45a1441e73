// Package report merges per-daemon and per-item outcomes into summary tables.
//
// Reports are safe for concurrent Record calls. Rows keep the configured daemon order whatever
// order results arrive in.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

func render(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)

	_, err := fmt.Fprintln(w, t.String())
	return err
}

func gb(bytes int64) string {
	return fmt.Sprintf("%.2f", float64(bytes)/humanize.GiByte)
}

func status(err error) string {
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return "ok"
}

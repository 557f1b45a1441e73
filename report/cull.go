package report

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/l3uddz/delugetools/evict"
)

type CullRow struct {
	Server string
	evict.Result
	Err error
}

type CullReport struct {
	mu    sync.Mutex
	order []string
	rows  map[string]*CullRow
}

// NewCullReport creates a row for every server, in pool order.
func NewCullReport(servers []string) *CullReport {
	r := &CullReport{
		rows: make(map[string]*CullRow, len(servers)),
	}
	for _, s := range servers {
		r.row(s)
	}
	return r
}

// Record stores a daemon's outcome. A failed daemon keeps whatever partial result it produced.
func (r *CullReport) Record(server string, res evict.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.row(server)
	row.Result = res
	row.Err = err
}

func (r *CullReport) Rows() []CullRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]CullRow, 0, len(r.order))
	for _, s := range r.order {
		rows = append(rows, *r.rows[s])
	}
	return rows
}

func (r *CullReport) Err() error {
	var err error
	for _, row := range r.Rows() {
		if row.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", row.Server, row.Err))
		} else if row.Failed > 0 {
			err = multierr.Append(err, fmt.Errorf("%s: %d removals failed", row.Server, row.Failed))
		}
	}
	return err
}

func (r *CullReport) Render(w io.Writer) error {
	all := r.Rows()
	rows := make([][]string, 0, len(all))
	for _, row := range all {
		free := "n/a"
		if row.FreeBytes >= 0 {
			free = gb(row.FreeBytes)
		}

		st := status(row.Err)
		if row.Err == nil && row.NoOp {
			st = "target met"
		} else if row.Err == nil && row.Remaining > 0 {
			st = fmt.Sprintf("short by %s GB", gb(row.Remaining))
		}

		rows = append(rows, []string{
			row.Server,
			free,
			strconv.Itoa(row.Removed),
			gb(row.FreedBytes),
			strconv.Itoa(row.Failed),
			st,
		})
	}

	return render(w, []string{"SERVER", "FREE GB", "REMOVED", "GB FREED", "FAILED", "STATUS"}, rows)
}

func (r *CullReport) row(server string) *CullRow {
	row, ok := r.rows[server]
	if !ok {
		row = &CullRow{Server: server, Result: evict.Result{FreeBytes: -1}}
		r.rows[server] = row
		r.order = append(r.order, server)
	}
	return row
}

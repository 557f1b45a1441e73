package report

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"go.uber.org/multierr"
)

// Unassigned labels items that failed before a daemon was picked.
const Unassigned = "unassigned"

// AddItem is the outcome of adding one torrent file.
type AddItem struct {
	Path   string
	Name   string
	Server string
	// ID is empty when the daemon already had the torrent.
	ID    string
	Bytes int64
	Err   error
}

func (i AddItem) Duplicate() bool {
	return i.Err == nil && i.ID == ""
}

type AddRow struct {
	Server     string
	Added      int
	Duplicates int
	Failed     int
	Bytes      int64
	// Err is set when the daemon itself was unusable.
	Err error
}

type AddReport struct {
	mu    sync.Mutex
	order []string
	rows  map[string]*AddRow
	items []AddItem
}

// NewAddReport creates an empty row for every server, in pool order.
func NewAddReport(servers []string) *AddReport {
	r := &AddReport{
		rows: make(map[string]*AddRow, len(servers)+1),
	}
	for _, s := range servers {
		r.row(s)
	}
	return r
}

// MarkFailed flags a daemon that could not be used.
func (r *AddReport) MarkFailed(server string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(server).Err = err
}

func (r *AddReport) Record(item AddItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	server := item.Server
	if server == "" {
		server = Unassigned
	}

	row := r.row(server)
	switch {
	case item.Err != nil:
		row.Failed++
	case item.Duplicate():
		row.Duplicates++
	default:
		row.Added++
		row.Bytes += item.Bytes
	}

	r.items = append(r.items, item)
}

// Items returns every recorded item in record order.
func (r *AddReport) Items() []AddItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AddItem(nil), r.items...)
}

func (r *AddReport) Rows() []AddRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]AddRow, 0, len(r.order))
	for _, s := range r.order {
		rows = append(rows, *r.rows[s])
	}
	return rows
}

func (r *AddReport) Totals() AddRow {
	total := AddRow{Server: "TOTAL"}
	for _, row := range r.Rows() {
		total.Added += row.Added
		total.Duplicates += row.Duplicates
		total.Failed += row.Failed
		total.Bytes += row.Bytes
	}
	return total
}

// Err combines every daemon and item failure, nil when everything succeeded.
func (r *AddReport) Err() error {
	var err error
	for _, row := range r.Rows() {
		if row.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", row.Server, row.Err))
		}
	}
	for _, item := range r.Items() {
		if item.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", item.Path, item.Err))
		}
	}
	return err
}

func (r *AddReport) Render(w io.Writer) error {
	all := append(r.Rows(), r.Totals())
	rows := make([][]string, 0, len(all))
	for _, row := range all {
		rows = append(rows, []string{
			row.Server,
			strconv.Itoa(row.Added),
			strconv.Itoa(row.Duplicates),
			strconv.Itoa(row.Failed),
			gb(row.Bytes),
			status(row.Err),
		})
	}

	return render(w, []string{"SERVER", "ADDED", "DUPLICATES", "FAILED", "GB ADDED", "STATUS"}, rows)
}

func (r *AddReport) row(server string) *AddRow {
	row, ok := r.rows[server]
	if !ok {
		row = &AddRow{Server: server}
		r.rows[server] = row
		r.order = append(r.order, server)
	}
	return row
}

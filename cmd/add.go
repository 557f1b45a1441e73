package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/dispatch"
	"github.com/l3uddz/delugetools/logger"
	paths "github.com/l3uddz/delugetools/pathutils"
	"github.com/l3uddz/delugetools/pool"
	"github.com/l3uddz/delugetools/report"
	"github.com/l3uddz/delugetools/shard"
	"github.com/l3uddz/delugetools/torrentfile"
)

// adds are sent one at a time
const addWorkers = 1

var (
	flagAddServers          []string
	flagAddPaused           bool
	flagAddDownloadLocation string
)

var addCmd = &cobra.Command{
	Use:   "add PATH...",
	Short: "Spread torrent files across the daemon pool",
	Long: `This command can be used to add .torrent files (or folders of them) to a pool of daemons.
Each torrent is always sent to the same daemon for a given pool.`,

	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// init core
		initCore(true)

		// set log
		log := logger.GetLogger("add")

		// expand paths
		files, err := paths.TorrentFiles(log, args)
		if err != nil {
			log.WithError(err).Fatal("Failed finding torrent files")
		}
		log.Infof("Found %d torrent files", len(files))

		// add options
		opts := client.AddOptions{
			Paused:           config.Config.Add.Paused,
			DownloadLocation: config.Config.Add.DownloadLocation,
		}
		if cmd.Flags().Changed("paused") {
			opts.Paused = flagAddPaused
		}
		if cmd.Flags().Changed("download-location") {
			opts.DownloadLocation = flagAddDownloadLocation
		}

		// connect
		ctx := cmd.Context()
		p, err := connectPool(ctx, log, flagAddServers, config.Config, delugeFactory(config.Config))
		if err != nil {
			log.WithError(err).Fatal("Failed initializing daemon pool")
		}

		// add
		r, err := addTorrents(ctx, log, p, files, opts, flagDryRun)
		if err != nil {
			log.WithError(err).Fatal("Failed adding torrents")
		}

		p.Close()
		finish(r)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringArrayVar(&flagAddServers, "server", nil, "Daemon as user:pass@host[:port] (repeatable)")
	addCmd.Flags().BoolVar(&flagAddPaused, "paused", false, "Add torrents paused")
	addCmd.Flags().StringVar(&flagAddDownloadLocation, "download-location", "", "Daemon-side download location")
}

// addTorrents loads every file, assigns the batch by name hash and sends each file to its daemon.
// Nothing is sent in dry-run mode, only failures are recorded then.
func addTorrents(ctx context.Context, log *logrus.Entry, p *pool.Pool, files []string, opts client.AddOptions,
	dryRun bool) (*report.AddReport, error) {
	r := report.NewAddReport(serverNames(p))
	for _, m := range p.Members() {
		if !m.Ok() {
			r.MarkFailed(m.String(), m.Err)
		}
	}

	// load
	loaded := make([]*torrentfile.File, 0, len(files))
	for _, path := range files {
		f, err := torrentfile.Load(path)
		if err != nil {
			log.WithError(err).Errorf("Failed loading torrent: %s", path)
			r.Record(report.AddItem{Path: path, Err: err})
			continue
		}

		log.Debugf("Loaded %q: %d files, %s, announce %q", f.DisplayName(), f.Files,
			humanize.IBytes(uint64(f.Size)), f.Announce())
		loaded = append(loaded, f)
	}

	// assign
	keys := make([][]byte, 0, len(loaded))
	for _, f := range loaded {
		keys = append(keys, f.Name)
	}

	assigned, err := shard.Shard(keys, p.Size())
	if err != nil {
		return nil, err
	}

	// add
	d, err := dispatch.New[report.AddItem](ctx, "add", addWorkers, log)
	if err != nil {
		return nil, err
	}
	defer d.Release()

	for i, f := range loaded {
		f := f
		m := p.Member(assigned[i])
		d.Submit(f.Path, func(ctx context.Context) (report.AddItem, error) {
			return addTorrent(ctx, log, m, f, opts, dryRun), nil
		})
	}

	for _, o := range d.Wait() {
		item := o.Value
		if o.Err != nil {
			item = report.AddItem{Path: o.Key, Err: o.Err}
		}

		if dryRun && item.Err == nil {
			continue
		}
		r.Record(item)
	}

	return r, nil
}

func addTorrent(ctx context.Context, log *logrus.Entry, m *pool.Member, f *torrentfile.File, opts client.AddOptions,
	dryRun bool) report.AddItem {
	item := report.AddItem{
		Path:   f.Path,
		Name:   f.DisplayName(),
		Server: m.String(),
	}

	if !m.Ok() {
		item.Err = fmt.Errorf("%s: %w", m, pool.ErrNotConnected)
		log.Warnf("Skipping %q, assigned to unreachable daemon %s", item.Name, m)
		return item
	}

	if dryRun {
		log.Infof("Would add %q to %s (%s)", item.Name, m, humanize.IBytes(uint64(f.Size)))
		return item
	}

	id, err := m.Client.AddTorrent(ctx, f.FileName(), f.Data, opts)
	if err != nil {
		log.WithError(err).Errorf("Failed adding %q to %s", item.Name, m)
		item.Err = err
		return item
	} else if id == "" {
		log.Infof("Already on %s: %q", m, item.Name)
		return item
	}
	item.ID = id

	// prefer the size the daemon reports
	item.Bytes = f.Size
	if t, err := m.Client.GetTorrent(ctx, id); err != nil {
		log.WithError(err).Debugf("Failed retrieving added torrent %s, using declared size", id)
	} else if t.TotalBytes > 0 {
		item.Bytes = t.TotalBytes
	}

	log.Infof("Added %q to %s (%s)", item.Name, m, humanize.IBytes(uint64(item.Bytes)))
	return item
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/logger"
)

var (
	flagTrackerServer    string
	flagTrackerSrcSubstr string
	flagTrackerURL       string
)

var changeTrackerCmd = &cobra.Command{
	Use:   "change-tracker",
	Short: "Replace the tracker of matching torrents",
	Long:  `This command can be used to point every torrent whose first tracker contains a substring at a new tracker url.`,

	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		// init core
		initCore(true)

		// set log
		log := logger.GetLogger("tracker")

		var servers []string
		if flagTrackerServer != "" {
			servers = []string{flagTrackerServer}
		}

		endpoints, err := getEndpoints(servers, config.Config)
		if err != nil {
			log.WithError(err).Fatal("Failed parsing server")
		} else if len(endpoints) != 1 {
			log.Fatalf("change-tracker works on a single daemon, got %d", len(endpoints))
		}

		// connect
		ctx := cmd.Context()
		p, err := connectPool(ctx, log, servers, config.Config, delugeFactory(config.Config))
		if err != nil {
			log.WithError(err).Fatal("Failed initializing daemon")
		}

		m := p.Member(0)
		if !m.Ok() {
			log.WithError(m.Err).Fatalf("Failed connecting to %s", m)
		}

		// change trackers
		changed, err := changeTrackers(ctx, log, os.Stdout, m.Client, flagTrackerSrcSubstr, flagTrackerURL, flagDryRun)
		p.Close()
		if err != nil {
			log.WithError(err).Fatal("Failed changing trackers")
		}

		log.Infof("Changed trackers of %d torrents", changed)
	},
}

func init() {
	rootCmd.AddCommand(changeTrackerCmd)

	changeTrackerCmd.Flags().StringVar(&flagTrackerServer, "server", "", "Daemon as user:pass@host[:port]")
	changeTrackerCmd.Flags().StringVarP(&flagTrackerSrcSubstr, "src-substr", "s", "",
		"Substring of the current tracker host to replace (daemons report the announce host, not the full url)")
	changeTrackerCmd.Flags().StringVarP(&flagTrackerURL, "tracker", "t", "", "URL of the new tracker")

	_ = changeTrackerCmd.MarkFlagRequired("src-substr")
	_ = changeTrackerCmd.MarkFlagRequired("tracker")
}

// changeTrackers replaces the tracker list of every torrent whose first tracker contains src.
// Every change is printed to w before it is applied.
func changeTrackers(ctx context.Context, log *logrus.Entry, w io.Writer, c client.Interface, src string, url string,
	dryRun bool) (int, error) {
	torrents, err := c.GetTorrents(ctx)
	if err != nil {
		return 0, err
	}
	log.Infof("Retrieved %d torrents", len(torrents))

	sorted := make([]config.Torrent, 0, len(torrents))
	for _, t := range torrents {
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Hash < sorted[j].Hash
	})

	changed := 0
	for _, t := range sorted {
		tracker, ok := t.FirstTracker()
		if !ok {
			log.Tracef("Skipping torrent without trackers: %q", t.Name)
			continue
		}
		if !strings.Contains(tracker.URL, src) {
			continue
		}

		fmt.Fprintf(w, "Updating '%s' on '%s' (%s)\n", tracker.URL, t.Name, t.Hash)
		if dryRun {
			changed++
			continue
		}

		if err := c.SetTorrentTracker(ctx, t.Hash, url); err != nil {
			log.WithError(err).Errorf("Failed updating tracker of %q", t.Name)
			continue
		}
		changed++
	}

	return changed, nil
}

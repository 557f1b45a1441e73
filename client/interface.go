package client

import (
	"context"

	"github.com/l3uddz/delugetools/config"
)

type AddOptions struct {
	Paused           bool
	DownloadLocation string
}

// Interface is a live session with one daemon.
type Interface interface {
	// general
	Type() string
	Endpoint() Endpoint
	Connect(ctx context.Context) error
	Close() error

	// torrents

	// AddTorrent returns the new torrent id, or an empty id when the daemon already has the torrent.
	AddTorrent(ctx context.Context, fileName string, data []byte, opts AddOptions) (string, error)
	GetTorrent(ctx context.Context, hash string) (*config.Torrent, error)
	GetTorrents(ctx context.Context) (map[string]config.Torrent, error)
	RemoveTorrent(ctx context.Context, hash string, deleteData bool) (bool, error)
	// SetTorrentTracker replaces the tracker list of a torrent with url at tier 0.
	SetTorrentTracker(ctx context.Context, hash string, url string) error

	// disk
	GetFreeSpace(ctx context.Context) (int64, error)
}

// Package clienttest provides an in-memory daemon for tests.
package clienttest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/torrentfile"
)

// Fake implements client.Interface over an in-memory torrent inventory. It is safe for concurrent use.
type Fake struct {
	EP client.Endpoint

	// errors returned by the matching calls when set
	ConnectErr    error
	FreeSpaceErr  error
	TorrentsErr   error
	AddErr        error
	GetTorrentErr error
	RemoveErr     map[string]error
	SetTrackerErr error

	mu        sync.Mutex
	connected bool
	free      int64
	torrents  map[string]config.Torrent
	removed   []string
	added     []string
	trackers  map[string]string
}

var _ client.Interface = (*Fake)(nil)

func New(host string, free int64, torrents ...config.Torrent) *Fake {
	f := &Fake{
		EP:        client.Endpoint{Host: host, Port: client.DefaultPort, Login: "user", Password: "pass"},
		free:      free,
		torrents:  make(map[string]config.Torrent, len(torrents)),
		RemoveErr: make(map[string]error),
		trackers:  make(map[string]string),
	}

	for _, t := range torrents {
		f.torrents[t.Hash] = t
	}

	return f
}

func (f *Fake) Type() string {
	return "Fake"
}

func (f *Fake) Endpoint() client.Endpoint {
	return f.EP
}

func (f *Fake) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.ConnectErr != nil {
		return f.ConnectErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// AddTorrent stores the torrent under the sha1 of its contents, returning an empty id for repeats.
// The stored size is the payload size declared by the metadata, as a daemon would report it.
func (f *Fake) AddTorrent(ctx context.Context, fileName string, data []byte, _ client.AddOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.AddErr != nil {
		return "", f.AddErr
	}

	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.torrents[hash]; exists {
		return "", nil
	}

	t := config.Torrent{Hash: hash, Name: fileName}
	if meta, err := torrentfile.Parse(fileName, data); err == nil {
		t.Name = meta.DisplayName()
		t.TotalBytes = meta.Size
	}

	f.torrents[hash] = t
	f.added = append(f.added, hash)
	return hash, nil
}

func (f *Fake) GetTorrent(ctx context.Context, hash string) (*config.Torrent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.GetTorrentErr != nil {
		return nil, f.GetTorrentErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.torrents[hash]
	if !ok {
		return nil, fmt.Errorf("torrent not found: %v", hash)
	}
	return &t, nil
}

func (f *Fake) GetTorrents(ctx context.Context) (map[string]config.Torrent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.TorrentsErr != nil {
		return nil, f.TorrentsErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	torrents := make(map[string]config.Torrent, len(f.torrents))
	for h, t := range f.torrents {
		torrents[h] = t
	}
	return torrents, nil
}

// RemoveTorrent drops the torrent and, when deleteData is set, credits its size to free space.
func (f *Fake) RemoveTorrent(ctx context.Context, hash string, deleteData bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.RemoveErr[hash]; ok && err != nil {
		return false, err
	}

	t, ok := f.torrents[hash]
	if !ok {
		return false, nil
	}

	delete(f.torrents, hash)
	f.removed = append(f.removed, hash)
	if deleteData {
		f.free += t.TotalBytes
	}
	return true, nil
}

func (f *Fake) SetTorrentTracker(ctx context.Context, hash string, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.SetTrackerErr != nil {
		return f.SetTrackerErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.torrents[hash]
	if !ok {
		return fmt.Errorf("torrent not found: %v", hash)
	}

	t.Trackers = []config.Tracker{{URL: url, Tier: 0}}
	f.torrents[hash] = t
	f.trackers[hash] = url
	return nil
}

func (f *Fake) GetFreeSpace(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.FreeSpaceErr != nil {
		return 0, f.FreeSpaceErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.free, nil
}

// Removed returns removed hashes in call order.
func (f *Fake) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

// Added returns added hashes in call order.
func (f *Fake) Added() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...)
}

// TrackerUpdates returns the tracker url set per hash.
func (f *Fake) TrackerUpdates() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	updates := make(map[string]string, len(f.trackers))
	for h, u := range f.trackers {
		updates[h] = u
	}
	return updates
}

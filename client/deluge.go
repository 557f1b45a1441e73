package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	delugeclient "github.com/gdm85/go-libdeluge"
	"github.com/sirupsen/logrus"

	"github.com/l3uddz/delugetools/config"
)

// rpcClient is the part of the deluge client shared by v1 and v2 daemons.
type rpcClient interface {
	Connect() error
	Close() error
	DaemonVersion() (string, error)
	AddTorrentFile(fileName, fileContentBase64 string, options *delugeclient.Options) (string, error)
	TorrentStatus(id string) (*delugeclient.TorrentStatus, error)
	TorrentsStatus(state delugeclient.TorrentState, ids []string) (map[string]*delugeclient.TorrentStatus, error)
	RemoveTorrent(id string, rmFiles bool) (bool, error)
	GetFreeSpace(path string) (int64, error)
	SetTorrentTracker(id, tracker string) error
}

/* Struct */

type Deluge struct {
	endpoint Endpoint
	settings Settings

	// internal
	log        *logrus.Entry
	clientType string
	client     rpcClient
	now        func() time.Time
	dialers    []dialer
}

type dialer func(settings delugeclient.Settings) rpcClient

/* Initializer */

func NewDeluge(ep Endpoint, settings Settings, log *logrus.Entry) *Deluge {
	return &Deluge{
		endpoint:   ep,
		settings:   settings,
		log:        log.WithField("server", ep.String()),
		clientType: "Deluge",
		now:        time.Now,
		dialers: []dialer{
			func(s delugeclient.Settings) rpcClient { return delugeclient.NewV2(s) },
			func(s delugeclient.Settings) rpcClient { return delugeclient.NewV1(s) },
		},
	}
}

/* Interface */

func (c *Deluge) Type() string {
	return c.clientType
}

func (c *Deluge) Endpoint() Endpoint {
	return c.endpoint
}

// Connect logs in as a v2 daemon first and falls back to the v1 protocol.
// The whole login is bounded by ctx and the configured timeout.
func (c *Deluge) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	settings := delugeclient.Settings{
		Hostname:         c.endpoint.Host,
		Port:             c.endpoint.Port,
		Login:            c.endpoint.Login,
		Password:         c.endpoint.Password,
		ReadWriteTimeout: c.settings.Timeout,
	}

	c.log.Tracef("Connecting to %s", c.endpoint)

	type result struct {
		client rpcClient
		err    error
	}

	done := make(chan result, 1)
	go func() {
		cl, err := c.login(settings)
		done <- result{client: cl, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("login: %w", r.err)
		}
		c.client = r.client
	case <-ctx.Done():
		// the dial cannot be interrupted, close it once it finishes
		go func() {
			if r := <-done; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return fmt.Errorf("login: %s: %w", c.endpoint, ctx.Err())
	}

	// retrieve daemon version
	daemonVersion, err := c.client.DaemonVersion()
	if err != nil {
		_ = c.client.Close()
		c.client = nil
		return fmt.Errorf("get daemon version: %w", err)
	}
	c.log.Debugf("Daemon Version: %v", daemonVersion)

	return nil
}

func (c *Deluge) Close() error {
	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Deluge) AddTorrent(ctx context.Context, fileName string, data []byte, opts AddOptions) (string, error) {
	if err := c.ready(ctx); err != nil {
		return "", err
	}

	options := &delugeclient.Options{}
	if opts.Paused {
		paused := true
		options.AddPaused = &paused
	}
	if opts.DownloadLocation != "" {
		location := opts.DownloadLocation
		options.DownloadLocation = &location
	}

	id, err := c.client.AddTorrentFile(fileName, base64.StdEncoding.EncodeToString(data), options)
	if err != nil {
		if isAlreadyInSession(err) {
			c.log.WithError(err).Debugf("Torrent already in session: %q", fileName)
			return "", nil
		}
		return "", fmt.Errorf("add torrent: %v: %w", fileName, err)
	}

	return id, nil
}

func (c *Deluge) GetTorrent(ctx context.Context, hash string) (*config.Torrent, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	s, err := c.client.TorrentStatus(hash)
	if err != nil {
		return nil, fmt.Errorf("get torrent: %v: %w", hash, err)
	}

	t := c.toTorrent(hash, s)
	return &t, nil
}

func (c *Deluge) GetTorrents(ctx context.Context) (map[string]config.Torrent, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	// retrieve torrents from client
	c.log.Tracef("Retrieving torrents...")
	t, err := c.client.TorrentsStatus(delugeclient.StateUnspecified, nil)
	if err != nil {
		return nil, fmt.Errorf("get torrents: %w", err)
	}
	c.log.Tracef("Retrieved %d torrents", len(t))

	// build torrent list
	torrents := make(map[string]config.Torrent, len(t))
	for h, s := range t {
		if s == nil {
			continue
		}
		torrents[h] = c.toTorrent(h, s)
	}

	return torrents, nil
}

func (c *Deluge) RemoveTorrent(ctx context.Context, hash string, deleteData bool) (bool, error) {
	if err := c.ready(ctx); err != nil {
		return false, err
	}

	if ok, err := c.client.RemoveTorrent(hash, deleteData); err != nil {
		return false, fmt.Errorf("remove torrent: %v: %w", hash, err)
	} else if !ok {
		return false, nil
	}

	return true, nil
}

func (c *Deluge) SetTorrentTracker(ctx context.Context, hash string, url string) error {
	if err := c.ready(ctx); err != nil {
		return err
	}

	if err := c.client.SetTorrentTracker(hash, url); err != nil {
		return fmt.Errorf("set torrent tracker: %v: %w", hash, err)
	}

	return nil
}

func (c *Deluge) GetFreeSpace(ctx context.Context) (int64, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}

	// empty path is the daemon's download location
	space, err := c.client.GetFreeSpace("")
	if err != nil {
		return 0, fmt.Errorf("get free disk space: %w", err)
	}

	return space, nil
}

/* Private */

func (c *Deluge) login(settings delugeclient.Settings) (rpcClient, error) {
	var err error
	for i, dial := range c.dialers {
		cl := dial(settings)
		if err = cl.Connect(); err == nil {
			return cl, nil
		}

		if i < len(c.dialers)-1 {
			c.log.WithError(err).Debug("Failed connecting as v2 daemon, retrying as v1")
		}
	}

	return nil, err
}

func (c *Deluge) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.client == nil {
		return fmt.Errorf("%s: not connected", c.endpoint)
	}
	return nil
}

func (c *Deluge) toTorrent(hash string, s *delugeclient.TorrentStatus) config.Torrent {
	timeAdded := float64(s.TimeAdded)
	addedSeconds := int64(c.now().Sub(time.Unix(int64(timeAdded), 0)).Seconds())
	if addedSeconds < 0 {
		addedSeconds = 0
	}

	// the status call only reports the announce host of the active tracker
	var trackers []config.Tracker
	if s.TrackerHost != "" {
		trackers = []config.Tracker{{URL: s.TrackerHost, Tier: 0}}
	}

	return config.Torrent{
		// torrent
		Hash:           hash,
		Name:           s.Name,
		TotalBytes:     s.TotalSize,
		State:          s.State,
		Seeding:        s.IsSeed,
		Private:        s.Private,
		Ratio:          s.Ratio,
		TimeAdded:      timeAdded,
		ActiveTime:     s.ActiveTime,
		AddedSeconds:   addedSeconds,
		AddedHours:     float32(addedSeconds) / 60 / 60,
		AddedDays:      float32(addedSeconds) / 60 / 60 / 24,
		SeedingSeconds: s.SeedingTime,
		SeedingHours:   float32(s.SeedingTime) / 60 / 60,
		SeedingDays:    float32(s.SeedingTime) / 60 / 60 / 24,
		// tracker
		TrackerName:   parseTrackerDomain(c.log, s.TrackerHost),
		TrackerStatus: s.TrackerStatus,
		Trackers:      trackers,
	}
}

func isAlreadyInSession(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already in session")
}

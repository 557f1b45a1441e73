package config

import (
	"strings"
)

// UnregisteredMarker is the tracker status text a tracker reports for torrents it no longer knows.
const UnregisteredMarker = "Unregistered torrent"

type Tracker struct {
	URL  string
	Tier int
}

// Torrent is a daemon's view of one torrent. It is fetched per run and never cached.
type Torrent struct {
	// torrent
	Hash       string
	Name       string
	TotalBytes int64
	State      string
	Seeding    bool
	Private    bool
	Ratio      float32
	// TimeAdded is unix seconds, reported by the daemon with float32 precision.
	TimeAdded float64
	// ActiveTime is the seconds the torrent has been active, exact to the second.
	ActiveTime     int64
	AddedSeconds   int64
	AddedHours     float32
	AddedDays      float32
	SeedingSeconds int64
	SeedingHours   float32
	SeedingDays    float32

	// tracker
	TrackerName   string
	TrackerStatus string
	Trackers      []Tracker
}

func (t *Torrent) IsUnregistered() bool {
	return strings.Contains(t.TrackerStatus, UnregisteredMarker)
}

// FirstTracker returns the first tracker in tier order as reported by the daemon.
func (t *Torrent) FirstTracker() (Tracker, bool) {
	if len(t.Trackers) == 0 {
		return Tracker{}, false
	}
	return t.Trackers[0], true
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_MissingFileUsesDefaults(t *testing.T) {
	require.NoError(t, Init(filepath.Join(t.TempDir(), "missing.yaml")))

	assert.Empty(t, Config.Servers)
	assert.Equal(t, 30*time.Second, Config.RPCTimeout)
	assert.EqualValues(t, 3, Config.ConnectRetries)
	assert.Equal(t, time.Second, Config.ConnectRetryDelay)
	assert.Equal(t, 10, Config.Cull.Workers)
	assert.Zero(t, Config.Cull.RemoveRate)
	assert.Equal(t, Config, Default())
}

func TestInit_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
servers:
  - user:pass@one.example
  - user:pass@two.example:1234
rpc_timeout: 5s
add:
  paused: true
  download_location: /data/incoming
cull:
  workers: 4
  filter:
    ignore:
      - 'Ratio < 1.0'
`), 0644))

	t.Setenv("DELUGETOOLS_CULL__REMOVE_RATE", "2")

	require.NoError(t, Init(path))

	assert.Equal(t, []string{"user:pass@one.example", "user:pass@two.example:1234"}, Config.Servers)
	assert.Equal(t, 5*time.Second, Config.RPCTimeout)
	assert.True(t, Config.Add.Paused)
	assert.Equal(t, "/data/incoming", Config.Add.DownloadLocation)
	assert.Equal(t, 4, Config.Cull.Workers)
	assert.Equal(t, 2, Config.Cull.RemoveRate)
	assert.Equal(t, []string{"Ratio < 1.0"}, Config.Cull.Filter.Ignore)
}

func TestInit_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers: [unterminated"), 0644))

	require.Error(t, Init(path))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "cull.remove_rate", envKey("DELUGETOOLS_CULL__REMOVE_RATE"))
	assert.Equal(t, "rpc_timeout", envKey("DELUGETOOLS_RPC_TIMEOUT"))
}

func TestTorrent_IsUnregistered(t *testing.T) {
	cases := map[string]bool{
		"Unregistered torrent":                 true,
		"Error: Unregistered torrent (code 2)": true,
		"unregistered torrent":                 false,
		"Announce OK":                          false,
		"":                                     false,
		"torrent is not authorized for use on this one": false,
	}

	for status, want := range cases {
		tr := Torrent{TrackerStatus: status}
		assert.Equal(t, want, tr.IsUnregistered(), status)
	}
}

func TestTorrent_FirstTracker(t *testing.T) {
	tr := Torrent{}
	_, ok := tr.FirstTracker()
	assert.False(t, ok)

	tr.Trackers = []Tracker{{URL: "http://a/announce"}, {URL: "http://b/announce", Tier: 1}}
	first, ok := tr.FirstTracker()
	require.True(t, ok)
	assert.Equal(t, "http://a/announce", first.URL)
}

func TestValidateStruct(t *testing.T) {
	type settings struct {
		Host  string  `validate:"required"`
		Port  uint    `validate:"required"`
		Login *string `validate:"required"`
		Note  string
	}

	login := "user"
	assert.Empty(t, ValidateStruct(settings{Host: "h", Port: 1, Login: &login}))
	assert.Empty(t, ValidateStruct(&settings{Host: "h", Port: 1, Login: &login}))
	assert.Len(t, ValidateStruct(settings{}), 3)
	assert.Len(t, ValidateStruct(42), 1)
}

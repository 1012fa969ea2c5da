package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	opts, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Defaults(), opts)
}

func TestLoadOverlaysTomlOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arrayd.toml")
	toml := `
instance_id = 3
listen_addr = "127.0.0.1:6000"

[[peers]]
instance_id = 4
addr = "127.0.0.1:6001"
`
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int32(3), opts.InstanceID)
	require.Equal(t, "127.0.0.1:6000", opts.ListenAddr)
	require.Equal(t, []Peer{{InstanceID: 4, Addr: "127.0.0.1:6001"}}, opts.Peers)

	// Unset fields keep their defaults.
	require.Equal(t, Defaults().TileSize, opts.TileSize)
	require.Equal(t, Defaults().ClusterListenAddr, opts.ClusterListenAddr)
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

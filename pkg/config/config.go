// Package config loads the engine's environment knobs from a TOML file
// via github.com/BurntSushi/toml, the same configuration library the
// reference corpus uses for its own instance configuration files.
package config

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/arraydb/arraydb/pkg/dberr"
)

// Options collects every configurable knob named in spec.md §6
// "Environment".
type Options struct {
	// Chunk cache.
	MemThresholdBytes int64 `toml:"mem_threshold_bytes"`

	// Chunking.
	TileSize       int64 `toml:"tile_size"`
	TilesPerChunk  int64 `toml:"tiles_per_chunk"`
	RLEEnabled     bool  `toml:"rle_enabled"`
	SparseInitSize int   `toml:"sparse_init_size"`
	// DensePromotionThreshold is the fraction (0,1] of non-empty cells
	// above which a sparse chunk promotes to dense.
	DensePromotionThreshold float64 `toml:"dense_promotion_threshold"`
	// StringSizeEstimate is the assumed average byte length used to
	// size a variable-width attribute's initial buffer.
	StringSizeEstimate int `toml:"string_size_estimate"`

	// Cluster.
	Redundancy           int   `toml:"redundancy"`
	ReplicationQueueSize int32 `toml:"replication_queue_size"`

	// Monitoring.
	MonitorEnabled  bool          `toml:"monitor_enabled"`
	MonitorInterval time.Duration `toml:"monitor_interval"`

	// Admission control.
	RequestsCap int `toml:"requests_cap"`

	// Scheduling.
	WorkerPoolSize int `toml:"worker_pool_size"`

	// Logging.
	LogPath       string `toml:"log_path"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
	LogMaxAgeDays int    `toml:"log_max_age_days"`

	// Networking. ListenAddr serves authenticated client connections;
	// ClusterListenAddr serves the inter-instance prepare/execute/commit
	// protocol and is expected to sit on a trusted network segment.
	ListenAddr        string `toml:"listen_addr"`
	ClusterListenAddr string `toml:"cluster_listen_addr"`

	// Cluster membership.
	InstanceID int32  `toml:"instance_id"`
	Peers      []Peer `toml:"peers"`
}

// Peer names one other cluster member's dialable address.
type Peer struct {
	InstanceID int32  `toml:"instance_id"`
	Addr       string `toml:"addr"`
}

// Defaults returns an Options populated with the engine's built-in
// defaults, used when no config file is supplied and as the base a
// loaded file's values override.
func Defaults() Options {
	return Options{
		MemThresholdBytes:       512 * 1024 * 1024,
		TileSize:                1024,
		TilesPerChunk:           16,
		RLEEnabled:              true,
		SparseInitSize:          64,
		DensePromotionThreshold: 0.5,
		StringSizeEstimate:      32,
		Redundancy:              1,
		ReplicationQueueSize:    4096,
		MonitorEnabled:          true,
		MonitorInterval:         10 * time.Second,
		RequestsCap:             1024,
		WorkerPoolSize:          64,
		LogPath:                 "arrayd.log",
		LogMaxSizeMB:            100,
		LogMaxBackups:           5,
		LogMaxAgeDays:           30,
		ListenAddr:              "0.0.0.0:50051",
		ClusterListenAddr:       "0.0.0.0:50052",
	}
}

// Load reads path as TOML, overlaying it onto Defaults().
func Load(path string) (Options, error) {
	opts := Defaults()
	if path == "" {
		return opts, nil
	}
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return Options{}, dberr.Newf(dberr.Internal, "config", "load %s: %v", path, err)
	}
	return opts, nil
}

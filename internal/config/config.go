/*
 * xailyser - network capture & deep packet inspection
 * Copyright (c) 2020-2024 the xailyser authors
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package config loads the server's options from CLI flags overlaid on a
// TOML file (spec.md §6). The richer client-side config *editing*
// experience is the excluded external collaborator; this package only
// consumes the keys the server itself needs.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Compression modes negotiated at handshake time.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZlib Compression = "zlib"
)

// Config mirrors spec.md §9's "configuration as enumerated options".
type Config struct {
	Interface            string
	Port                 int
	PasswordHash         string // lowercase hex SHA-256, never the raw password
	Promiscuous          bool
	Workers              int
	StatsIntervalMS      int
	HeartbeatIntervalMS  int
	SubscriberQueueDepth int
	Compression          Compression
	BPFFilter            string
	SnapLen              int32
	ReplayFile           string
	Debug                bool
	ExportMetrics        bool
	MetricsAddr          string
}

// Default returns the spec's documented defaults.
func Default() Config {
	return Config{
		Port:                 4242,
		Workers:              1,
		StatsIntervalMS:      1000,
		HeartbeatIntervalMS:  5000,
		SubscriberQueueDepth: 4096,
		Compression:          CompressionNone,
		SnapLen:              262144,
		MetricsAddr:          ":9090",
	}
}

// Load builds a Config from a TOML file (optional) overlaid with explicit
// CLI values. v is expected to already have the config file read into it
// (see cmd/server, which owns the cobra/viper wiring); Load only maps keys
// to the typed Config and validates them.
func Load(v *viper.Viper, rawPassword string) (Config, error) {
	cfg := Default()

	cfg.Interface = v.GetString("interface")
	if p := v.GetInt("port"); p != 0 {
		cfg.Port = p
	}

	if w := v.GetInt("workers"); w != 0 {
		cfg.Workers = w
	}

	if si := v.GetInt("stats_interval_ms"); si != 0 {
		cfg.StatsIntervalMS = si
	}

	if hi := v.GetInt("heartbeat_interval_ms"); hi != 0 {
		cfg.HeartbeatIntervalMS = hi
	}

	if qd := v.GetInt("subscriber_queue_depth"); qd != 0 {
		cfg.SubscriberQueueDepth = qd
	}

	cfg.Promiscuous = v.GetBool("promiscuous")
	cfg.Debug = v.GetBool("debug")
	cfg.ExportMetrics = v.GetBool("export_metrics")
	cfg.BPFFilter = v.GetString("bpf_filter")
	cfg.ReplayFile = v.GetString("replay_file")

	if c := v.GetString("compression"); c != "" {
		cfg.Compression = Compression(c)
	}

	switch {
	case rawPassword != "":
		sum := sha256.Sum256([]byte(rawPassword))
		cfg.PasswordHash = hex.EncodeToString(sum[:])
	case v.GetString("password") != "":
		sum := sha256.Sum256([]byte(v.GetString("password")))
		cfg.PasswordHash = hex.EncodeToString(sum[:])
	default:
		cfg.PasswordHash = strings.ToLower(v.GetString("password_hash"))
	}

	return cfg, cfg.Validate()
}

// Validate enforces the enumerated-options constraints from spec.md §9.
// Any violation is a ConfigError, surfaced at startup only (exit code 2).
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Wrapf(ErrConfig, "port %d out of range 1..65535", c.Port)
	}

	if c.Workers < 1 {
		return errors.Wrapf(ErrConfig, "workers must be >= 1, got %d", c.Workers)
	}

	if c.StatsIntervalMS < 100 {
		return errors.Wrapf(ErrConfig, "stats_interval_ms must be >= 100, got %d", c.StatsIntervalMS)
	}

	if c.HeartbeatIntervalMS < 1000 {
		return errors.Wrapf(ErrConfig, "heartbeat_interval_ms must be >= 1000, got %d", c.HeartbeatIntervalMS)
	}

	if c.SubscriberQueueDepth < 64 {
		return errors.Wrapf(ErrConfig, "subscriber_queue_depth must be >= 64, got %d", c.SubscriberQueueDepth)
	}

	if c.Compression != CompressionNone && c.Compression != CompressionZlib {
		return errors.Wrapf(ErrConfig, "compression must be none or zlib, got %q", c.Compression)
	}

	if c.PasswordHash == "" {
		return errors.Wrap(ErrConfig, "password or password_hash is required")
	}

	if len(c.PasswordHash) != 64 {
		return errors.Wrap(ErrConfig, "password_hash must be 64 hex characters (SHA-256)")
	}

	if c.Interface == "" && c.ReplayFile == "" {
		return errors.Wrap(ErrConfig, "one of interface or replay_file is required")
	}

	return nil
}

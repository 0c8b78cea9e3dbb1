// Package config loads the process-wide configuration: a TOML file with
// environment variable overrides, read once at startup.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/feynman-go/proctor/chat"
	"github.com/pkg/errors"
)

// Environment overrides, matching the names the deployment already uses.
const (
	EnvToken       = "BOT_TOKEN"
	EnvAdminChat   = "SOURCE_GROUP_ID"
	EnvWorkerChat  = "TARGET_GROUP_ID"
	EnvWorkerTopic = "TARGET_TOPIC_ID"
	EnvOpsAddr     = "OPS_ADDR"
)

type Config struct {
	// Token is the transport access credential.
	Token string `toml:"token"`
	// AdminChat is the administrative channel id; WorkerChat the worker
	// channel id; WorkerTopic an optional sub-thread within it (0 = none).
	AdminChat   int64 `toml:"admin_chat"`
	WorkerChat  int64 `toml:"worker_chat"`
	WorkerTopic int64 `toml:"worker_topic"`

	// EvidenceVariant selects the stored media resolution for evidence:
	// "largest", "second-largest" or "smallest".
	EvidenceVariant string `toml:"evidence_variant"`

	// SendRate caps outbound transport calls per second.
	SendRate float64 `toml:"send_rate"`
	// Workers is the number of concurrent event handlers.
	Workers int `toml:"workers"`

	// OpsAddr serves metrics and health when non-empty, e.g. ":9100".
	OpsAddr string `toml:"ops_addr"`
	// LogPath appends logs to a file instead of stderr when non-empty.
	LogPath string `toml:"log_path"`
}

func Default() Config {
	return Config{
		EvidenceVariant: string(chat.VariantSecondLargest),
		SendRate:        25,
		Workers:         4,
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, errors.WithMessagef(err, "decode config %s", path)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(EnvOpsAddr); v != "" {
		cfg.OpsAddr = v
	}
	for _, bind := range []struct {
		env string
		dst *int64
	}{
		{EnvAdminChat, &cfg.AdminChat},
		{EnvWorkerChat, &cfg.WorkerChat},
		{EnvWorkerTopic, &cfg.WorkerTopic},
	} {
		v := os.Getenv(bind.env)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.WithMessagef(err, "parse %s", bind.env)
		}
		*bind.dst = n
	}
	return nil
}

func (cfg Config) Validate() error {
	if cfg.Token == "" {
		return errors.New("token is required")
	}
	if cfg.AdminChat == 0 || cfg.WorkerChat == 0 {
		return errors.New("admin and worker chat ids are required")
	}
	if cfg.AdminChat == cfg.WorkerChat {
		return errors.New("admin and worker chats must differ")
	}
	if !chat.VariantPolicy(cfg.EvidenceVariant).Valid() {
		return errors.Errorf("unknown evidence variant %q", cfg.EvidenceVariant)
	}
	if cfg.SendRate <= 0 {
		return errors.New("send rate must be positive")
	}
	return nil
}

func (cfg Config) Variant() chat.VariantPolicy {
	return chat.VariantPolicy(cfg.EvidenceVariant)
}

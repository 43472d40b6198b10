package config

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	sharederrors "github.com/reshetovitsme/telegram-news-sync/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Storage backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

type Config struct {
	TelegramBotToken     string `koanf:"telegram_bot_token"`
	TelegramAPIURL       string `koanf:"telegram_api_url"`
	TelegramChannelID    string `koanf:"telegram_channel_id"`
	StoragePath          string `koanf:"storage_path"`
	StorageBackend       string `koanf:"storage_backend"`
	ImagesDir            string `koanf:"images_dir"`
	UpdatesLimit         int    `koanf:"updates_limit"`
	DownloadWorkers      int    `koanf:"download_workers"`
	HTTPTimeout          int    `koanf:"http_timeout"`
	EmptyTextPlaceholder string `koanf:"empty_text_placeholder"`
	HTTPPort             string `koanf:"http_port"`
	SyncInterval         int    `koanf:"sync_interval"`
	ContactChatID        string `koanf:"contact_chat_id"`
	SiteName             string `koanf:"site_name"`
	AppEnv               AppEnv `koanf:"app_env"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// Dir is searched for config.{yaml,yml,json,toml} and .env. Empty means the working directory.
	Dir string
}

// Load reads configuration from an optional config file, an optional .env
// file and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadWithOptions(Options{})
}

func LoadWithOptions(opts Options) (*Config, error) {
	k := koanf.New(".")

	// .env only fills variables that are not already set
	if err := godotenv.Load(filepath.Join(opts.Dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code(sharederrors.CodeConfig).With("env_file", ".env").Wrap(err)
	}

	configFiles := lo.Map([]string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}, func(name string, _ int) string {
		return filepath.Join(opts.Dir, name)
	})

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Code(sharederrors.CodeConfig).Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.Code(sharederrors.CodeConfig).With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values:
	// TELEGRAM_BOT_TOKEN -> telegram_bot_token
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.Code(sharederrors.CodeConfig).With("context", "loading environment variables").Wrap(err)
	}

	defaults := map[string]any{
		"telegram_api_url":       "https://api.telegram.org",
		"storage_path":           "./data",
		"storage_backend":        BackendFile,
		"images_dir":             "data/images",
		"updates_limit":          100,
		"download_workers":       4,
		"http_timeout":           30,
		"empty_text_placeholder": "Без текста",
		"http_port":              "8080",
		"sync_interval":          0,
		"site_name":              "HYPROTEC",
		"app_env":                string(AppEnvProduction),
	}
	for key, value := range defaults {
		if !k.Exists(key) || k.String(key) == "" {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(sharederrors.CodeConfig).With("context", "unmarshaling config").Wrap(err)
	}

	if appEnv, err := ParseAppEnv(strings.TrimSpace(k.String("app_env"))); err == nil {
		cfg.AppEnv = appEnv
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	cfg.TelegramAPIURL = strings.TrimRight(cfg.TelegramAPIURL, "/")
	cfg.TelegramChannelID = strings.TrimSpace(cfg.TelegramChannelID)
	cfg.ImagesDir = filepath.ToSlash(filepath.Clean(cfg.ImagesDir))
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)

	if cfg.TelegramBotToken == "" {
		return nil, oops.Code(sharederrors.CodeConfig).Wrap(sharederrors.ErrMissingBotToken)
	}

	// image paths are persisted as-is and served relative to the site root
	if path.IsAbs(cfg.ImagesDir) || filepath.IsAbs(cfg.ImagesDir) || cfg.ImagesDir == ".." || strings.HasPrefix(cfg.ImagesDir, "../") {
		return nil, oops.Code(sharederrors.CodeConfig).
			With("images_dir", cfg.ImagesDir).
			Wrap(sharederrors.ErrInvalidImagesDir)
	}

	if cfg.StorageBackend != BackendFile && cfg.StorageBackend != BackendBolt {
		return nil, oops.Code(sharederrors.CodeConfig).
			With("storage_backend", cfg.StorageBackend).
			Wrap(sharederrors.ErrUnknownBackend)
	}

	return &cfg, nil
}

// ValidateNewsSync checks the settings only the sync job needs.
func (c *Config) ValidateNewsSync() error {
	if c.TelegramChannelID == "" {
		return oops.Code(sharederrors.CodeConfig).Wrap(sharederrors.ErrMissingChannelID)
	}
	return nil
}

// Timeout is the per-request timeout of outgoing HTTP calls.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// Interval is the server's sync period; zero disables the scheduler.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

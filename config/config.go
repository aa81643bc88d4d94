package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type Config struct {
	Scene   SceneConfig   `toml:"scene"`
	Assets  AssetsConfig  `toml:"assets"`
	Logging LoggingConfig `toml:"logging"`
}

type SceneConfig struct {
	Directory   string     `toml:"directory"`
	Extension   string     `toml:"extension"` // appended to scene names when resolving files
	Main        string     `toml:"main"`      // scene opened at startup
	Gravity     [3]float32 `toml:"gravity"`
	AirFriction float32    `toml:"air_friction"`
}

type AssetsConfig struct {
	Root string `toml:"root"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads a TOML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read config %s", path)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrapf(err, "parse config %s", path)
	}
	cfg.Scene.Extension = normalizeExtension(cfg.Scene.Extension)
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Scene: SceneConfig{
			Directory:   "scenes",
			Extension:   ".scene",
			Main:        "main",
			Gravity:     [3]float32{0, -9.8, 0},
			AirFriction: 0.1,
		},
		Assets: AssetsConfig{
			Root: "assets",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func normalizeExtension(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// NewLogger builds the host logger described by cfg. An unknown level falls
// back to info.
func NewLogger(cfg LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

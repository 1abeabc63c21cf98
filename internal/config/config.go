package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Host    HostConfig    `yaml:"host"`
	Window  WindowConfig  `yaml:"window"`
	Player  PlayerConfig  `yaml:"player"`
	Camera  CameraConfig  `yaml:"camera"`
	Storage StorageConfig `yaml:"storage"`
	World   WorldConfig   `yaml:"world"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

type HostConfig struct {
	Mode   string `yaml:"mode"` // "terminal" or "window"
	TickHz int    `yaml:"tick_hz"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type PlayerConfig struct {
	Spawn            [3]float64 `yaml:"spawn"`
	MouseSensitivity float64    `yaml:"mouse_sensitivity"`
}

type CameraConfig struct {
	FOV         float64 `yaml:"fov"`
	MaxDistance float64 `yaml:"max_distance"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"` // "sqlite" or "memory"
	Dir        string `yaml:"dir"`
	Name       string `yaml:"name"`
	Store      string `yaml:"store"`
	DebounceMS int    `yaml:"debounce_ms"`
}

func (s StorageConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

type WorldConfig struct {
	Chunks []ChunkConfig `yaml:"chunks"`
}

// ChunkConfig describes one island chunk: a ground slab whose top face is
// centred on Position.
type ChunkConfig struct {
	Name     string     `yaml:"name"`
	Position [3]float64 `yaml:"position"`
	Size     [3]float64 `yaml:"size"`
}

const (
	HostTerminal = "terminal"
	HostWindow   = "window"

	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Host:    HostConfig{Mode: HostWindow, TickHz: 60},
		Window:  WindowConfig{Width: 960, Height: 640, Title: "Tropical Lagoon"},
		Player: PlayerConfig{
			Spawn:            [3]float64{0, 1.7, 5},
			MouseSensitivity: 1,
		},
		Camera: CameraConfig{FOV: 60},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			Dir:        "data",
			Name:       "tropical-lagoon",
			Store:      "game-state",
			DebounceMS: 250,
		},
		World: WorldConfig{Chunks: []ChunkConfig{
			{Name: "beach", Position: [3]float64{0, 0, 0}, Size: [3]float64{40, 1, 40}},
		}},
	}
}

// Load overlays the YAML file at path onto Default and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Host.Mode {
	case HostTerminal, HostWindow:
	default:
		errs = append(errs, fmt.Errorf("host.mode %q: want %q or %q", c.Host.Mode, HostTerminal, HostWindow))
	}
	if c.Host.TickHz <= 0 || c.Host.TickHz > 1000 {
		errs = append(errs, fmt.Errorf("host.tick_hz %d out of range (1-1000)", c.Host.TickHz))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Player.MouseSensitivity <= 0 {
		errs = append(errs, fmt.Errorf("player.mouse_sensitivity must be positive"))
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov %.1f out of range (0-180)", c.Camera.FOV))
	}
	if c.Camera.MaxDistance < 0 {
		errs = append(errs, fmt.Errorf("camera.max_distance must not be negative"))
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Dir == "" {
			errs = append(errs, fmt.Errorf("storage.dir is required for sqlite"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: want %q or %q", c.Storage.Driver, DriverSQLite, DriverMemory))
	}
	if c.Storage.Name == "" || c.Storage.Store == "" {
		errs = append(errs, fmt.Errorf("storage.name and storage.store are required"))
	}
	if c.Storage.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("storage.debounce_ms must not be negative"))
	}
	seen := make(map[string]bool, len(c.World.Chunks))
	for i, ch := range c.World.Chunks {
		if ch.Name == "" {
			errs = append(errs, fmt.Errorf("world.chunks[%d]: name is required", i))
		} else if seen[ch.Name] {
			errs = append(errs, fmt.Errorf("world.chunks[%d]: duplicate name %q", i, ch.Name))
		}
		seen[ch.Name] = true
	}
	return errors.Join(errs...)
}

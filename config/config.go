package config

import (
	"fmt"
	"github.com/allape/rein/envar"
	"github.com/allape/rein/logger"
	"github.com/pelletier/go-toml/v2"
	"os"
	"time"
)

var log = logger.New("[config]")

const DefaultConfigPath = "rein.toml"

type CaptureDriverType string

const (
	CaptureScreenshot CaptureDriverType = "screenshot"
	CaptureShell      CaptureDriverType = "shell"
	CaptureDummy      CaptureDriverType = "dummy"
)

type DriverType string

const (
	DriverNone    DriverType = "none"
	DriverYdotool DriverType = "ydotool"
)

type Websocket struct {
	Addr string `toml:"addr"`
	Path string `toml:"path"`
	Cors bool   `toml:"cors"`
}

type Capture struct {
	Type CaptureDriverType `toml:"type"`
	// Src
	// shell: the command printing an MJPEG stream to stdout, e.g. ["ffmpeg", "-f", "x11grab", ..., "-f", "mjpeg", "-"]
	// dummy: the first element is drawn onto every frame
	Src       ShellCommand `toml:"src"`
	Display   int          `toml:"display"`
	Width     int          `toml:"width"`
	Height    int          `toml:"height"`
	FrameRate float64      `toml:"frame_rate"`
	Quality   int          `toml:"quality"`
}

type Driver struct {
	Type       DriverType `toml:"type"`
	Executable string     `toml:"executable"`
	Subcommand string     `toml:"subcommand"`
	// CooldownMS
	// How long a failed probe or a failed invocation keeps the executable marked as unavailable.
	CooldownMS int `toml:"cooldown_ms"`
}

func (d Driver) Cooldown() time.Duration {
	return time.Duration(d.CooldownMS) * time.Millisecond
}

type Viewer struct {
	Server    string  `toml:"server"`
	Addr      string  `toml:"addr"`
	FrameRate float64 `toml:"frame_rate"`
}

type Settings struct {
	Sensitivity  float64 `toml:"sensitivity"`
	InvertScroll bool    `toml:"invert_scroll"`
}

type Config struct {
	Websocket Websocket `toml:"websocket"`
	Capture   Capture   `toml:"capture"`
	Driver    Driver    `toml:"driver"`
	Viewer    Viewer    `toml:"viewer"`
	Settings  Settings  `toml:"settings"`
}

func DefaultSettings() Settings {
	return Settings{
		Sensitivity:  1.0,
		InvertScroll: false,
	}
}

func Default() Config {
	return Config{
		Websocket: Websocket{
			Addr: ":8080",
			Path: "/websocket",
		},
		Capture: Capture{
			Type:      CaptureScreenshot,
			Display:   0,
			Width:     1280,
			Height:    720,
			FrameRate: 15,
			Quality:   60,
		},
		Driver: Driver{
			Type:       DriverYdotool,
			Executable: "ydotool",
			Subcommand: "mousemove",
			CooldownMS: 5000,
		},
		Viewer: Viewer{
			Server:    "ws://127.0.0.1:8080/websocket",
			Addr:      ":8090",
			FrameRate: 60,
		},
		Settings: DefaultSettings(),
	}
}

// Path returns the config file named by the first argument, REIN_CONFIG, or the default path.
func Path(args []string) string {
	if len(args) > 1 && args[1] != "" {
		return args[1]
	}
	return envar.Getenv(envar.ReinConfig, DefaultConfigPath)
}

func GetConfig() (Config, error) {
	return Load(Path(os.Args))
}

func Load(configFile string) (Config, error) {
	log.Println("reading config file:", configFile)

	config := Default()

	_, err := os.Stat(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("config file not found, use defaults")
			return config, nil
		}
		return config, err
	}

	configData, err := os.ReadFile(configFile)
	if err != nil {
		return config, err
	}

	err = toml.Unmarshal(configData, &config)
	if err != nil {
		return config, fmt.Errorf("parse %s: %w", configFile, err)
	}

	err = config.Validate()
	if err != nil {
		return config, err
	}

	log.Println("use config:", config)

	return config, nil
}

func (c Config) Validate() error {
	if c.Capture.FrameRate <= 0 {
		return fmt.Errorf("capture frame rate must be positive: %v", c.Capture.FrameRate)
	}
	if c.Viewer.FrameRate <= 0 {
		return fmt.Errorf("viewer frame rate must be positive: %v", c.Viewer.FrameRate)
	}
	if c.Driver.CooldownMS < 0 {
		return fmt.Errorf("driver cooldown must not be negative: %d", c.Driver.CooldownMS)
	}
	if c.Settings.Sensitivity <= 0 {
		return fmt.Errorf("sensitivity must be positive: %v", c.Settings.Sensitivity)
	}
	return nil
}

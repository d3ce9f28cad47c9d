// Package config holds the daemon settings. Defaults are overridden by an
// optional JSON file, which is overridden by explicit command-line flags.
package config

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/sweeney/remote-motor/internal/indicator"
	"github.com/sweeney/remote-motor/internal/logic"
	"github.com/sweeney/remote-motor/internal/motor"
	"github.com/sweeney/remote-motor/internal/remote"
)

// Input source kinds.
const (
	SourceEvdev  = "evdev"
	SourceSerial = "serial"
)

// Config contains every daemon setting. JSON tags name the config file keys.
type Config struct {
	Poll             time.Duration `json:"poll"`
	ReleaseTimeout   time.Duration `json:"release_timeout"`
	StopTimeout      time.Duration `json:"stop_timeout"`
	MaxLevel         int           `json:"max_level"`
	StopOnDisconnect bool          `json:"stop_on_disconnect"`

	Source         string        `json:"source"`
	Device         string        `json:"device"`
	DeviceMatch    string        `json:"device_match"`
	Baud           int           `json:"baud"`
	QueueSize      int           `json:"queue_size"`
	RestartDelay   time.Duration `json:"restart_delay"`
	RescanInterval time.Duration `json:"rescan_interval"`

	Chip    string `json:"chip"`
	PinPWM  int    `json:"pin_pwm"`
	PinDir  int    `json:"pin_dir"`
	PinLED  int    `json:"pin_led"`
	PWMFreq int    `json:"pwm_freq"`

	Broker    string        `json:"broker"`
	WSBroker  string        `json:"ws_broker"`
	Heartbeat time.Duration `json:"heartbeat"`
	HTTP      string        `json:"http"`
	Debug     bool          `json:"debug"`

	PrintState bool `json:"-"`
}

// Default returns the settings for a BT13 remote on a Raspberry Pi.
func Default() Config {
	lc := logic.DefaultConfig()
	return Config{
		Poll:           50 * time.Millisecond,
		ReleaseTimeout: lc.ReleaseTimeout,
		StopTimeout:    lc.StopTimeout,
		MaxLevel:       lc.MaxLevel,

		Source:         SourceEvdev,
		DeviceMatch:    remote.DefaultDeviceMatch,
		Baud:           remote.DefaultBaud,
		QueueSize:      remote.DefaultQueueSize,
		RestartDelay:   remote.DefaultRestartDelay,
		RescanInterval: remote.DefaultRescanInterval,

		Chip:    "gpiochip0",
		PinPWM:  motor.DefaultPinPWM,
		PinDir:  motor.DefaultPinDir,
		PinLED:  indicator.DefaultPinLED,
		PWMFreq: motor.DefaultPWMFreq,

		Broker:    "tcp://192.168.1.200:1883",
		WSBroker:  "=broker",
		Heartbeat: 15 * time.Minute,
		HTTP:      ":80",
	}
}

// BindFlags registers a flag for every setting, defaulting to cfg's current
// values and writing into cfg on parse.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.DurationVar(&cfg.Poll, "poll", cfg.Poll, "Release and watchdog polling interval")
	fs.DurationVar(&cfg.ReleaseTimeout, "release-timeout", cfg.ReleaseTimeout, "Silence after which a long press is released")
	fs.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "Disconnection time after which the motor is stopped")
	fs.IntVar(&cfg.MaxLevel, "max-level", cfg.MaxLevel, "Number of speed steps in each direction")
	fs.BoolVar(&cfg.StopOnDisconnect, "stop-on-disconnect", cfg.StopOnDisconnect, "Stop the motor as soon as the remote disconnects")

	fs.StringVar(&cfg.Source, "source", cfg.Source, `Input source ("evdev" or "serial")`)
	fs.StringVar(&cfg.Device, "device", cfg.Device, "Input device path (evdev node or serial port)")
	fs.StringVar(&cfg.DeviceMatch, "device-match", cfg.DeviceMatch, "Input device name substring used when -device is empty (evdev)")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "Serial bridge baud rate")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Input event queue capacity")
	fs.DurationVar(&cfg.RestartDelay, "restart-delay", cfg.RestartDelay, "Delay before reopening the remote after a disconnect")
	fs.DurationVar(&cfg.RescanInterval, "rescan-interval", cfg.RescanInterval, "Interval between reopen attempts while disconnected")

	fs.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO chip name")
	fs.IntVar(&cfg.PinPWM, "pin-pwm", cfg.PinPWM, "BCM pin number for motor PWM")
	fs.IntVar(&cfg.PinDir, "pin-dir", cfg.PinDir, "BCM pin number for motor direction")
	fs.IntVar(&cfg.PinLED, "pin-led", cfg.PinLED, "BCM pin number for the status LED (0 to disable)")
	fs.IntVar(&cfg.PWMFreq, "pwm-freq", cfg.PWMFreq, "Motor PWM frequency in Hz")

	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address")
	fs.StringVar(&cfg.WSBroker, "ws-broker", cfg.WSBroker, `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&cfg.HTTP, "http", cfg.HTTP, "HTTP status address (empty to disable)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Development logging at debug level")
	fs.BoolVar(&cfg.PrintState, "print-state", cfg.PrintState, "Print the input device and exit")
}

// Load builds the config from defaults, the file named by -config, and args.
func Load(name string, args []string) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "JSON config file")
	BindFlags(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *path != "" {
		if err := LoadFile(*path, &cfg); err != nil {
			return Config{}, err
		}
		// Explicit flags win over the file.
		if err := fs.Parse(args); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the JSON file at path onto cfg. Durations are strings
// such as "200ms"; unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	return Decode(data, cfg)
}

// Decode overlays JSON data onto cfg.
func Decode(data []byte, cfg *Config) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "parse config")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		TagName:     "json",
		Result:      cfg,
	})
	if err != nil {
		return errors.Wrap(err, "config decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return errors.Wrap(err, "decode config")
	}
	return nil
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Poll <= 0:
		return errors.Errorf("poll must be positive, got %v", c.Poll)
	case c.ReleaseTimeout <= 0:
		return errors.Errorf("release-timeout must be positive, got %v", c.ReleaseTimeout)
	case c.StopTimeout <= 0:
		return errors.Errorf("stop-timeout must be positive, got %v", c.StopTimeout)
	case c.MaxLevel < 1 || c.MaxLevel > logic.MaxDuty:
		return errors.Errorf("max-level must be in 1..%d, got %d", logic.MaxDuty, c.MaxLevel)
	case c.Source != SourceEvdev && c.Source != SourceSerial:
		return errors.Errorf("unknown source %q", c.Source)
	case c.Source == SourceSerial && c.Device == "":
		return errors.New("serial source needs -device")
	case c.QueueSize < 1:
		return errors.Errorf("queue-size must be positive, got %d", c.QueueSize)
	case c.PWMFreq <= 0:
		return errors.Errorf("pwm-freq must be positive, got %d", c.PWMFreq)
	}
	return nil
}

// Logic returns the controller tunables.
func (c Config) Logic() logic.Config {
	return logic.Config{
		MaxLevel:         c.MaxLevel,
		ReleaseTimeout:   c.ReleaseTimeout,
		StopTimeout:      c.StopTimeout,
		StopOnDisconnect: c.StopOnDisconnect,
	}
}

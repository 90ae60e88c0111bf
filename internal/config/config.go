package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rtcsync/internal/gps"
	"rtcsync/internal/transmit"
)

type Config struct {
	GPS     GPSConfig     `yaml:"gps"`
	Monitor MonitorConfig `yaml:"monitor"`
	RTC     RTCConfig     `yaml:"rtc"`
	LEDs    LEDConfig     `yaml:"leds"`
	Web     WebConfig     `yaml:"web"`
	Logging LoggingConfig `yaml:"logging"`
}

type GPSConfig struct {
	// Device may be empty to auto-detect the first USB/ACM serial port.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// Detection is "type_code" (default) or "markers".
	Detection string `yaml:"detection"`
}

// MonitorConfig selects where the time echo goes. With neither Device nor
// UDPDest set, the echo is written to stdout.
type MonitorConfig struct {
	Device  string `yaml:"device"`
	Baud    int    `yaml:"baud"`
	UDPDest string `yaml:"udp_dest"`
}

type RTCConfig struct {
	Enable   bool          `yaml:"enable"`
	Bus      string        `yaml:"bus"`
	Address  uint16        `yaml:"address"`
	// Register is the first register of the clock-set transaction. Unset
	// selects the PCF8523 seconds register; an explicit 0 is kept.
	Register *uint8        `yaml:"register"`
	Encoding string        `yaml:"encoding"`
	Interval time.Duration `yaml:"interval"`
	// Verify reads the clock back after each write and logs it.
	Verify bool `yaml:"verify"`
}

// LEDConfig maps activity LEDs to GPIO line offsets. 0 disables a LED.
type LEDConfig struct {
	Chip      string `yaml:"chip"`
	RxPin     int    `yaml:"rx_pin"`
	RecordPin int    `yaml:"record_pin"`
}

type WebConfig struct {
	// Listen is host:port for the status endpoint; empty disables it.
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is "stdout", "stderr" or a file path (rotated).
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultRegister is the PCF8523 seconds register.
const DefaultRegister uint8 = 0x03

// StartRegister returns the configured transaction register or
// DefaultRegister.
func (c RTCConfig) StartRegister() uint8 {
	if c.Register == nil {
		return DefaultRegister
	}
	return *c.Register
}

var supportedBauds = map[int]bool{
	4800:   true,
	9600:   true,
	19200:  true,
	38400:  true,
	57600:  true,
	115200: true,
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// Load reads a YAML config. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.GPS.Baud == 0 {
		cfg.GPS.Baud = 4800
	}
	cfg.GPS.Detection = strings.ToLower(strings.TrimSpace(cfg.GPS.Detection))
	if cfg.GPS.Detection == "" {
		cfg.GPS.Detection = "type_code"
	}

	if cfg.Monitor.Baud == 0 {
		cfg.Monitor.Baud = 115200
	}

	if cfg.RTC.Bus == "" {
		cfg.RTC.Bus = "/dev/i2c-1"
	}
	if cfg.RTC.Address == 0 {
		cfg.RTC.Address = 0x68
	}
	cfg.RTC.Encoding = strings.ToLower(strings.TrimSpace(cfg.RTC.Encoding))
	if cfg.RTC.Encoding == "" {
		cfg.RTC.Encoding = "decimal"
	}
	if cfg.RTC.Interval <= 0 {
		cfg.RTC.Interval = 1 * time.Second
	}

	if cfg.LEDs.Chip == "" {
		cfg.LEDs.Chip = "gpiochip0"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 14
	}
}

func validate(cfg Config) error {
	if !supportedBauds[cfg.GPS.Baud] {
		return fmt.Errorf("gps.baud %d is not supported", cfg.GPS.Baud)
	}
	if _, err := gps.ParseDetection(cfg.GPS.Detection); err != nil {
		return fmt.Errorf("gps.detection must be 'type_code' or 'markers'")
	}

	if !supportedBauds[cfg.Monitor.Baud] {
		return fmt.Errorf("monitor.baud %d is not supported", cfg.Monitor.Baud)
	}
	if cfg.Monitor.Device != "" && cfg.Monitor.UDPDest != "" {
		return fmt.Errorf("monitor.device and monitor.udp_dest cannot both be set")
	}

	if cfg.RTC.Address > 0x7F {
		return fmt.Errorf("rtc.address must be a 7-bit address")
	}
	if _, err := transmit.ParseEncoding(cfg.RTC.Encoding); err != nil {
		return fmt.Errorf("rtc.encoding must be 'decimal' or 'bcd'")
	}

	if cfg.LEDs.RxPin < 0 || cfg.LEDs.RecordPin < 0 {
		return fmt.Errorf("leds pins must be >= 0")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}
	return nil
}

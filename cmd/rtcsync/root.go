package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rtcsync/internal/bridge"
	"rtcsync/internal/config"
	"rtcsync/internal/gps"
	"rtcsync/internal/logging"
	"rtcsync/internal/transmit"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rtcsync",
	Short: "Set a real-time clock from a GPS receiver's RMC sentences",
	Long: `rtcsync reads NMEA 0183 from a GPS receiver, captures the UTC time and date
from each RMC sentence, echoes the time field to a monitor line and writes
seconds and minutes to a real-time clock over I2C once per interval.

Without --config the built-in defaults are used (GPS auto-detected at 4800
baud, echo to stdout, RTC disabled).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config")
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config load failed: %w", err)
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger init failed: %w", err)
	}
	return cfg, log, nil
}

func bridgeConfig(cfg config.Config) (bridge.Config, error) {
	det, err := gps.ParseDetection(cfg.GPS.Detection)
	if err != nil {
		return bridge.Config{}, err
	}
	enc, err := transmit.ParseEncoding(cfg.RTC.Encoding)
	if err != nil {
		return bridge.Config{}, err
	}
	return bridge.Config{
		Detection: det,
		Register:  cfg.RTC.StartRegister(),
		Encoding:  enc,
		Interval:  cfg.RTC.Interval,
		Verify:    cfg.RTC.Verify,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rtcsync/internal/bridge"
	"rtcsync/internal/config"
	"rtcsync/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge against live devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runLive(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLive(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	bcfg, err := bridgeConfig(cfg)
	if err != nil {
		return err
	}

	gpsPort, gpsDevice, err := openGPS(cfg.GPS, log)
	if err != nil {
		return fmt.Errorf("gps open failed: %w", err)
	}
	defer gpsPort.Close()

	monitor, monitorDesc, err := openMonitor(cfg.Monitor)
	if err != nil {
		return fmt.Errorf("monitor open failed: %w", err)
	}
	defer monitor.Close()

	clock, closeRTC, err := openRTC(cfg.RTC)
	if err != nil {
		return fmt.Errorf("rtc open failed: %w", err)
	}
	defer closeRTC()

	rxLED, recordLED := openLEDs(cfg.LEDs, log)
	defer rxLED.Close()
	defer recordLED.Close()

	b := bridge.New(bcfg, bridge.Deps{
		GPS:       gpsPort,
		Monitor:   monitor,
		RTC:       clock,
		RxLED:     rxLED,
		RecordLED: recordLED,
	}, log.Named("bridge"))

	log.Info("rtcsync starting",
		zap.String("gps", gpsDevice),
		zap.Int("gps_baud", cfg.GPS.Baud),
		zap.String("monitor", monitorDesc),
		zap.Bool("rtc", cfg.RTC.Enable),
		zap.Stringer("encoding", bcfg.Encoding),
		zap.Stringer("detection", bcfg.Detection),
		zap.Duration("interval", bcfg.Interval),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Web.Listen != "" {
		status := web.NewStatus(b)
		status.SetStatic(map[string]string{
			"gps_device": gpsDevice,
			"monitor":    monitorDesc,
			"rtc_bus":    cfg.RTC.Bus,
		})
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, web.Handler(status), log); err != nil {
				log.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	// Run closes gpsPort on cancellation to unblock the pending Read.
	err = b.Run(ctx)
	log.Info("rtcsync stopping")
	return err
}

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rtcsync/internal/bridge"
	"rtcsync/internal/config"
	"rtcsync/internal/replay"
)

var (
	replayBaud int
	replayRTC  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Feed a captured NMEA log through the bridge",
	Long: `Replay reads a raw NMEA capture, paces it at --baud (0 replays as fast as
the echo drains) and writes the time echo of every RMC record to stdout. With
--rtc the configured real-time clock is written as in live mode; otherwise the
transactions are only logged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg.RTC.Enable = replayRTC
		_, err = runReplay(ctx, cfg, args[0], replayBaud, cmd.OutOrStdout(), log)
		return err
	},
}

func init() {
	replayCmd.Flags().IntVar(&replayBaud, "baud", 4800, "Pacing baud rate (0 = unthrottled)")
	replayCmd.Flags().BoolVar(&replayRTC, "rtc", false, "Write the configured RTC")
	rootCmd.AddCommand(replayCmd)
}

// runReplay runs the bridge over the file until EOF, then performs one final
// clock-set transaction from the last record.
func runReplay(ctx context.Context, cfg config.Config, path string, baud int, out io.Writer, log *zap.Logger) (bridge.Snapshot, error) {
	bcfg, err := bridgeConfig(cfg)
	if err != nil {
		return bridge.Snapshot{}, err
	}
	// Nothing paces a file like a UART does; drain each echo before reading on.
	bcfg.Lockstep = true

	f, err := os.Open(path)
	if err != nil {
		return bridge.Snapshot{}, fmt.Errorf("replay open failed: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if baud > 0 {
		src = replay.NewPacedReader(f, baud)
	}

	clock, closeRTC, err := openRTC(cfg.RTC)
	if err != nil {
		return bridge.Snapshot{}, fmt.Errorf("rtc open failed: %w", err)
	}
	defer closeRTC()

	b := bridge.New(bcfg, bridge.Deps{GPS: src, Monitor: out, RTC: clock}, log.Named("bridge"))
	log.Info("replay starting", zap.String("path", path), zap.Int("baud", baud))

	if err := b.Run(ctx); err != nil {
		return b.Snapshot(nowUTC()), err
	}

	tx, err := b.BusStart()
	switch {
	case errors.Is(err, bridge.ErrNoRecord):
		log.Warn("replay finished without an RMC record")
	case err != nil:
		return b.Snapshot(nowUTC()), err
	default:
		log.Info("replay final rtc transaction", zap.String("tx", hex.EncodeToString(tx[:])))
	}

	snap := b.Snapshot(nowUTC())
	log.Info("replay done",
		zap.Uint64("sentences", snap.Classifier.Sentences),
		zap.Uint64("records", snap.Classifier.Completed),
		zap.Uint64("echo_runs", snap.EchoRuns),
		zap.Uint64("echo_dropped", snap.EchoDropped),
	)
	return snap, nil
}

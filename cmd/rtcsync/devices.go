package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"rtcsync/internal/bridge"
	"rtcsync/internal/config"
	"rtcsync/internal/i2c"
	"rtcsync/internal/indicator"
	"rtcsync/internal/rtc"
	"rtcsync/internal/uart"
	"rtcsync/internal/udp"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func openGPS(cfg config.GPSConfig, log *zap.Logger) (uart.Port, string, error) {
	device := cfg.Device
	if device == "" {
		d, err := uart.AutoDetect()
		if err != nil {
			return nil, "", err
		}
		device = d
		log.Info("gps device auto-detected", zap.String("device", device))
	}
	p, err := uart.Open(device, cfg.Baud)
	if err != nil {
		return nil, "", err
	}
	return p, device, nil
}

// openMonitor returns the echo destination and a short description of it.
func openMonitor(cfg config.MonitorConfig) (io.WriteCloser, string, error) {
	switch {
	case cfg.Device != "":
		p, err := uart.Open(cfg.Device, cfg.Baud)
		if err != nil {
			return nil, "", err
		}
		return p, fmt.Sprintf("%s@%d", cfg.Device, cfg.Baud), nil
	case cfg.UDPDest != "":
		b, err := udp.NewBroadcaster(cfg.UDPDest)
		if err != nil {
			return nil, "", err
		}
		return b, "udp://" + b.Dest(), nil
	default:
		return nopWriteCloser{os.Stdout}, "stdout", nil
	}
}

// openRTC returns a nil bridge.RTC when the clock is disabled.
func openRTC(cfg config.RTCConfig) (bridge.RTC, func() error, error) {
	if !cfg.Enable {
		return nil, func() error { return nil }, nil
	}
	bus, err := i2c.Open(cfg.Bus)
	if err != nil {
		return nil, nil, err
	}
	dev, err := rtc.New(bus.Dev(cfg.Address))
	if err != nil {
		_ = bus.Close()
		return nil, nil, err
	}
	return dev, bus.Close, nil
}

func openLEDs(cfg config.LEDConfig, log *zap.Logger) (rx, record indicator.LED) {
	rx, err := indicator.Open(cfg.Chip, cfg.RxPin)
	if err != nil {
		log.Warn("rx led unavailable", zap.Error(err))
		rx = indicator.Nop{}
	}
	record, err = indicator.Open(cfg.Chip, cfg.RecordPin)
	if err != nil {
		log.Warn("record led unavailable", zap.Error(err))
		record = indicator.Nop{}
	}
	return rx, record
}

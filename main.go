package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"go-keys/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(run).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runFunc func(ctx context.Context, cfg *config.Config, opts runOptions) error

// newCommand builds the CLI; start receives the merged, validated config
func newCommand(start runFunc) *cli.Command {
	return &cli.Command{
		Name:  "go-keys",
		Usage: "Play MIDI keyboards through a built-in synth",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Usage: "sound source: osc, synth or none"},
			&cli.StringFlag{Name: "soundfont", Usage: "SoundFont (.sf2) for the synth backend"},
			&cli.StringFlag{Name: "waveform", Usage: "oscillator waveform: sine or organ"},
			&cli.StringFlag{Name: "serial", Usage: "serial device carrying raw MIDI, e.g. /dev/ttyUSB0"},
			&cli.IntFlag{Name: "baud", Usage: "serial baud rate", Value: 31250},
			&cli.IntFlag{Name: "channel", Usage: "MIDI channel to accept, -1 for all"},
			&cli.BoolFlag{Name: "retrigger", Usage: "restart a key that is pressed again while sounding"},
			&cli.BoolFlag{Name: "no-tui", Usage: "run headless, logging to stderr"},
			&cli.BoolFlag{Name: "debug", Usage: "write a debug log to ~/.config/go-keys/debug.log"},
			&cli.StringFlag{Name: "palette", Usage: "GIMP .gpl palette for the UI"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyFlags(cfg, c)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return start(ctx, cfg, runOptions{
				tui:   !c.Bool("no-tui"),
				debug: c.Bool("debug"),
			})
		},
	}
}

// applyFlags overrides config values with flags given on the command line
func applyFlags(cfg *config.Config, c *cli.Command) {
	if c.IsSet("backend") {
		cfg.Sound.Backend = c.String("backend")
	}
	if c.IsSet("soundfont") {
		cfg.Sound.SoundFont = c.String("soundfont")
		if !c.IsSet("backend") {
			cfg.Sound.Backend = "synth"
		}
	}
	if c.IsSet("waveform") {
		cfg.Sound.Waveform = c.String("waveform")
	}
	if c.IsSet("serial") {
		cfg.MIDI.SerialPort = c.String("serial")
	}
	if c.IsSet("baud") || cfg.MIDI.SerialBaud == 0 {
		cfg.MIDI.SerialBaud = int(c.Int("baud"))
	}
	if c.IsSet("channel") {
		cfg.MIDI.Channel = int(c.Int("channel"))
	}
	if c.Bool("retrigger") {
		cfg.Dispatch.Retrigger = true
	}
	if c.IsSet("palette") {
		cfg.UI.Palette = c.String("palette")
	}
}

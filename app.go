package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-keys/config"
	"go-keys/debug"
	"go-keys/dispatch"
	"go-keys/display"
	"go-keys/midi"
	"go-keys/note"
	"go-keys/sound"
	"go-keys/theme"
	"go-keys/tui"
)

type runOptions struct {
	tui   bool
	debug bool
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	if opts.debug {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}
	if !opts.tui {
		debug.Console(os.Stderr)
	}
	logger := debug.Logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Sound
	out := sound.NewOutput(cfg.Sound.SampleRate)
	if err := out.Initialize(time.Duration(cfg.Sound.BufferMs) * time.Millisecond); err != nil {
		// keep going silent; the dispatcher still tracks keys
		logger.Error("audio output unavailable", "err", err)
	}
	defer out.Close()

	src, backend, err := newSource(cfg.Sound, out)
	if err != nil {
		return err
	}

	// Displays
	th := theme.New(loadPalette(cfg.UI.Palette))
	kb := display.NewKeyboard(cfg.UI.LowKey, cfg.UI.HighKey)
	white, black, pressed := th.PadColors()
	pads := midi.NewLaunchpadDisplay(cfg.MIDI.GridBase, midi.PadColors{White: white, Black: black, Pressed: pressed})

	policy := dispatch.IgnoreDuplicate
	if cfg.Dispatch.Retrigger {
		policy = dispatch.Retrigger
	}
	d := dispatch.New(src, display.Multi{kb, pads},
		dispatch.WithLogger(logger.WithPrefix("dispatch")),
		dispatch.WithPolicy(policy),
		dispatch.WithDecoder(midi.Decoder{Channel: cfg.MIDI.Channel, VelocityZeroOff: cfg.MIDI.VelocityZeroOff}),
	)
	defer d.Close()

	handle := func(msg []byte) {
		// errors are already logged by the dispatcher
		_ = d.Handle(msg)
	}

	// Inputs
	devices, status, closeDriver := openDevices(midi.OpenDriver, handle, cfg.MIDI)
	defer closeDriver()
	if devices != nil {
		go devices.Run(ctx)
		go pads.Run(ctx)
	}

	if cfg.MIDI.SerialPort != "" {
		in, err := midi.OpenSerial(cfg.MIDI.SerialPort, cfg.MIDI.SerialBaud, handle)
		if err != nil {
			logger.Error("serial input unavailable", "err", err)
		} else {
			go func() {
				if err := in.Run(ctx); err != nil {
					logger.Error("serial input stopped", "err", err)
				}
			}()
		}
	}

	label := string(backend)
	if !out.Initialized() && backend != sound.BackendNone {
		label += " (no audio)"
	}

	logger.Info("go-keys ready", "backend", label, "policy", policy.String(), "channel", cfg.MIDI.Channel)

	if !opts.tui {
		watchDevices(ctx, devices, pads, d)
		return nil
	}

	m := tui.NewModel(tui.Options{
		Dispatcher: d,
		Keyboard:   kb,
		Devices:    devices,
		Pads:       pads,
		Theme:      th,
		Backend:    label,
		Status:     status,
		SavePolicy: savePolicy,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// openDevices opens the MIDI driver and builds the device manager. When
// access is refused it logs once and returns a nil manager and a status
// line for the UI; the app then runs without device input.
func openDevices(open func() (drivers.Driver, error), handle midi.Handler, cfg config.MIDIConfig) (*midi.DeviceManager, string, func()) {
	drv, err := open()
	if err != nil {
		debug.Logger().Error("MIDI input disabled", "err", err)
		status := "MIDI unavailable; no device input this session"
		if errors.Is(err, midi.ErrAccessDenied) {
			status = "MIDI access denied; no device input this session"
		}
		return nil, status, func() {}
	}

	devices := midi.NewDeviceManager(drv, handle, midi.ManagerOptions{
		Exclude:  cfg.Exclude,
		Only:     cfg.Only,
		GridBase: cfg.GridBase,
		Channel:  padChannel(cfg.Channel),
	})
	return devices, "", func() { drv.Close() }
}

// savePolicy stores the duplicate note-on policy in the config file. It
// reloads from disk so command-line overrides are not written back.
func savePolicy(p dispatch.Policy) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Dispatch.Retrigger = p == dispatch.Retrigger
	return cfg.Save()
}

// newSource builds the configured sound source
func newSource(cfg config.SoundConfig, out *sound.Output) (sound.Source, sound.Backend, error) {
	backend, err := sound.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, "", err
	}

	switch backend {
	case sound.BackendSynth:
		engine, err := sound.LoadSoundFont(cfg.SoundFont, int(out.SampleRate()))
		if err != nil {
			return nil, "", err
		}
		return sound.NewExternalSynth(engine, out, 0), backend, nil

	case sound.BackendNone:
		return sound.NewNullSound(), backend, nil
	}

	wf, err := sound.ParseWaveform(cfg.Waveform)
	if err != nil {
		return nil, "", err
	}
	bank := sound.NewOscillatorBank(note.NewFrequencyTable(), out,
		sound.WithWaveform(wf),
		sound.WithGain(cfg.Gain),
		sound.WithRelease(time.Duration(cfg.ReleaseMs)*time.Millisecond),
	)
	return bank, backend, nil
}

func loadPalette(path string) *theme.Palette {
	p, err := theme.Load(path)
	if err != nil {
		debug.Logger().Warn("palette not loaded, using default", "path", path, "err", err)
		return theme.Default()
	}
	return p
}

// padChannel is the channel Launchpad pads send on; omni listens on 0
func padChannel(ch int) uint8 {
	if ch < 0 {
		return 0
	}
	return uint8(ch)
}

// watchDevices does the TUI's device bookkeeping when running headless
func watchDevices(ctx context.Context, devices *midi.DeviceManager, pads *midi.LaunchpadDisplay, d *dispatch.Dispatcher) {
	if devices == nil {
		<-ctx.Done()
		return
	}
	for ev := range devices.Events() {
		switch ev.Type {
		case midi.DeviceConnected:
			if lp, ok := ev.Controller.(*midi.LaunchpadController); ok {
				pads.SetSink(lp)
			}
		case midi.DeviceDisconnected:
			if devices.GetLaunchpad() == nil {
				pads.SetSink(nil)
			}
			d.Panic()
		}
	}
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MIDIConfig selects and decodes inputs
type MIDIConfig struct {
	Exclude         []string `json:"exclude,omitempty"`    // port name patterns never attached
	Only            []string `json:"only,omitempty"`       // if set, attach only these
	Channel         int      `json:"channel"`              // -1 = omni
	VelocityZeroOff bool     `json:"velocityZeroOff"`      // note-on vel 0 releases
	GridBase        int      `json:"gridBase"`             // Launchpad bottom-left key
	SerialPort      string   `json:"serialPort,omitempty"` // e.g. /dev/ttyUSB0
	SerialBaud      int      `json:"serialBaud,omitempty"` // default 31250
}

// SoundConfig picks and tunes the sound source
type SoundConfig struct {
	Backend    string  `json:"backend"`             // osc, synth, none
	Waveform   string  `json:"waveform,omitempty"`  // sine, organ
	SoundFont  string  `json:"soundFont,omitempty"` // .sf2 path for synth
	SampleRate int     `json:"sampleRate"`
	BufferMs   int     `json:"bufferMs"`
	Gain       float64 `json:"gain"`
	ReleaseMs  int     `json:"releaseMs"`
}

// DispatchConfig holds the note-on policy
type DispatchConfig struct {
	Retrigger bool `json:"retrigger"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // GIMP .gpl file
	LowKey  int    `json:"lowKey"`
	HighKey int    `json:"highKey"`
}

// Config is the main configuration structure
type Config struct {
	MIDI     MIDIConfig     `json:"midi"`
	Sound    SoundConfig    `json:"sound"`
	Dispatch DispatchConfig `json:"dispatch"`
	UI       UIConfig       `json:"ui"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MIDI: MIDIConfig{
			Exclude:         []string{"Midi Through", "Through Port", "Dummy"},
			Channel:         0,
			VelocityZeroOff: true,
			GridBase:        36,
			SerialBaud:      31250,
		},
		Sound: SoundConfig{
			Backend:    "osc",
			Waveform:   "sine",
			SampleRate: 48000,
			BufferMs:   20,
			Gain:       0.2,
			ReleaseMs:  60,
		},
		UI: UIConfig{
			LowKey:  21,
			HighKey: 108,
		},
	}
}

// Validate rejects values the rest of the program cannot use
func (c *Config) Validate() error {
	var errs []error
	if c.MIDI.Channel < -1 || c.MIDI.Channel > 15 {
		errs = append(errs, fmt.Errorf("midi.channel %d: want -1 (omni) or 0-15", c.MIDI.Channel))
	}
	if c.MIDI.GridBase < 0 || c.MIDI.GridBase > 127-63 {
		errs = append(errs, fmt.Errorf("midi.gridBase %d: grid must fit in keys 0-127", c.MIDI.GridBase))
	}
	switch c.Sound.Backend {
	case "osc", "synth", "none":
	default:
		errs = append(errs, fmt.Errorf("sound.backend %q: want osc, synth or none", c.Sound.Backend))
	}
	if c.Sound.Backend == "synth" && c.Sound.SoundFont == "" {
		errs = append(errs, errors.New("sound.soundFont is required for the synth backend"))
	}
	if c.Sound.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sound.sampleRate %d: must be positive", c.Sound.SampleRate))
	}
	if c.Sound.Gain < 0 || c.Sound.Gain > 1 {
		errs = append(errs, fmt.Errorf("sound.gain %.2f: want 0-1", c.Sound.Gain))
	}
	if c.UI.LowKey < 0 || c.UI.HighKey > 127 || c.UI.LowKey > c.UI.HighKey {
		errs = append(errs, fmt.Errorf("ui key range %d-%d is invalid", c.UI.LowKey, c.UI.HighKey))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-keys"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults; a missing file yields the defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

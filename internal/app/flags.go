package app

import (
	"flag"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

// Flags are the command-line options shared by both binaries, mirroring the
// original demo's interface.
type Flags struct {
	ConfigPath  string
	Model       string
	Device      string
	SampleRate  int
	WAVFile     string
	ListDevices bool
	ShowVersion bool
}

func RegisterFlags(fs *flag.FlagSet) *Flags {
	var f Flags
	fs.StringVar(&f.ConfigPath, "config", "", "path to YAML configuration file")
	fs.StringVar(&f.Model, "m", "", "language model; e.g. en-us, fr, nl, or a model directory (default en-us)")
	fs.StringVar(&f.Device, "d", "", "input device (numeric ID or name substring)")
	fs.IntVar(&f.SampleRate, "r", 0, "sampling rate (default: device default)")
	fs.StringVar(&f.WAVFile, "f", "", "transcribe a 16-bit mono WAV file instead of the microphone")
	fs.BoolVar(&f.ListDevices, "l", false, "show list of audio devices and exit")
	fs.BoolVar(&f.ShowVersion, "version", false, "print version and exit")
	return &f
}

// Apply overlays explicit flag values onto the loaded configuration.
func (f *Flags) Apply(cfg *config.Config) {
	if f.Model != "" {
		// -m replaces any model the config file picked, including an
		// explicit model.path.
		cfg.Model.Name = f.Model
		cfg.Model.Path = ""
	}
	if f.Device != "" {
		cfg.Audio.Device = f.Device
	}
	if f.SampleRate != 0 {
		cfg.Audio.SampleRate = f.SampleRate
	}
}

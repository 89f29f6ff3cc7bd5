package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Device describes an audio input device.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// ListDevices enumerates input-capable devices. The PortAudio runtime must
// be initialized by the caller (see Init/Terminate).
func ListDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate audio devices: %w", err)
	}
	var def *portaudio.DeviceInfo
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		def = d
	}

	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Default:           def != nil && info.Name == def.Name,
		})
	}
	return devices, nil
}

// MatchDevice resolves a selector against a device table. An empty selector
// picks the default input device; a number picks by index; anything else is
// a case-insensitive name substring.
func MatchDevice(devices []Device, selector string) (Device, error) {
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("no audio input devices available")
	}

	selector = strings.TrimSpace(selector)
	if selector == "" {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		return devices[0], nil
	}

	if idx, err := strconv.Atoi(selector); err == nil {
		for _, d := range devices {
			if d.Index == idx {
				return d, nil
			}
		}
		return Device{}, fmt.Errorf("no input device with index %d", idx)
	}

	needle := strings.ToLower(selector)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("no input device matching %q; run with -l to list devices", selector)
}

// FormatDevices renders the device table for the -l flag.
func FormatDevices(devices []Device) string {
	var b strings.Builder
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %2d  %s (%d in, %.0f Hz)\n",
			marker, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return b.String()
}

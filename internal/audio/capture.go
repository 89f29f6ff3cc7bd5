package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Init starts the PortAudio runtime. Pair with Terminate.
func Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	return nil
}

// Terminate stops the PortAudio runtime.
func Terminate() {
	_ = portaudio.Terminate()
}

// pcmStream is the slice of the PortAudio stream API Capture drives.
// Faked in tests; the real device is not available there.
type pcmStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// Capture is a microphone Source backed by a blocking-read PortAudio stream.
type Capture struct {
	device     Device
	sampleRate int
	blockSize  int
	log        *slog.Logger

	stream pcmStream
	buf    []int16

	mu      sync.Mutex
	err     error
	started bool
	done    chan struct{}
}

// NewCapture opens an input stream on the selected device. A zero sample
// rate falls back to the device's default rate.
func NewCapture(device Device, sampleRate, blockSize int, log *slog.Logger) (*Capture, error) {
	if sampleRate == 0 {
		sampleRate = int(device.DefaultSampleRate)
		log.Info("using device default sample rate", slog.Int("sample_rate", sampleRate))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate audio devices: %w", err)
	}
	if device.Index < 0 || device.Index >= len(infos) {
		return nil, fmt.Errorf("device index %d out of range", device.Index)
	}
	info := infos[device.Index]

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = blockSize

	buf := make([]int16, blockSize)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream on %q: %w", device.Name, err)
	}

	return &Capture{
		device:     device,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		log:        log,
		stream:     stream,
		buf:        buf,
		done:       make(chan struct{}),
	}, nil
}

func (c *Capture) SampleRate() int {
	return c.sampleRate
}

// Start begins reading blocks from the device. The channel closes on context
// cancellation or on a stream read failure.
func (c *Capture) Start(ctx context.Context) (<-chan []byte, error) {
	if err := c.stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	out := make(chan []byte, 4)
	go func() {
		defer close(out)
		defer close(c.done)
		for {
			if ctx.Err() != nil {
				return
			}
			if err := c.stream.Read(); err != nil {
				// Overflow means the host dropped samples while we were
				// busy; keep going with whatever landed in the buffer.
				if !errors.Is(err, portaudio.InputOverflowed) {
					c.setErr(fmt.Errorf("read input stream: %w", err))
					return
				}
				c.log.Warn("audio input overflow", slog.String("device", c.device.Name))
			}

			block := make([]byte, len(c.buf)*BytesPerSample)
			for i, s := range c.buf {
				binary.LittleEndian.PutUint16(block[i*2:], uint16(s))
			}

			select {
			case out <- block:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Capture) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close stops and releases the stream. Safe after the read loop exited.
func (c *Capture) Close() error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		// The stream never ran; there is nothing to stop.
		return c.stream.Close()
	}
	<-c.done
	if err := c.stream.Stop(); err != nil {
		c.stream.Close()
		return fmt.Errorf("stop input stream: %w", err)
	}
	return c.stream.Close()
}

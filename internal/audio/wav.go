package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WritePCM encodes int16 little-endian PCM as a 16-bit WAV file.
func WritePCM(file *os.File, pcm []byte, sampleRate, channels int) error {
	if len(pcm)%BytesPerSample != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	buffer := &gaudio.IntBuffer{Format: &gaudio.Format{NumChannels: channels, SampleRate: sampleRate}}
	samples := make([]int, len(pcm)/BytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer.Data = samples

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// Recorder appends captured PCM blocks to a WAV file.
type Recorder struct {
	file *os.File
	enc  *wav.Encoder
}

// NewRecorder creates the target file and prepares a 16-bit encoder.
func NewRecorder(path string, sampleRate, channels int) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}
	return &Recorder{
		file: file,
		enc:  wav.NewEncoder(file, sampleRate, 16, channels, 1),
	}, nil
}

// Append writes one PCM block to the recording.
func (r *Recorder) Append(pcm []byte) error {
	if len(pcm)%BytesPerSample != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	samples := make([]int, len(pcm)/BytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: r.enc.NumChans, SampleRate: r.enc.SampleRate},
		Data:   samples,
	}
	if err := r.enc.Write(buffer); err != nil {
		return fmt.Errorf("append to recording: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	if err := r.enc.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return r.file.Close()
}

// FileSource streams a 16-bit mono PCM WAV file as capture-sized blocks,
// letting the pipeline transcribe recordings instead of the microphone.
type FileSource struct {
	file       *os.File
	dec        *wav.Decoder
	sampleRate int
	blockSize  int
	err        error
}

// NewFileSource opens and validates a WAV file. Only 16-bit mono input is
// accepted; anything else is rejected rather than resampled.
func NewFileSource(path string, blockSize int) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav file: %w", err)
	}

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	dec.ReadInfo()
	if dec.BitDepth != 16 {
		file.Close()
		return nil, fmt.Errorf("%s: expected 16-bit pcm, got %d-bit", path, dec.BitDepth)
	}
	if dec.NumChans != 1 {
		file.Close()
		return nil, fmt.Errorf("%s: expected mono audio, got %d channels", path, dec.NumChans)
	}

	return &FileSource{
		file:       file,
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		blockSize:  blockSize,
	}, nil
}

func (f *FileSource) SampleRate() int {
	return f.sampleRate
}

func (f *FileSource) Start(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte, 4)
	go func() {
		defer close(out)
		buf := &gaudio.IntBuffer{
			Format: &gaudio.Format{NumChannels: 1, SampleRate: f.sampleRate},
			Data:   make([]int, f.blockSize),
		}
		for {
			if ctx.Err() != nil {
				return
			}
			n, err := f.dec.PCMBuffer(buf)
			if err != nil {
				f.err = fmt.Errorf("decode wav: %w", err)
				return
			}
			if n == 0 {
				return
			}
			block := make([]byte, n*BytesPerSample)
			for i := 0; i < n; i++ {
				binary.LittleEndian.PutUint16(block[i*2:], uint16(int16(buf.Data[i])))
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

func (f *FileSource) Err() error {
	return f.err
}

func (f *FileSource) Close() error {
	return f.file.Close()
}

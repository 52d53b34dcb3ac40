package decoder

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// wavSource decodes PCM WAV via go-audio/wav, converting whatever source bit
// depth the file carries into float32 in [-1, 1].
type wavSource struct {
	file       *os.File
	dec        *wav.Decoder
	sampleRate int
	channels   int
	bitDepth   int
	pcmStart    int64
	totalFrames int64
	pos         int64
}

func newWAVSource(f *os.File) (*wavSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	frameBytes := int64(channels) * int64(bitDepth) / 8
	totalFrames := int64(-1)
	if frameBytes > 0 {
		totalFrames = dec.PCMLen() / frameBytes
	}

	return &wavSource{
		file:        f,
		dec:         dec,
		sampleRate:  int(dec.SampleRate),
		channels:    channels,
		bitDepth:    bitDepth,
		pcmStart:    pcmStart,
		totalFrames: totalFrames,
	}, nil
}

const wavChunkFrames = 4096

func (w *wavSource) ReadFrames(dst []float32) (int, error) {
	requestedFrames := len(dst) / w.channels
	if requestedFrames == 0 {
		return 0, io.EOF
	}
	if w.totalFrames >= 0 {
		remaining := w.totalFrames - w.pos
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(requestedFrames) > remaining {
			requestedFrames = int(remaining)
		}
	}

	bytesPerSample := w.bitDepth / 8
	raw := make([]byte, requestedFrames*w.channels*bytesPerSample)
	n, err := io.ReadFull(w.file, raw)
	if n == 0 {
		if err != nil {
			return 0, io.EOF
		}
	}
	samplesRead := n / bytesPerSample
	framesRead := samplesRead / w.channels

	for i := 0; i < framesRead*w.channels; i++ {
		dst[i] = decodePCMSample(raw[i*bytesPerSample:], w.bitDepth)
	}
	w.pos += int64(framesRead)

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if framesRead == 0 && err == nil {
		err = io.EOF
	}
	return framesRead, err
}

// decodePCMSample reads one little-endian PCM sample of the given bit depth
// and returns it normalized to [-1, 1].
func decodePCMSample(b []byte, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return (float32(b[0]) - 128) / 128.0
	case 16:
		s := int16(uint16(b[0]) | uint16(b[1])<<8)
		return float32(s) / 32768.0
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float32(v) / 8388608.0
	case 32:
		v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		return float32(v) / 2147483648.0
	default:
		return 0
	}
}

func (w *wavSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if w.totalFrames >= 0 && frame > w.totalFrames {
		frame = w.totalFrames
	}
	bytesPerFrame := int64(w.channels) * int64(w.bitDepth) / 8
	if _, err := w.file.Seek(w.pcmStart+frame*bytesPerFrame, io.SeekStart); err != nil {
		return err
	}
	w.pos = frame
	return nil
}

func (w *wavSource) SampleRate() int    { return w.sampleRate }
func (w *wavSource) Channels() int      { return w.channels }
func (w *wavSource) TotalFrames() int64 { return w.totalFrames }
func (w *wavSource) Close() error       { return w.file.Close() }

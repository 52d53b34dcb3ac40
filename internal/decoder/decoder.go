// Package decoder implements the Decoder façade (C1): open a file, expose
// sample rate/channels/duration/metadata/cover art, and produce interleaved
// f32 PCM on demand with absolute-time seek.
package decoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Status is the outcome of a write_to_buffer call.
type Status int

const (
	StatusOK Status = iota
	StatusEndOfFile
	StatusError
)

// Sentinel errors returned by Open; callers branch on these to decide how
// to treat a song (transient on-screen message vs. treated as end-of-file).
var (
	ErrFileError        = errors.New("decoder: file error")
	ErrFormatUnsupported = errors.New("decoder: unsupported format")
	ErrDecoder           = errors.New("decoder: decode error")
)

// sampleSource is implemented by every format-specific backend. It always
// produces interleaved float32 PCM in the source's native sample rate and
// channel count — no rate resampling happens here (the spec's Non-goals
// reserve that for the backend at device-config time); only channel-count
// adaptation (mono<->stereo) happens in Decoder.WriteToBuffer.
type sampleSource interface {
	// ReadFrames decodes up to len(dst)/channels native frames into dst,
	// interleaved, channels-per-frame wide. Returns frames written and
	// io.EOF when the source is exhausted (possibly with frames > 0).
	ReadFrames(dst []float32) (frames int, err error)
	// SeekFrame seeks to the given native frame index.
	SeekFrame(frame int64) error
	SampleRate() int
	Channels() int
	TotalFrames() int64 // -1 if unknown (e.g. some streams)
	Close() error
}

// Image is a decoded cover picture, or the NONE format when a file carries
// no embedded art.
type Image struct {
	Pixels []byte
	Width  int
	Height int
	Format PixelFormat
}

type PixelFormat int

const (
	FormatNone PixelFormat = iota
	FormatRGB8
	FormatRGBA8Premultiplied
	FormatRGBA8Straight
)

// Decoder is the C1 façade. Not safe for concurrent use by multiple
// goroutines except where documented (GetCurrentMs/GetTotalMs/etc. are pure
// accessors safe to read from another goroutine holding the caller's own
// lock — the decode pump and control plane serialize access via an external
// mutex per §5, exactly like climp's own single-owner access pattern).
type Decoder struct {
	path string
	src  sampleSource

	nativeRate     int
	nativeChannels int
	totalFrames    int64
	curFrame       int64

	metaOnce sync.Once
	meta     Metadata
	coverOnce sync.Once
	cover     Image
}

// Open opens path, detects its format by extension, and positions the
// decoder at the start of the file.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileError, err)
	}

	src, err := newSampleSource(f)
	if err != nil {
		f.Close()
		if errors.Is(err, ErrFormatUnsupported) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecoder, err)
	}

	return &Decoder{
		path:           path,
		src:            src,
		nativeRate:     src.SampleRate(),
		nativeChannels: src.Channels(),
		totalFrames:    src.TotalFrames(),
	}, nil
}

func newSampleSource(f *os.File) (sampleSource, error) {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3":
		return newMP3Source(f)
	case ".wav":
		return newWAVSource(f)
	case ".flac":
		return newFLACSource(f)
	case ".ogg", ".opus":
		return newOGGSource(f)
	case ".aac", ".m4a", ".m4b":
		return newAACSource(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrFormatUnsupported, ext)
	}
}

// Close releases the underlying file and decode state. Idempotent.
func (d *Decoder) Close() error {
	if d.src == nil {
		return nil
	}
	err := d.src.Close()
	d.src = nil
	return err
}

// WriteToBuffer decodes into dst, writing interleaved samples in
// channelCount-tuples. If the native channel count differs from
// channelCount, a mono source is copied to every requested channel and a
// mono target gets the average of all native channels; otherwise output
// channel c takes native channel c mod the native count, so surplus native
// channels are dropped rather than mixed in. Returns StatusEndOfFile once
// the source is exhausted, even if
// samplesWritten > 0.
func (d *Decoder) WriteToBuffer(dst []float32, requestedFrames, channelCount int) (samplesWritten int, status Status) {
	if d.src == nil {
		return 0, StatusError
	}
	if channelCount <= 0 {
		return 0, StatusError
	}

	nativeCh := d.nativeChannels
	need := requestedFrames * channelCount
	if need > len(dst) {
		need = len(dst) - len(dst)%channelCount
	}

	if nativeCh == channelCount {
		frames, err := d.src.ReadFrames(dst[:need])
		d.curFrame += int64(frames)
		n := frames * channelCount
		if err != nil {
			if err == io.EOF {
				return n, StatusEndOfFile
			}
			return n, StatusError
		}
		return n, StatusOK
	}

	// Channel-layout adaptation only — no rate resampling here.
	nativeNeed := (need / channelCount) * nativeCh
	tmp := make([]float32, nativeNeed)
	frames, err := d.src.ReadFrames(tmp)
	d.curFrame += int64(frames)
	tmp = tmp[:frames*nativeCh]
	n := remapChannels(tmp, nativeCh, dst, channelCount)

	if err != nil {
		if err == io.EOF {
			return n, StatusEndOfFile
		}
		return n, StatusError
	}
	return n, StatusOK
}

// remapChannels converts an interleaved native-channel buffer into an
// interleaved channelCount buffer, writing into dst and returning the
// number of samples written.
func remapChannels(src []float32, nativeCh int, dst []float32, channelCount int) int {
	frames := 0
	if nativeCh > 0 {
		frames = len(src) / nativeCh
	}
	written := 0
	for f := 0; f < frames; f++ {
		frame := src[f*nativeCh : f*nativeCh+nativeCh]
		switch {
		case nativeCh == 1:
			for c := 0; c < channelCount; c++ {
				dst[f*channelCount+c] = frame[0]
			}
		case channelCount == 1:
			var sum float32
			for _, s := range frame {
				sum += s
			}
			dst[f] = sum / float32(nativeCh)
		default:
			for c := 0; c < channelCount; c++ {
				dst[f*channelCount+c] = frame[c%nativeCh]
			}
		}
		written += channelCount
	}
	return written
}

// Seek positions the decoder so that subsequent WriteToBuffer calls begin
// producing samples at approximately targetMs. Precision is best-effort,
// within one decoder frame of the request.
func (d *Decoder) Seek(targetMs int64) error {
	if d.src == nil {
		return ErrDecoder
	}
	frame := int64(float64(targetMs) / 1000.0 * float64(d.nativeRate))
	if frame < 0 {
		frame = 0
	}
	if d.totalFrames >= 0 && frame > d.totalFrames {
		frame = d.totalFrames
	}
	if err := d.src.SeekFrame(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrDecoder, err)
	}
	d.curFrame = frame
	return nil
}

func (d *Decoder) GetCurrentMs() int64 {
	if d.nativeRate <= 0 {
		return 0
	}
	return int64(float64(d.curFrame) / float64(d.nativeRate) * 1000.0)
}

func (d *Decoder) GetTotalMs() int64 {
	if d.nativeRate <= 0 || d.totalFrames < 0 {
		return 0
	}
	return int64(float64(d.totalFrames) / float64(d.nativeRate) * 1000.0)
}

func (d *Decoder) GetSampleRate() int { return d.nativeRate }
func (d *Decoder) GetChannels() int   { return d.nativeChannels }
func (d *Decoder) Path() string       { return d.path }

// durationFromFrames converts a native frame count at rate into a
// time.Duration; nothing in the repository calls it at present.
func durationFromFrames(frames int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(rate) * float64(time.Second))
}

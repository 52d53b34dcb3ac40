package decoder

import (
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// flacSource decodes FLAC via mewkiz/flac, converting each frame's
// per-channel int32 subframe samples into interleaved float32.
type flacSource struct {
	file        *os.File
	stream      *flac.Stream
	channels    int
	bps         int
	sampleRate  int
	totalFrames int64
	pos         int64

	pending []float32 // leftover samples from a frame larger than dst
	picture *meta.Picture
}

func newFLACSource(f *os.File) (*flacSource, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, err
	}

	var pic *meta.Picture
	for _, block := range stream.Metadata {
		if block.Header.Type == meta.TypePicture {
			if p, ok := block.Body.(*meta.Picture); ok {
				pic = p
			}
		}
	}

	info := stream.Info
	return &flacSource{
		file:        f,
		stream:      stream,
		channels:    int(info.NChannels),
		bps:         int(info.BitsPerSample),
		sampleRate:  int(info.SampleRate),
		totalFrames: int64(info.NSamples),
		picture:     pic,
	}, nil
}

func (d *flacSource) ReadFrames(dst []float32) (int, error) {
	written := 0

	for written < len(dst) {
		if len(d.pending) > 0 {
			n := copy(dst[written:], d.pending)
			d.pending = d.pending[n:]
			written += n
			continue
		}

		frame, err := d.stream.ParseNext()
		if err != nil {
			if written > 0 {
				return written / d.channels, io.EOF
			}
			return 0, io.EOF
		}

		nSamples := int(frame.Subframes[0].NSamples)
		maxVal := float32(int64(1) << uint(d.bps-1))
		interleaved := make([]float32, nSamples*d.channels)
		for i := 0; i < nSamples; i++ {
			for ch := 0; ch < d.channels; ch++ {
				interleaved[i*d.channels+ch] = float32(frame.Subframes[ch].Samples[i]) / maxVal
			}
		}
		d.pos += int64(nSamples)

		n := copy(dst[written:], interleaved)
		written += n
		if n < len(interleaved) {
			d.pending = interleaved[n:]
		}
	}
	return written / d.channels, nil
}

func (d *flacSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if _, err := d.stream.Seek(uint64(frame)); err != nil {
		return err
	}
	d.pos = frame
	d.pending = nil
	return nil
}

func (d *flacSource) SampleRate() int    { return d.sampleRate }
func (d *flacSource) Channels() int      { return d.channels }
func (d *flacSource) TotalFrames() int64 { return d.totalFrames }
func (d *flacSource) Close() error       { return d.stream.Close() }

// Picture returns the embedded FLAC PICTURE metadata block, or nil if the
// file carries none.
func (d *flacSource) Picture() *meta.Picture { return d.picture }

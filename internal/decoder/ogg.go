package decoder

import (
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// oggSource decodes Ogg Vorbis through jfreymuth/oggvorbis, which already
// emits float32 samples in [-1, 1] — no int16 round-trip needed. ".opus"
// files are routed here too, but oggvorbis reads only Vorbis payloads, so
// an Ogg Opus stream fails to open.
type oggSource struct {
	file       *os.File
	reader     *oggvorbis.Reader
	channels   int
	sampleRate int
	total      int64
}

func newOGGSource(f *os.File) (*oggSource, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	return &oggSource{
		file:       f,
		reader:     reader,
		channels:   reader.Channels(),
		sampleRate: reader.SampleRate(),
		total:      reader.Length(),
	}, nil
}

func (d *oggSource) ReadFrames(dst []float32) (int, error) {
	n, err := d.reader.Read(dst)
	return n / d.channels, err
}

func (d *oggSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	return d.reader.SetPosition(frame)
}

func (d *oggSource) SampleRate() int    { return d.sampleRate }
func (d *oggSource) Channels() int      { return d.channels }
func (d *oggSource) TotalFrames() int64 { return d.total }
func (d *oggSource) Close() error       { return d.file.Close() }

package decoder

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/olivier-w/climp-aac-decoder/aacfile"
)

// aacSource decodes AAC-LC, bare ADTS (.aac) or MP4-boxed (.m4a/.m4b),
// through the bundled aacfile package, converting its 16-bit PCM stream
// into float32.
type aacSource struct {
	f      *os.File
	reader *aacfile.Reader
	tmp    []byte
}

func newAACSource(f *os.File) (*aacSource, error) {
	reader, err := aacfile.OpenFile(f)
	if err != nil {
		return nil, err
	}
	return &aacSource{f: f, reader: reader}, nil
}

func (a *aacSource) ReadFrames(dst []float32) (int, error) {
	channels := a.reader.ChannelCount()
	frames := len(dst) / channels
	need := frames * channels * 2
	if cap(a.tmp) < need {
		a.tmp = make([]byte, need)
	}
	buf := a.tmp[:need]

	n, err := io.ReadFull(a.reader, buf)
	samples := n / 2
	for i := 0; i < samples; i++ {
		s := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		dst[i] = float32(s) / 32768.0
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	framesRead := samples / channels
	if framesRead == 0 && err == nil {
		err = io.EOF
	}
	return framesRead, err
}

func (a *aacSource) SeekFrame(frame int64) error {
	bytesPerFrame := int64(a.reader.ChannelCount()) * 2
	_, err := a.reader.Seek(frame*bytesPerFrame, io.SeekStart)
	return err
}

func (a *aacSource) SampleRate() int { return a.reader.SampleRate() }
func (a *aacSource) Channels() int   { return a.reader.ChannelCount() }
func (a *aacSource) TotalFrames() int64 {
	ch := int64(a.reader.ChannelCount())
	if ch == 0 {
		return -1
	}
	return a.reader.Length() / (ch * 2)
}
func (a *aacSource) Close() error { return a.reader.Close() }

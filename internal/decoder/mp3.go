package decoder

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// mp3Source decodes MP3 via go-mp3, which always emits 16-bit stereo PCM
// regardless of the source's native channel layout. LAME encoder
// delay/padding is trimmed using the Xing header so total_samples and seek
// line up with the audible portion of the track.
type mp3Source struct {
	dec    *mp3.Decoder
	start  int64 // native frames trimmed from the front (LAME encoder delay)
	length int64 // native frames after trim, -1 if unknown
	pos    int64 // native frames read so far (post-trim)

	tmp []byte // reusable int16 read buffer
}

func newMP3Source(f *os.File) (*mp3Source, error) {
	startSamples, endSamples, err := mp3GaplessTrim(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}

	const bytesPerFrame = 4 // go-mp3 output is always 16-bit stereo: 2 ch * 2 bytes
	lengthBytes := dec.Length()
	length := int64(-1)
	if lengthBytes >= 0 {
		totalFrames := lengthBytes / bytesPerFrame
		if startSamples > totalFrames {
			startSamples = totalFrames
		}
		if endSamples > totalFrames-startSamples {
			endSamples = totalFrames - startSamples
		}
		length = totalFrames - startSamples - endSamples
	}

	m := &mp3Source{dec: dec, start: startSamples, length: length}
	if startSamples > 0 {
		if _, err := dec.Seek(startSamples*bytesPerFrame, io.SeekStart); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *mp3Source) ReadFrames(dst []float32) (int, error) {
	frames := len(dst) / 2
	if m.length >= 0 {
		remaining := m.length - m.pos
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(frames) > remaining {
			frames = int(remaining)
		}
	}
	if frames == 0 {
		return 0, io.EOF
	}

	need := frames * 4
	if cap(m.tmp) < need {
		m.tmp = make([]byte, need)
	}
	buf := m.tmp[:need]

	n, err := io.ReadFull(m.dec, buf)
	framesRead := n / 4
	for i := 0; i < framesRead; i++ {
		l := int16(binary.LittleEndian.Uint16(buf[i*4:]))
		r := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
		dst[i*2] = float32(l) / 32768.0
		dst[i*2+1] = float32(r) / 32768.0
	}
	m.pos += int64(framesRead)

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if framesRead == 0 && err == nil {
		err = io.EOF
	}
	return framesRead, err
}

func (m *mp3Source) SeekFrame(frame int64) error {
	if m.length >= 0 && frame > m.length {
		frame = m.length
	}
	if frame < 0 {
		frame = 0
	}
	if _, err := m.dec.Seek((m.start+frame)*4, io.SeekStart); err != nil {
		return err
	}
	m.pos = frame
	return nil
}

func (m *mp3Source) SampleRate() int    { return m.dec.SampleRate() }
func (m *mp3Source) Channels() int      { return 2 }
func (m *mp3Source) TotalFrames() int64 { return m.length }
func (m *mp3Source) Close() error       { return nil }

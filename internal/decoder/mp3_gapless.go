package decoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// lameDecoderDelayFrames is the fixed decoder delay every LAME-produced
// bitstream carries in addition to whatever encoder delay/padding the Xing
// header reports, independent of bitrate or encoder version.
const lameDecoderDelayFrames = 529

// mp3GaplessTrim scans f's Xing/LAME header (without disturbing f's current
// read position) and returns the leading/trailing native-frame counts that
// must be trimmed from the decoded stream for gapless playback. Any parse
// failure — no ID3 tag, no Xing frame, no LAME extension — is reported as
// (0, 0, nil): a file with no gapless metadata plays with its full decoded
// length, never an error.
func mp3GaplessTrim(f *os.File) (leadFrames, trailFrames int64, err error) {
	resume, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _, _ = f.Seek(resume, io.SeekStart) }()

	frameOffset, err := mp3FirstFrameOffset(f)
	if err != nil {
		return 0, 0, nil
	}
	if _, err := f.Seek(frameOffset, io.SeekStart); err != nil {
		return 0, 0, err
	}

	var rawHeader [4]byte
	if _, err := io.ReadFull(f, rawHeader[:]); err != nil {
		return 0, 0, nil
	}
	header, err := parseMP3FrameHeader(rawHeader)
	if err != nil {
		return 0, 0, nil
	}

	xingOffset := 4 + header.crcBytes + header.sideInfoBytes
	if _, err := f.Seek(frameOffset+int64(xingOffset), io.SeekStart); err != nil {
		return 0, 0, err
	}

	var tail [256]byte
	n, err := io.ReadFull(f, tail[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, 0, err
	}

	lead, trail, ok := parseXingLAMEExtension(tail[:n])
	if !ok {
		return 0, 0, nil
	}
	return lead, trail, nil
}

// mp3FirstFrameOffset returns the byte offset of the first MPEG frame,
// skipping an ID3v2 tag (and its footer, if present) when the file opens
// with one.
func mp3FirstFrameOffset(f *os.File) (int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	var id3 [10]byte
	n, err := io.ReadFull(f, id3[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	if n < 10 || !bytes.Equal(id3[:3], []byte("ID3")) {
		return 0, nil
	}

	size := synchsafeUint32(id3[6:10])
	footer := 0
	if id3[5]&0x10 != 0 {
		footer = 10
	}
	return int64(10 + size + footer), nil
}

func synchsafeUint32(b []byte) int {
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

// mp3FrameHeader is the subset of an MPEG audio frame header needed to
// locate the Xing/Info tag that immediately follows it.
type mp3FrameHeader struct {
	crcBytes      int
	sideInfoBytes int
}

func parseMP3FrameHeader(b [4]byte) (mp3FrameHeader, error) {
	h := binary.BigEndian.Uint32(b[:])
	if h>>21 != 0x7ff {
		return mp3FrameHeader{}, fmt.Errorf("decoder: invalid mp3 frame sync")
	}

	versionID := (h >> 19) & 0x3
	layer := (h >> 17) & 0x3
	protectionBit := (h >> 16) & 0x1
	channelMode := (h >> 6) & 0x3

	if layer != 0x1 {
		return mp3FrameHeader{}, fmt.Errorf("decoder: not a layer III frame")
	}
	if versionID == 0x1 {
		return mp3FrameHeader{}, fmt.Errorf("decoder: reserved mpeg version")
	}

	isMPEG1 := versionID == 0x3
	isMono := channelMode == 0x3

	sideInfoBytes := 17
	switch {
	case isMPEG1 && isMono:
		sideInfoBytes = 17
	case isMPEG1:
		sideInfoBytes = 32
	case isMono:
		sideInfoBytes = 9
	}

	crcBytes := 0
	if protectionBit == 0 {
		crcBytes = 2
	}

	return mp3FrameHeader{crcBytes: crcBytes, sideInfoBytes: sideInfoBytes}, nil
}

// parseXingLAMEExtension reads the LAME delay/padding fields out of a
// Xing/Info tag buffer (the tag proper, starting at "Xing"/"Info"). Returns
// ok=false when b carries no Xing tag or no LAME extension.
func parseXingLAMEExtension(b []byte) (leadFrames, trailFrames int64, ok bool) {
	if len(b) < 8 {
		return 0, 0, false
	}
	tag := string(b[:4])
	if tag != "Xing" && tag != "Info" {
		return 0, 0, false
	}

	flags := binary.BigEndian.Uint32(b[4:8])
	offset := 8
	if flags&0x1 != 0 {
		offset += 4 // frame count field
	}
	if flags&0x2 != 0 {
		offset += 4 // byte count field
	}
	if flags&0x4 != 0 {
		offset += 100 // TOC table
	}
	if flags&0x8 != 0 {
		offset += 4 // quality indicator
	}
	if len(b) < offset+24 {
		return 0, 0, false
	}

	delayPadding := b[offset+21 : offset+24]
	encDelay := int(delayPadding[0])<<4 | int(delayPadding[1]>>4)
	encPadding := int(delayPadding[1]&0x0f)<<8 | int(delayPadding[2])
	if encDelay == 0 && encPadding == 0 {
		return 0, 0, false
	}

	leadFrames = int64(encDelay + lameDecoderDelayFrames)
	trailFrames = int64(encPadding - lameDecoderDelayFrames)
	if trailFrames < 0 {
		trailFrames = 0
	}
	return leadFrames, trailFrames, true
}

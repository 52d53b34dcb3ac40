package decoder

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseMP3FrameHeader(t *testing.T) {
	// MPEG1 Layer III, no CRC, joint-stereo — a typical 128kbps/44.1kHz frame.
	header, err := parseMP3FrameHeader([4]byte{0xFF, 0xFB, 0x90, 0x44})
	if err != nil {
		t.Fatalf("parseMP3FrameHeader() error = %v", err)
	}
	if header.crcBytes != 0 || header.sideInfoBytes != 32 {
		t.Fatalf("header = %+v, want {crcBytes:0 sideInfoBytes:32}", header)
	}
}

func TestParseMP3FrameHeaderRejectsBadSync(t *testing.T) {
	if _, err := parseMP3FrameHeader([4]byte{0x00, 0x00, 0x00, 0x00}); err == nil {
		t.Fatal("expected an error for a non-frame sync pattern")
	}
}

func TestParseXingLAMEExtension(t *testing.T) {
	buf := make([]byte, 32)
	copy(buf[:4], "Xing")
	// flags = 0: no frame-count/byte-count/TOC/quality fields, so the LAME
	// extension starts right at offset 8.
	buf[4], buf[5], buf[6], buf[7] = 0, 0, 0, 0
	// encoder delay 576, padding 1152, packed into the 3 nibble-aligned
	// bytes at offset+21..offset+24, per the LAME header layout.
	buf[8+21] = 0x24
	buf[8+22] = 0x04
	buf[8+23] = 0x80

	lead, trail, ok := parseXingLAMEExtension(buf)
	if !ok {
		t.Fatal("expected ok = true")
	}
	if lead != 1105 {
		t.Fatalf("lead = %d, want 1105", lead)
	}
	if trail != 623 {
		t.Fatalf("trail = %d, want 623", trail)
	}
}

func TestParseXingLAMEExtensionRejectsMissingTag(t *testing.T) {
	buf := make([]byte, 32)
	copy(buf[:4], "LAME")
	if _, _, ok := parseXingLAMEExtension(buf); ok {
		t.Fatal("expected ok = false for a non-Xing/Info tag")
	}
}

func TestParseXingLAMEExtensionRejectsShortBuffer(t *testing.T) {
	if _, _, ok := parseXingLAMEExtension([]byte("Xing")); ok {
		t.Fatal("expected ok = false for a too-short buffer")
	}
}

func TestMP3FirstFrameOffsetSkipsID3Tag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.mp3")
	// ID3v2.3 header, no footer, a 50-byte tag body.
	contents := []byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, 50}
	contents = append(contents, make([]byte, 50)...)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	offset, err := mp3FirstFrameOffset(f)
	if err != nil {
		t.Fatalf("mp3FirstFrameOffset() error = %v", err)
	}
	if offset != 60 {
		t.Fatalf("offset = %d, want 60", offset)
	}
}

func TestMP3FirstFrameOffsetWithoutID3Tag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untagged.mp3")
	if err := os.WriteFile(path, []byte{0xFF, 0xFB, 0x90, 0x44}, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	offset, err := mp3FirstFrameOffset(f)
	if err != nil {
		t.Fatalf("mp3FirstFrameOffset() error = %v", err)
	}
	if offset != 0 {
		t.Fatalf("offset = %d, want 0", offset)
	}
}

func TestMP3GaplessTrimFullPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gapless.mp3")

	var buf []byte
	// ID3v2.3 header, zero-length tag: first frame starts right at byte 10.
	buf = append(buf, 'I', 'D', '3', 3, 0, 0, 0, 0, 0, 0)
	// MPEG1 Layer III frame header (no CRC -> 32 bytes of side info follow).
	buf = append(buf, 0xFF, 0xFB, 0x90, 0x44)
	buf = append(buf, make([]byte, 32)...)
	// Xing tag with an embedded LAME delay/padding extension, as above.
	xing := make([]byte, 32)
	copy(xing[:4], "Xing")
	xing[8+21] = 0x24
	xing[8+22] = 0x04
	xing[8+23] = 0x80
	buf = append(buf, xing...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	lead, trail, err := mp3GaplessTrim(f)
	if err != nil {
		t.Fatalf("mp3GaplessTrim() error = %v", err)
	}
	if lead != 1105 || trail != 623 {
		t.Fatalf("trim = (%d, %d), want (1105, 623)", lead, trail)
	}

	// mp3GaplessTrim must restore the file's original read position.
	if pos, err := f.Seek(0, io.SeekCurrent); err != nil || pos != 0 {
		t.Fatalf("post-call position = (%d, %v), want (0, nil)", pos, err)
	}
}

func TestMP3GaplessTrimAbsentIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-gapless.mp3")
	if err := os.WriteFile(path, []byte{0xFF, 0xFB, 0x90, 0x44, 0, 0, 0, 0}, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	lead, trail, err := mp3GaplessTrim(f)
	if err != nil {
		t.Fatalf("mp3GaplessTrim() error = %v", err)
	}
	if lead != 0 || trail != 0 {
		t.Fatalf("trim = (%d, %d), want (0, 0)", lead, trail)
	}
}

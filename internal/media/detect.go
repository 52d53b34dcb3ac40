package media

import "strings"

// audioExts is the accepted positional-argument suffix set from §6,
// independent of which decoder backend (if any) actually opens the file —
// the Decoder façade is the thing that decides a given suffix is playable.
var audioExts = map[string]bool{
	".mp2":  true,
	".mp3":  true,
	".mp4":  true,
	".m4a":  true,
	".m4b":  true,
	".fla":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".umx":  true,
	".s3m":  true,
	".wav":  true,
	".caf":  true,
	".aif":  true,
	".webm": true,
	".mkv":  true,
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// IsSupportedExt returns true if the extension is a supported playable media format.
func IsSupportedExt(ext string) bool {
	return audioExts[strings.ToLower(ext)]
}

// IsPlaylistExt returns true if the extension is a supported playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of supported playable media formats.
func SupportedExtsList() string {
	return ".mp2, .mp3, .mp4, .m4a, .m4b, .fla, .flac, .ogg, .opus, .umx, .s3m, .wav, .caf, .aif, .webm, .mkv"
}

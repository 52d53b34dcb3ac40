package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/olivier-w/climp/internal/applog"
	"github.com/olivier-w/climp/internal/config"
	"github.com/olivier-w/climp/internal/control"
	"github.com/olivier-w/climp/internal/media"
	"github.com/olivier-w/climp/internal/mixer"
	"github.com/olivier-w/climp/internal/playlist"
	"github.com/olivier-w/climp/internal/remote"
	"github.com/olivier-w/climp/internal/ringbuf"
	"github.com/olivier-w/climp/internal/ui"
)

func main() {
	volume := pflag.Float64("volume", -1, "initial volume 0.0-1.0 (overrides config)")
	noImage := pflag.Bool("no-image", false, "disable embedded cover-art rendering")
	uiName := pflag.String("ui", "", "UI frontend name (overrides config)")
	mixerName := pflag.String("mixer", "", "audio backend name (overrides config)")
	configPath := pflag.StringP("config", "c", "", "path to a config file (default: search standard locations)")
	debug := pflag.Bool("debug", false, "enable debug logging")
	noRemote := pflag.Bool("no-remote", false, "disable the platform remote-control adapter")
	pflag.Parse()

	applog.Init(nil, *debug)
	log := applog.With("component", "main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}
	if *volume >= 0 {
		cfg.Audio.DefaultVolume = *volume
	}
	if *uiName != "" {
		cfg.UI.Name = *uiName
	}
	if *mixerName != "" {
		cfg.Audio.Backend = *mixerName
	}
	if *noImage {
		cfg.UI.NoImage = true
	}
	if *noRemote {
		cfg.Remote.Enabled = false
	}

	paths, err := collectPaths(pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: climp [flags] <file>... (or pipe newline-separated paths on stdin)\nSupported formats: %s\n", media.SupportedExtsList())
		os.Exit(1)
	}

	songs := make([]playlist.Song, len(paths))
	for i, p := range paths {
		songs[i] = playlist.Song{
			FullPath:    p,
			DisplayName: strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)),
		}
	}

	backend, err := newBackend(cfg.Audio.Backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rb := ringbuf.New(cfg.Audio.BufferFrames)
	pl := playlist.New(songs)
	plane := control.New(backend, rb, cfg.Audio.LowWaterFrames, pl)

	if err := plane.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening audio device: %v\n", err)
		os.Exit(1)
	}
	defer plane.Quit()
	plane.SetVolume(cfg.Audio.DefaultVolume)

	var adapter remote.Adapter
	if cfg.Remote.Enabled {
		adapter = remote.New(plane)
		go adapter.Run()
		defer func() {
			if err := adapter.Close(); err != nil {
				log.Warn("closing remote adapter", "err", err)
			}
		}()
	}

	model := ui.New(plane, cfg.UI.NoImage)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newBackend resolves a config-provided backend name to a concrete Mixer
// Backend. "oto" is the only backend this engine ships (§1's device-driver
// details are out of scope); any other name is a configuration error rather
// than a silent fallback.
func newBackend(name string) (mixer.Backend, error) {
	switch name {
	case "", "oto":
		return mixer.NewOtoBackend(), nil
	default:
		return nil, fmt.Errorf("unknown mixer backend %q", name)
	}
}

// collectPaths resolves positional file/playlist/directory arguments
// (expanding .m3u/.m3u8/.pls entries via media.ParseLocalPlaylist, and
// directories via collectDirPaths) or, when none are given, reads
// newline-separated paths from stdin — climp's own single-file os.Args[1]
// argument became this engine's multi-file playlist surface.
func collectPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		return readPathsFromStdin()
	}

	var out []string
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			entries, err := collectDirPaths(arg)
			if err != nil {
				return nil, fmt.Errorf("reading directory %s: %w", arg, err)
			}
			out = append(out, entries...)
			continue
		}

		ext := strings.ToLower(filepath.Ext(arg))
		if media.IsPlaylistExt(ext) {
			entries, err := media.ParseLocalPlaylist(arg)
			if err != nil {
				return nil, fmt.Errorf("reading playlist %s: %w", arg, err)
			}
			for _, e := range entries {
				if err := validatePath(e); err != nil {
					return nil, err
				}
				out = append(out, e)
			}
			continue
		}
		if err := validatePath(arg); err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

// collectDirPaths lists dir's immediate entries (non-recursive — a single
// album or release folder, not an arbitrary library tree) and keeps only the
// ones media.FilterPlayableLocalPaths recognizes as playable, sorted so
// track order matches filesystem listing order.
func collectDirPaths(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	candidates := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		candidates = append(candidates, filepath.Join(dir, e.Name()))
	}
	return media.FilterPlayableLocalPaths(candidates), nil
}

func readPathsFromStdin() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, nil
	}

	var out []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := validatePath(line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return out, nil
}

func validatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: is a directory", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !media.IsSupportedExt(ext) {
		return fmt.Errorf("%s: unsupported format %s (supported: %s)", path, ext, media.SupportedExtsList())
	}
	return nil
}

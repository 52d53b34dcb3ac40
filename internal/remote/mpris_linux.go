//go:build linux

package remote

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/olivier-w/climp/internal/applog"
	"github.com/olivier-w/climp/internal/control"
	"github.com/olivier-w/climp/internal/mixer"
	"github.com/olivier-w/climp/internal/playlist"
)

const (
	busName        = "org.mpris.MediaPlayer2.climp"
	objectPath     = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootIface      = "org.mpris.MediaPlayer2"
	playerIface    = "org.mpris.MediaPlayer2.Player"
	reconnectDelay = 2 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// mprisAdapter is the Linux C7 implementation, grounded directly on
// go-musicfox's internal/remote_control MPRIS Player object (godbus/dbus/v5
// + godbus/dbus/v5/prop), generalized from that player's own method surface
// to this Control Plane's.
type mprisAdapter struct {
	plane *control.Plane

	stop chan struct{}
	done chan struct{}

	log *applog.Logger
}

func newPlatformAdapter(plane *control.Plane) Adapter {
	return &mprisAdapter{
		plane: plane,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   applog.With("component", "remote"),
	}
}

func (a *mprisAdapter) Close() error {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
	<-a.done
	return nil
}

// Run connects to the session bus and serves MPRIS2 requests until Close is
// called or the Control Plane quits, reconnecting on any bus failure per
// §4.7: log once, retry, leave the player core unaffected.
func (a *mprisAdapter) Run() {
	defer close(a.done)
	loggedFailure := false

	for {
		select {
		case <-a.stop:
			return
		case <-a.plane.Done():
			return
		default:
		}

		if err := a.serveOnce(); err != nil {
			if !loggedFailure {
				a.log.Warn("mpris bus unavailable, will keep retrying", "err", err)
				loggedFailure = true
			}
			select {
			case <-time.After(reconnectDelay):
			case <-a.stop:
				return
			case <-a.plane.Done():
				return
			}
			continue
		}
		loggedFailure = false
	}
}

func (a *mprisAdapter) serveOnce() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("remote: connect session bus: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("remote: request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("remote: bus name %s already owned", busName)
	}

	root := &rootObject{}
	player := &playerObject{plane: a.plane}

	if err := conn.Export(root, objectPath, rootIface); err != nil {
		return fmt.Errorf("remote: export root object: %w", err)
	}
	if err := conn.Export(player, objectPath, playerIface); err != nil {
		return fmt.Errorf("remote: export player object: %w", err)
	}

	propsSpec := prop.Map{
		rootIface:   rootProps(),
		playerIface: player.propSpec(),
	}
	props, err := prop.Export(conn, objectPath, propsSpec)
	if err != nil {
		return fmt.Errorf("remote: export properties: %w", err)
	}
	player.props = props

	node := &introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{Name: rootIface, Methods: introspect.Methods(root)},
			{Name: playerIface, Methods: introspect.Methods(player)},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("remote: export introspection: %w", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return nil
		case <-a.plane.Done():
			return nil
		case <-a.plane.Notifications(control.EventPlaybackStatusChanged):
			player.updatePlaybackStatus()
		case <-a.plane.Notifications(control.EventVolumeChanged):
			player.updateVolume()
		case <-a.plane.Notifications(control.EventLoopStatusChanged):
			player.updateLoopStatus()
		case <-a.plane.Notifications(control.EventMetadataChanged):
			player.updateMetadata()
		case <-a.plane.Notifications(control.EventSeeked):
			player.emitSeeked()
		case <-ticker.C:
			if conn.Connected() == false {
				return fmt.Errorf("remote: session bus connection lost")
			}
		}
	}
}

// rootObject implements org.mpris.MediaPlayer2's required methods; this
// player has no separate windowed UI to raise and no URI scheme support.
type rootObject struct{}

func (rootObject) Raise() *dbus.Error { return nil }
func (rootObject) Quit() *dbus.Error  { return nil }

func rootProps() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"CanQuit":             newProp(true, nil),
		"CanRaise":            newProp(false, nil),
		"HasTrackList":        newProp(false, nil),
		"Identity":            newProp("climp", nil),
		"SupportedUriSchemes": newProp([]string{}, nil),
		"SupportedMimeTypes":  newProp([]string{}, nil),
	}
}

// playerObject implements org.mpris.MediaPlayer2.Player, translating every
// method into a Control Plane command per §6's remote-control surface.
type playerObject struct {
	plane *control.Plane
	props *prop.Properties
}

func (p *playerObject) propSpec() map[string]*prop.Prop {
	status := playbackStatus(p.plane.GetPlaybackState())
	return map[string]*prop.Prop{
		"PlaybackStatus": newProp(status, nil),
		"LoopStatus":     newProp(loopStatus(p.plane.GetRepeatMode()), p.onLoopStatus),
		"Rate":           newProp(1.0, nil),
		"Shuffle":        newProp(p.plane.GetShuffle(), p.onShuffle),
		"Metadata":       newProp(metadataMap(p.plane.GetMetadataSnapshot()), nil),
		"Volume":         newProp(p.plane.GetVolume(), p.onVolume),
		"Position":       {Value: p.plane.GetCurrentMs() * 1000, Writable: false, Emit: prop.EmitFalse},
		"MinimumRate":    newProp(1.0, nil),
		"MaximumRate":    newProp(8.0, nil),
		"CanGoNext":      newProp(true, nil),
		"CanGoPrevious":  newProp(true, nil),
		"CanPlay":        newProp(true, nil),
		"CanPause":       newProp(true, nil),
		"CanSeek":        newProp(true, nil),
		"CanControl":     newProp(true, nil),
	}
}

func newProp(v interface{}, cb func(*prop.Change) *dbus.Error) *prop.Prop {
	return &prop.Prop{Value: v, Writable: cb != nil, Emit: prop.EmitTrue, Callback: cb}
}

func (p *playerObject) onVolume(c *prop.Change) *dbus.Error {
	p.plane.SetVolume(c.Value.(float64))
	return nil
}

func (p *playerObject) onLoopStatus(c *prop.Change) *dbus.Error {
	switch c.Value.(string) {
	case "Track":
		for p.plane.GetRepeatMode() != playlist.RepeatTrack {
			p.plane.CycleRepeat(true)
		}
	case "Playlist":
		for p.plane.GetRepeatMode() != playlist.RepeatPlaylist {
			p.plane.CycleRepeat(true)
		}
	default:
		for p.plane.GetRepeatMode() != playlist.RepeatNone {
			p.plane.CycleRepeat(true)
		}
	}
	return nil
}

func (p *playerObject) onShuffle(c *prop.Change) *dbus.Error {
	if c.Value.(bool) != p.plane.GetShuffle() {
		p.plane.ToggleShuffle()
	}
	return nil
}

func (p *playerObject) Next() *dbus.Error {
	_ = p.plane.Next()
	return nil
}

func (p *playerObject) Previous() *dbus.Error {
	_ = p.plane.Prev()
	return nil
}

func (p *playerObject) Pause() *dbus.Error {
	if p.plane.GetPlaybackState() == mixer.ModePlaying {
		p.plane.TogglePause()
	}
	return nil
}

func (p *playerObject) PlayPause() *dbus.Error {
	p.plane.TogglePause()
	return nil
}

func (p *playerObject) Play() *dbus.Error {
	if p.plane.GetPlaybackState() == mixer.ModePaused {
		p.plane.TogglePause()
	}
	return nil
}

func (p *playerObject) Stop() *dbus.Error {
	if p.plane.GetPlaybackState() == mixer.ModePlaying {
		p.plane.TogglePause()
	}
	return nil
}

// Seek offsets the current position by deltaUs microseconds.
func (p *playerObject) Seek(deltaUs int64) *dbus.Error {
	if err := p.plane.SeekRel(deltaUs / 1000); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// SetPosition seeks to absoluteUs, ignoring trackID (this player has no
// MPRIS tracklist, only the one currently-playing track).
func (p *playerObject) SetPosition(trackID dbus.ObjectPath, absoluteUs int64) *dbus.Error {
	if err := p.plane.SeekAbs(absoluteUs / 1000); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// OpenUri is explicitly ignored, per §6.
func (p *playerObject) OpenUri(uri string) *dbus.Error { return nil }

func (p *playerObject) updatePlaybackStatus() {
	p.props.SetMust(playerIface, "PlaybackStatus", playbackStatus(p.plane.GetPlaybackState()))
}

func (p *playerObject) updateVolume() {
	p.props.SetMust(playerIface, "Volume", p.plane.GetVolume())
}

func (p *playerObject) updateLoopStatus() {
	p.props.SetMust(playerIface, "LoopStatus", loopStatus(p.plane.GetRepeatMode()))
}

func (p *playerObject) updateMetadata() {
	p.props.SetMust(playerIface, "Metadata", metadataMap(p.plane.GetMetadataSnapshot()))
}

func (p *playerObject) emitSeeked() {
	p.props.SetMust(playerIface, "Position", p.plane.GetCurrentMs()*1000)
}

func playbackStatus(m mixer.Mode) string {
	switch m {
	case mixer.ModePlaying:
		return "Playing"
	case mixer.ModePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func loopStatus(r playlist.RepeatMode) string {
	switch r {
	case playlist.RepeatTrack:
		return "Track"
	case playlist.RepeatPlaylist:
		return "Playlist"
	default:
		return "None"
	}
}

func metadataMap(snap control.MetadataSnapshot) map[string]dbus.Variant {
	trackID := dbus.ObjectPath("/org/mpris/MediaPlayer2/climp/NoTrack")
	if snap.TrackID != "" {
		trackID = dbus.ObjectPath("/org/mpris/MediaPlayer2/climp/Track")
	}
	m := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackID),
		"mpris:length":  dbus.MakeVariant(snap.LengthUs),
	}
	if snap.Title != "" {
		m["xesam:title"] = dbus.MakeVariant(snap.Title)
	}
	if snap.Artist != "" {
		m["xesam:artist"] = dbus.MakeVariant([]string{snap.Artist})
	}
	if snap.Album != "" {
		m["xesam:album"] = dbus.MakeVariant(snap.Album)
	}
	return m
}

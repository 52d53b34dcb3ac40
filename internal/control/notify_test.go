package control

import "testing"

func TestNotifierFireIsNonBlockingAndCoalesces(t *testing.T) {
	n := NewNotifier()
	n.Fire(EventVolumeChanged)
	n.Fire(EventVolumeChanged) // second fire before anyone reads: coalesced

	select {
	case <-n.Chan(EventVolumeChanged):
	default:
		t.Fatal("Chan(EventVolumeChanged) had no pending signal after Fire")
	}

	select {
	case <-n.Chan(EventVolumeChanged):
		t.Fatal("Chan(EventVolumeChanged) had a second signal, want coalesced to one")
	default:
	}
}

func TestNotifierEventKindsAreIndependent(t *testing.T) {
	n := NewNotifier()
	n.Fire(EventSeeked)

	select {
	case <-n.Chan(EventLoopStatusChanged):
		t.Fatal("Chan(EventLoopStatusChanged) fired from an unrelated Fire(EventSeeked)")
	default:
	}
}

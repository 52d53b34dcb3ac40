package config

import "testing"

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v, want defaults when no config file is present", err)
	}
	if cfg.Audio.DefaultVolume != 0.8 {
		t.Fatalf("Audio.DefaultVolume = %v, want 0.8", cfg.Audio.DefaultVolume)
	}
	if cfg.Audio.Backend != "oto" {
		t.Fatalf("Audio.Backend = %q, want \"oto\"", cfg.Audio.Backend)
	}
	if !cfg.Remote.Enabled {
		t.Fatal("Remote.Enabled = false, want true by default")
	}
}

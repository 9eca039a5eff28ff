package bmschart

import "testing"

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestPlayerRejectsBadSampleRate(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatalf("expected an error for sample rate 0")
	}
	if _, err := NewPlayer(-48000); err == nil {
		t.Fatalf("expected an error for a negative sample rate")
	}
}

func TestPlayerStopWithoutPlayback(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := pl.Stop(); err != nil {
		t.Fatalf("stop without playback: %v", err)
	}
	pl.Wait()
	if got := pl.PlaybackPosition(); got != 0 {
		t.Fatalf("expected zero position when idle, got %v", got)
	}
}

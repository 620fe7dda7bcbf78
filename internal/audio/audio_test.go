package audio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
)

type fakeOutput struct {
	mu     sync.Mutex
	inits  int
	plays  int
	closed bool
}

func (f *fakeOutput) Init(beep.SampleRate, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return nil
}

func (f *fakeOutput) Play(...beep.Streamer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
}

func (f *fakeOutput) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeOutput) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

// writeWAV writes a short silent clip and returns its path.
func writeWAV(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(2205), format))
	return path
}

func TestPlayer_PlayCachesBuffer(t *testing.T) {
	out := &fakeOutput{}
	p := newPlayer(out, nil)
	path := writeWAV(t, t.TempDir(), "ok.wav")

	require.NoError(t, p.Play(path))
	require.NoError(t, p.Play(path))

	assert.Equal(t, 1, out.inits)
	assert.Equal(t, 2, out.playCount())
	assert.True(t, p.Cached(path))

	p.InvalidateCache(path)
	assert.False(t, p.Cached(path))

	p.Close()
	assert.True(t, out.closed)
}

func TestPlayer_Errors(t *testing.T) {
	p := newPlayer(&fakeOutput{}, nil)
	dir := t.TempDir()

	assert.NoError(t, p.Play(""))
	assert.Error(t, p.Play(filepath.Join(dir, "missing.wav")))

	flac := filepath.Join(dir, "sound.flac")
	require.NoError(t, os.WriteFile(flac, []byte("x"), 0644))
	err := p.Play(flac)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")
}

func TestPlayer_Volume(t *testing.T) {
	p := newPlayer(&fakeOutput{}, nil)

	p.SetVolume(0.5)
	assert.InDelta(t, 0.5, p.Volume(), 0.0001)

	p.SetVolume(3)
	assert.InDelta(t, 1.0, p.Volume(), 0.0001)

	p.SetVolume(-1)
	assert.InDelta(t, 0.0, p.Volume(), 0.0001)

	assert.InDelta(t, -1.0, volumeToExponent(0.5), 0.0001)
	assert.InDelta(t, 0.0, volumeToExponent(1), 0.0001)
}

func TestManager_SoundsPerKind(t *testing.T) {
	dir := t.TempDir()
	okSound := writeWAV(t, dir, "ok.wav")

	cfg := config.DefaultConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Sounds.Success = okSound
	cfg.Audio.Sounds.Error = filepath.Join(dir, "missing.wav")

	m := newManager(cfg, newPlayer(&fakeOutput{}, nil), nil)

	path, ok := m.SoundFor(model.KindSuccess)
	assert.True(t, ok)
	assert.Equal(t, okSound, path)

	// Missing files are skipped
	_, ok = m.SoundFor(model.KindError)
	assert.False(t, ok)

	_, ok = m.SoundFor(model.KindInfo)
	assert.False(t, ok)
}

func TestManager_DisabledPlaysNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Audio.Enabled = false
	cfg.Audio.Sounds.Info = writeWAV(t, dir, "info.wav")

	out := &fakeOutput{}
	m := newManager(cfg, newPlayer(out, nil), nil)

	require.NoError(t, m.PlayForKind(model.KindInfo))
	assert.Equal(t, 0, out.playCount())
}

func TestManager_HandlePlaysOnCreated(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Sounds.Warning = writeWAV(t, dir, "warn.wav")

	out := &fakeOutput{}
	m := newManager(cfg, newPlayer(out, nil), nil)

	m.Handle(center.Event{Type: center.EventClosed, Notification: model.Notification{Kind: model.KindWarning}})
	m.Handle(center.Event{Type: center.EventCreated, Notification: model.Notification{Kind: model.KindWarning}})

	assert.Eventually(t, func() bool { return out.playCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestManager_UpdateConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	m := newManager(cfg, newPlayer(&fakeOutput{}, nil), nil)

	_, ok := m.SoundFor(model.KindInfo)
	assert.False(t, ok)

	next := config.DefaultConfig()
	next.Audio.Enabled = true
	next.Audio.Sounds.Info = writeWAV(t, dir, "info.wav")
	m.UpdateConfig(next)

	path, ok := m.SoundFor(model.KindInfo)
	assert.True(t, ok)
	assert.Equal(t, next.Audio.Sounds.Info, path)
	assert.True(t, m.player.Cached(path))
}

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "ok.wav")

	p := newPlayer(&fakeOutput{}, nil)
	require.NoError(t, p.Preload(path))

	w, err := NewWatcher(p, nil)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Watch(path))

	writeWAV(t, dir, "ok.wav")

	assert.Eventually(t, func() bool { return !p.Cached(path) }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_HandleSkipsErrorCallbackForInternalToasts(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.wav")
	require.NoError(t, os.WriteFile(broken, []byte("not a wav file"), 0644))

	cfg := config.DefaultConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Sounds.Warning = broken

	out := &fakeOutput{}
	m := newManager(cfg, newPlayer(out, nil), nil)

	var mu sync.Mutex
	var errs []error
	m.SetErrorCallback(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(errs)
	}

	m.Handle(center.Event{Type: center.EventCreated, Notification: model.Notification{
		Kind:   model.KindWarning,
		Source: model.SourceInternal,
	}})
	m.Handle(center.Event{Type: center.EventCreated, Notification: model.Notification{
		Kind:   model.KindWarning,
		Source: "cli",
	}})

	assert.Eventually(t, func() bool { return count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, count())
	assert.Equal(t, 0, out.playCount())
}

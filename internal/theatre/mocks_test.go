package theatre

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
	"github.com/nerrad567/theatre-core/internal/moviedb"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

// callLog records device commands across all mocks in call order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) reset() {
	l.mu.Lock()
	l.calls = nil
	l.mu.Unlock()
}

// mockSource is an EventSource that lets tests raise events.
type mockSource struct {
	mu        sync.Mutex
	listeners map[int]device.Listener
	next      int
}

func (s *mockSource) Subscribe(l device.Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]device.Listener)
	}
	id := s.next
	s.next++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *mockSource) emit(ev device.Event) {
	s.mu.Lock()
	ls := make([]device.Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()
	for _, l := range ls {
		l(s, ev)
	}
}

func (s *mockSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

type mockVideoProcessor struct {
	mockSource
	log       *callLog
	onRequest func()
	memoryErr error
}

func (m *mockVideoProcessor) RequestDisplayMode(context.Context) error {
	m.log.add("vp.request-mode")
	if m.onRequest != nil {
		m.onRequest()
	}
	return nil
}

func (m *mockVideoProcessor) SelectMemory(_ context.Context, mem device.Memory) error {
	m.log.add("vp.memory %s", mem)
	return m.memoryErr
}

func (m *mockVideoProcessor) Send(_ context.Context, cmd string) error {
	m.log.add("vp.send %s", cmd)
	return nil
}

func (m *mockVideoProcessor) ShowMessage(_ context.Context, text string, d time.Duration) error {
	m.log.add("vp.message %q %s", text, d)
	return nil
}

func (m *mockVideoProcessor) Close() error {
	m.log.add("vp.close")
	return nil
}

type mockDisplay struct {
	log      *callLog
	power    device.PowerStatus
	picture  device.PictureMode
	inputErr error
}

func (m *mockDisplay) SetInput(_ context.Context, in device.Input) error {
	m.log.add("display.input %s", in)
	return m.inputErr
}

func (m *mockDisplay) SetPictureMode(_ context.Context, pm device.PictureMode) error {
	m.log.add("display.picture %s", pm)
	return nil
}

func (m *mockDisplay) SetLightOutput(_ context.Context, l device.LightOutput) error {
	m.log.add("display.light %s", l)
	return nil
}

func (m *mockDisplay) PowerStatus(context.Context) (device.PowerStatus, error) {
	return m.power, nil
}

func (m *mockDisplay) PictureMode(context.Context) (device.PictureMode, error) {
	return m.picture, nil
}

func (m *mockDisplay) Close() error {
	m.log.add("display.close")
	return nil
}

type mockAudioProcessor struct {
	mockSource
	log        *callLog
	connectErr error
}

func (m *mockAudioProcessor) Connect(context.Context) error {
	m.log.add("audio.connect")
	return m.connectErr
}

func (m *mockAudioProcessor) SelectProfile(_ context.Context, p device.Profile) error {
	m.log.add("audio.profile %s", p)
	return nil
}

func (m *mockAudioProcessor) Close() error {
	m.log.add("audio.close")
	return nil
}

type mockMediaPlayer struct {
	mockSource
	log     *callLog
	details map[string]device.ContentDetails
}

func (m *mockMediaPlayer) Connect(context.Context) error {
	m.log.add("player.connect")
	return nil
}

func (m *mockMediaPlayer) ContentDetails(_ context.Context, id string) (device.ContentDetails, error) {
	m.log.add("player.details %s", id)
	d, ok := m.details[id]
	if !ok {
		return device.ContentDetails{}, fmt.Errorf("%w: %s", device.ErrRejected, id)
	}
	return d, nil
}

func (m *mockMediaPlayer) Close() error {
	m.log.add("player.close")
	return nil
}

type mockMovies struct {
	results []moviedb.Movie
	err     error
	queries []string
}

func (m *mockMovies) SearchMovie(_ context.Context, title string, year int) ([]moviedb.Movie, error) {
	m.queries = append(m.queries, fmt.Sprintf("%s (%d)", title, year))
	return m.results, m.err
}

type mockSwitcher struct{ log *callLog }

func (m *mockSwitcher) Go2D(context.Context) error { m.log.add("htpc.2d"); return nil }
func (m *mockSwitcher) Go3D(context.Context) error { m.log.add("htpc.3d"); return nil }

// ─── Fixture ────────────────────────────────────────────────────────

type fixture struct {
	log     *callLog
	vp      *mockVideoProcessor
	display *mockDisplay
	audio   *mockAudioProcessor
	player  *mockMediaPlayer
	center  *mockSource
	movies  *mockMovies
	htpc    *mockSwitcher
}

func newFixture() *fixture {
	log := &callLog{}
	return &fixture{
		log:     log,
		vp:      &mockVideoProcessor{log: log},
		display: &mockDisplay{log: log, power: device.PowerOn, picture: device.PictureMode10},
		audio:   &mockAudioProcessor{log: log},
		player:  &mockMediaPlayer{log: log, details: map[string]device.ContentDetails{}},
		center:  &mockSource{},
		movies:  &mockMovies{},
		htpc:    &mockSwitcher{log: log},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		VideoProcessor: f.vp,
		Display:        f.display,
		AudioProcessor: f.audio,
		MediaPlayer:    f.player,
		MediaCenter:    f.center,
		Movies:         f.movies,
		HTPC:           f.htpc,
	}
}

func (f *fixture) displayHandler() *displayHandler {
	return &displayHandler{
		vp:      f.vp,
		display: f.display,
		audio:   f.audio,
		htpc:    f.htpc,
		sleep:   func(context.Context, time.Duration) error { return nil },
		logger:  noopLogger{},
	}
}

// runTriggered executes the actions collected on rules in order.
func runTriggered(rules *controller.Rules) []error {
	var errs []error
	for _, t := range rules.Flush() {
		if err := t.Run(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

package mediacenter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/theatre-core/internal/device"
)

const (
	infoPath            = "/MCWS/v1/Playback/Info"
	defaultPollInterval = time.Second
	defaultTimeout      = 5 * time.Second
)

var (
	// ErrNoURL is returned by New when no server address is configured.
	ErrNoURL = errors.New("mediacenter: url required")

	// ErrResponse is returned when the server answers with a failure.
	ErrResponse = errors.New("mediacenter: request failed")
)

// Logger is the logging interface used by the poller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config configures a Poller.
type Config struct {
	URL          string
	Zone         int
	PollInterval time.Duration
	Timeout      time.Duration

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
	Logger     Logger
}

// Poller reads playback status on a fixed interval. It implements
// device.EventSource.
type Poller struct {
	device.Listeners

	infoURL  string
	interval time.Duration
	http     *http.Client
	logger   Logger

	// emitMu orders change events against the replay in Subscribe, so a
	// new listener never sees an older state after a newer one.
	emitMu sync.Mutex

	mu      sync.Mutex
	last    device.PlaybackInfo
	hasLast bool
	failing bool
}

// New creates a Poller.
//
// Parameters:
//   - cfg: Server address, zone and timing
//
// Returns:
//   - *Poller: not yet polling; call Serve
//   - error: ErrNoURL if cfg.URL is empty
func New(cfg Config) (*Poller, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, ErrNoURL
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	q := url.Values{}
	q.Set("Zone", strconv.Itoa(cfg.Zone))

	return &Poller{
		infoURL:  base + infoPath + "?" + q.Encode(),
		interval: interval,
		http:     hc,
		logger:   logger,
	}, nil
}

// Serve polls until ctx is cancelled. Failed polls are logged and retried
// on the next tick. It always returns ctx.Err().
func (p *Poller) Serve(ctx context.Context) error {
	p.logger.Info("media center poller started", "url", p.infoURL, "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("media center poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.pollAndReport(ctx)
		}
	}
}

func (p *Poller) String() string { return "media-center-poller" }

func (p *Poller) pollAndReport(ctx context.Context) {
	_, err := p.Poll(ctx)
	p.mu.Lock()
	wasFailing := p.failing
	p.failing = err != nil
	p.mu.Unlock()

	switch {
	case err != nil && ctx.Err() != nil:
		// shutting down
	case err != nil && !wasFailing:
		p.logger.Warn("media center poll failed", "error", err)
	case err != nil:
		p.logger.Debug("media center poll failed", "error", err)
	case wasFailing:
		p.logger.Info("media center reachable again")
	}
}

// Subscribe registers l. If a poll has already succeeded, l immediately
// receives the current status, so a listener attached after the first poll
// still learns the state of an idle player.
func (p *Poller) Subscribe(l device.Listener) func() {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	unsubscribe := p.Listeners.Subscribe(l)
	if info, ok := p.Last(); ok {
		l(p, device.PlaybackInfoChanged{Info: info})
	}
	return unsubscribe
}

// Poll fetches the playback status once and raises PlaybackInfoChanged if
// it differs from the previous successful poll. The first successful poll
// always raises an event.
//
// Returns:
//   - bool: true if an event was raised
//   - error: transport, status or decode failure
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	info, err := p.fetch(ctx)
	if err != nil {
		return false, err
	}

	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.hasLast && p.last == info {
		p.mu.Unlock()
		return false, nil
	}
	p.last = info
	p.hasLast = true
	p.mu.Unlock()

	p.logger.Debug("playback info changed", "state", info.State, "file_key", info.FileKey)
	p.Emit(p, device.PlaybackInfoChanged{Info: info})
	return true, nil
}

// Last returns the most recent playback status, if any poll succeeded.
func (p *Poller) Last() (device.PlaybackInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

func (p *Poller) fetch(ctx context.Context) (device.PlaybackInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.infoURL, http.NoBody)
	if err != nil {
		return device.PlaybackInfo{}, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return device.PlaybackInfo{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return device.PlaybackInfo{}, fmt.Errorf("%w: status %d", ErrResponse, resp.StatusCode)
	}

	return decodeInfo(resp.Body)
}

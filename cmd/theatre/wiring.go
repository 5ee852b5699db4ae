package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/theatre-core/internal/bridges/avbridge"
	"github.com/nerrad567/theatre-core/internal/htpc"
	"github.com/nerrad567/theatre-core/internal/infrastructure/config"
	"github.com/nerrad567/theatre-core/internal/infrastructure/logging"
	"github.com/nerrad567/theatre-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/theatre-core/internal/mediacenter"
	"github.com/nerrad567/theatre-core/internal/metrics"
	"github.com/nerrad567/theatre-core/internal/moviedb"
	"github.com/nerrad567/theatre-core/internal/process"
	"github.com/nerrad567/theatre-core/internal/theatre"
)

// deviceSet holds the bus-backed device clients.
type deviceSet struct {
	video   *avbridge.VideoProcessor
	display *avbridge.Display
	audio   *avbridge.AudioProcessor
	player  *avbridge.MediaPlayer

	closers []func() error
}

// Close releases every client that was created, newest first.
func (d *deviceSet) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// connectDevices creates the four device clients on the MQTT bus. Every
// client reports breaker transitions to m.
//
// Parameters:
//   - cfg: Device identifiers, timeouts and breaker settings
//   - bus: Connected MQTT client
//   - m: Metrics receiving breaker state
//   - log: Logger for the clients
//
// Returns:
//   - *deviceSet: Clients subscribed to their state topics
//   - error: If any client fails to subscribe; clients already created are closed
func connectDevices(cfg *config.Config, bus *mqtt.Client, m *metrics.Metrics, log *logging.Logger) (*deviceSet, error) {
	opts := func(id string) avbridge.Options {
		m.TrackDevice(id)
		return avbridge.Options{
			Bus:             bus,
			DeviceID:        id,
			QoS:             byte(cfg.MQTT.QoS),
			RequestTimeout:  cfg.Devices.RequestTimeout,
			MaxFailures:     cfg.Devices.Breaker.MaxFailures,
			OpenTimeout:     cfg.Devices.Breaker.OpenTimeout,
			OnBreakerChange: m.BreakerChanged,
			Logger:          log.With("device", id),
		}
	}

	d := &deviceSet{}
	fail := func(what string, err error) (*deviceSet, error) {
		_ = d.Close()
		return nil, fmt.Errorf("connecting %s: %w", what, err)
	}

	var err error
	if d.video, err = avbridge.NewVideoProcessor(opts(cfg.Devices.VideoProcessor)); err != nil {
		return fail("video processor", err)
	}
	d.closers = append(d.closers, d.video.Close)

	if d.display, err = avbridge.NewDisplay(opts(cfg.Devices.Display)); err != nil {
		return fail("display", err)
	}
	d.closers = append(d.closers, d.display.Close)

	if d.audio, err = avbridge.NewAudioProcessor(opts(cfg.Devices.AudioProcessor)); err != nil {
		return fail("audio processor", err)
	}
	d.closers = append(d.closers, d.audio.Close)

	if d.player, err = avbridge.NewMediaPlayer(opts(cfg.Devices.MediaPlayer)); err != nil {
		return fail("media player", err)
	}
	d.closers = append(d.closers, d.player.Close)

	log.Info("device clients ready",
		"video_processor", cfg.Devices.VideoProcessor,
		"display", cfg.Devices.Display,
		"audio_processor", cfg.Devices.AudioProcessor,
		"media_player", cfg.Devices.MediaPlayer,
	)
	return d, nil
}

// optionalServices are the collaborators a theatre can run without.
type optionalServices struct {
	poller *mediacenter.Poller
	movies *moviedb.Client
	htpc   theatre.Switcher
}

// buildServices creates the media-center poller, movie database client and
// HTPC switcher that cfg enables.
func buildServices(cfg *config.Config, log *logging.Logger) (optionalServices, error) {
	var s optionalServices

	if cfg.MediaCenter.Enabled {
		p, err := mediacenter.New(mediacenter.Config{
			URL:          cfg.MediaCenter.URL,
			Zone:         cfg.MediaCenter.Zone,
			PollInterval: cfg.MediaCenter.PollInterval,
			Timeout:      cfg.MediaCenter.Timeout,
			Logger:       log.With("component", "media-center"),
		})
		if err != nil {
			return s, fmt.Errorf("creating media center poller: %w", err)
		}
		s.poller = p
	}

	if cfg.MovieDB.Enabled {
		c, err := moviedb.New(moviedb.Config{
			BaseURL: cfg.MovieDB.BaseURL,
			APIKey:  cfg.MovieDB.APIKey,
			Timeout: cfg.MovieDB.Timeout,
		})
		if err != nil {
			return s, fmt.Errorf("creating movie database client: %w", err)
		}
		s.movies = c
	}

	switch cfg.HTPC.Mode {
	case config.HTPCModeRemote:
		r, err := htpc.NewRemote(cfg.HTPC.URL, &http.Client{Timeout: cfg.HTPC.CommandTimeout}, log)
		if err != nil {
			return s, fmt.Errorf("creating HTPC switcher: %w", err)
		}
		s.htpc = r
	case config.HTPCModeLocal:
		l, err := htpc.NewLocal(process.NewRunner(log),
			profileCommand(cfg.HTPC.Profile2D, cfg.HTPC),
			profileCommand(cfg.HTPC.Profile3D, cfg.HTPC),
		)
		if err != nil {
			return s, fmt.Errorf("creating HTPC switcher: %w", err)
		}
		s.htpc = l
	}

	return s, nil
}

func profileCommand(c config.CommandConfig, h config.HTPCConfig) process.Command {
	return process.Command{
		Binary:  c.Binary,
		Args:    c.Args,
		Timeout: h.CommandTimeout,
	}
}

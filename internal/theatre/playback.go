package theatre

import (
	"context"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
)

// nowPlayingDuration is how long a new title's name stays on screen.
const nowPlayingDuration = 3 * time.Second

// playbackHandler reacts to the media center's playback status.
type playbackHandler struct {
	vp     device.VideoProcessor
	logger Logger
}

func (h *playbackHandler) handle(rules *controller.Rules, info device.PlaybackInfo) {
	playing := info.State == device.PlaybackPlaying

	controller.OnValueChanged(rules, "now-playing", info.FileKey, func(ctx context.Context, _ string) error {
		if !playing || info.Name == "" {
			return nil
		}
		return showCentered(ctx, h.vp, nowPlayingDuration, info.Name)
	})

	rules.OnTrue("stopped", info.State == device.PlaybackStopped, func(ctx context.Context) error {
		h.logger.Debug("media center playback stopped", "zone", info.ZoneID)
		return h.vp.Send(ctx, clearMenuCommand)
	})
}

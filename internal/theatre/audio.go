package theatre

import (
	"context"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
)

// codecMessageDuration is how long the decoded format stays on screen.
const codecMessageDuration = 2 * time.Second

// decoderLabels maps audio processor decoder codes to on-screen labels.
// An empty label means the format is not worth announcing.
var decoderLabels = map[string]string{
	"none":              "",
	"PCM":               "",
	"DD":                "Dolby",
	"DD+":               "Dolby+",
	"TrueHD":            "Dolby TrueHD",
	"ATMOS DD+":         "Dolby+ ATMOS",
	"ATMOS TrueHD":      "Dolby TrueHD ATMOS",
	"DTS":               "DTS",
	"DTS-HD MA":         "DTS-HD",
	"DTS-HD HI RES":     "DTS-HD HiRes",
	"DTS-HD MA Auro-3D": "Auro-3D",
	"DTS:X MA":          "DTS:X",
}

// upmixerLabels maps upmixer codes to on-screen labels.
var upmixerLabels = map[string]string{
	"none":           "",
	"Neural:X":       "Neural:X",
	"Dolby Surround": "Dolby Surround",
}

// codec is the rule state for the audio handler.
type codec struct {
	Decoder string
	Upmixer string
}

// audioHandler announces the decoded audio format on screen.
type audioHandler struct {
	vp     device.VideoProcessor
	logger Logger
}

func (h *audioHandler) handle(rules *controller.Rules, ev device.AudioDecoderChanged) {
	controller.OnValueChanged(rules, "show-codec", codec{Decoder: ev.Decoder, Upmixer: ev.Upmixer}, h.showCodec)
}

func (h *audioHandler) showCodec(ctx context.Context, c codec) error {
	msg := h.codecMessage(c)
	if msg == "" {
		return nil
	}
	return showCentered(ctx, h.vp, codecMessageDuration, msg)
}

// codecMessage builds "decoder (upmixer)". Unknown codes are shown as
// reported and logged so the tables can be extended.
func (h *audioHandler) codecMessage(c codec) string {
	decoder, ok := decoderLabels[c.Decoder]
	if !ok {
		h.logger.Warn("unrecognized decoder", "decoder", c.Decoder)
		decoder = c.Decoder
	}
	if decoder == "" {
		return ""
	}

	upmixer, ok := upmixerLabels[c.Upmixer]
	if !ok {
		h.logger.Warn("unrecognized upmixer", "upmixer", c.Upmixer)
		upmixer = c.Upmixer
	}
	if upmixer == "" {
		return decoder
	}
	return decoder + " (" + upmixer + ")"
}

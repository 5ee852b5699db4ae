package theatre

import (
	"context"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
)

// Aspect ratio bounds, in the processor's three-digit notation (178 = 1.78:1).
// Ratios are compared as strings, which orders correctly for that notation.
const (
	aspectWidthMin = "178"
	aspectWidthMax = "200"
)

// fit is how the image should be scaled onto the screen.
type fit int

const (
	fitHeight fit = iota
	fitWidth
	fitNative
)

// classifyAspect maps a detected aspect ratio to the fit that fills the screen.
func classifyAspect(ratio string) fit {
	switch {
	case ratio < aspectWidthMin:
		return fitHeight
	case ratio <= aspectWidthMax:
		return fitWidth
	default:
		return fitNative
	}
}

// memory returns the processor memory holding the setup for f.
func (f fit) memory() device.Memory {
	switch f {
	case fitHeight:
		return device.MemoryC
	case fitWidth:
		return device.MemoryB
	default:
		return device.MemoryA
	}
}

// Switcher changes the home-theater PC between 2D and 3D presentation.
type Switcher interface {
	Go2D(ctx context.Context) error
	Go3D(ctx context.Context) error
}

// displayHandler keeps display input, picture mode, audio profile and
// processor memory consistent with the video processor's source.
//
// Memory selection is deferred to the end of the cycle: rules that want a
// memory record it in pendingMemory, rules that switch the display input
// set sourceChanged, and a final Always rule selects at most one memory
// and clears both.
type displayHandler struct {
	vp      device.VideoProcessor
	display device.Display
	audio   device.AudioProcessor
	htpc    Switcher
	settle  time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	logger  Logger

	sourceChanged bool
	pendingMemory device.Memory
}

func (h *displayHandler) handle(rules *controller.Rules, mode device.DisplayMode) {
	aspect := classifyAspect(mode.DetectedAspectRatio)
	isHDR := mode.IsHDR()
	is3D := mode.Is3D()
	isGUI := mode.IsGUI()

	input := mode.PhysicalInput
	isOpticalDisc := input == device.InputOpticalDisc
	isMediaPlayer := input == device.InputMediaPlayer
	isHTPC2D := input == device.InputHTPC2D
	isHTPC3D := input == device.InputHTPC3D
	isHTPC := isHTPC2D || isHTPC3D

	controller.OnValueChanged(rules, "source-changed", input, func(context.Context, int) error {
		h.sourceChanged = true
		return nil
	})

	// video input
	rules.OnTrue("switch-to-processor-2d", !isHTPC && !is3D, func(ctx context.Context) error {
		h.sourceChanged = true
		return h.display.SetInput(ctx, device.InputHDMI1)
	})
	rules.OnTrue("switch-to-processor-3d", !isHTPC && is3D, func(ctx context.Context) error {
		h.sourceChanged = true
		h.pendingMemory = device.MemoryA
		if err := h.display.SetInput(ctx, device.InputHDMI2); err != nil {
			return err
		}
		return h.display.SetPictureMode(ctx, device.PictureMode3)
	})
	rules.OnTrue("switch-to-htpc-2d", isHTPC2D, func(ctx context.Context) error {
		h.sourceChanged = true
		return h.switchHTPC(ctx, false)
	})
	rules.OnTrue("switch-to-htpc-3d", isHTPC3D, func(ctx context.Context) error {
		h.sourceChanged = true
		return h.switchHTPC(ctx, true)
	})

	// audio input
	rules.OnTrue("processor-audio", !isHTPC && !isMediaPlayer && !isOpticalDisc, h.selectProfile(device.ProfileHDMI7))
	rules.OnTrue("htpc-audio", isHTPC, h.selectProfile(device.ProfileHDMI6))
	rules.OnTrue("media-player-audio", isMediaPlayer, h.selectProfile(device.ProfileHDMI5))
	rules.OnTrue("optical-disc-audio", isOpticalDisc, h.selectProfile(device.ProfileHDMI4))

	// display brightness
	rules.OnTrue("sdr", !isHTPC && !is3D && !isHDR, h.setPictureMode(device.PictureMode1))
	rules.OnTrue("hdr", !isHTPC && !is3D && isHDR, h.setPictureMode(device.PictureMode2))

	// processor aspect ratio
	scaled := !isHTPC && !is3D
	rules.OnTrue("fit-height", scaled && (aspect == fitHeight || isGUI), h.requestMemory(device.MemoryC))
	rules.OnTrue("fit-width", scaled && aspect == fitWidth && !isGUI, h.requestMemory(device.MemoryB))
	rules.OnTrue("fit-native", scaled && aspect == fitNative && !isGUI, h.requestMemory(device.MemoryA))

	// A new source resets the processor's scaling, so reapply the current fit.
	current := device.Memory("")
	if scaled {
		current = aspect.memory()
		if isGUI {
			current = device.MemoryC
		}
	}
	rules.Always("apply-memory", func(ctx context.Context) error {
		mem := h.pendingMemory
		if mem == "" && h.sourceChanged {
			mem = current
		}
		h.sourceChanged = false
		h.pendingMemory = ""

		if mem == "" {
			return nil
		}
		h.logger.Debug("selecting processor memory", "memory", string(mem))
		return h.vp.SelectMemory(ctx, mem)
	})
}

func (h *displayHandler) switchHTPC(ctx context.Context, to3D bool) error {
	if err := h.display.SetInput(ctx, device.InputDisplayPortBoth); err != nil {
		return err
	}
	if h.htpc == nil {
		h.logger.Debug("no htpc switcher configured")
		return nil
	}
	if err := h.sleep(ctx, h.settle); err != nil {
		return err
	}
	if to3D {
		return h.htpc.Go3D(ctx)
	}
	return h.htpc.Go2D(ctx)
}

func (h *displayHandler) selectProfile(p device.Profile) controller.Action {
	return func(ctx context.Context) error { return h.audio.SelectProfile(ctx, p) }
}

func (h *displayHandler) setPictureMode(m device.PictureMode) controller.Action {
	return func(ctx context.Context) error { return h.display.SetPictureMode(ctx, m) }
}

func (h *displayHandler) requestMemory(m device.Memory) controller.Action {
	return func(context.Context) error {
		h.pendingMemory = m
		return nil
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

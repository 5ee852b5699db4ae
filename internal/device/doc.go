// Package device defines the theatre's device model: the events devices
// raise, the commands they accept and the value types both use.
//
// Events form a closed set. Every value delivered by an EventSource is one
// of DisplayModeChanged, AudioDecoderChanged, HighlightedSelectionChanged,
// PlaybackInfoChanged or, for anything a bridge could not classify,
// UnrecognizedEvent. Consumers switch on the concrete type:
//
//	switch ev := ev.(type) {
//	case device.DisplayModeChanged:
//	    ...
//	default:
//	    // unrecognized
//	}
//
// The interfaces in this package are implemented by the MQTT bridge clients
// in internal/bridges/avbridge and by the media-center poller. Every command
// takes a context and may fail; nothing here retries.
package device

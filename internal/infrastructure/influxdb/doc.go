// Package influxdb writes the controller's telemetry to InfluxDB v2.
//
// Writes go through the client library's non-blocking batch writer, so
// the dispatcher never waits on the network. Failed batches are reported
// to the callback installed with SetOnError.
//
// Points written:
//
//	theatre_events    tags: event, source           fields: duration_ms, actions, failed
//	rule_actions      tags: rule, scope, result     fields: duration_ms
//	display_mode      tags: source                  fields: resolution, vertical_rate, dynamic_range, 3d_mode, aspect
//	audio_decoder     tags: source                  fields: decoder, upmixer
//	playback          tags: zone                    fields: state, file_key, name, position_ms
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//	observers = append(observers, client)
package influxdb

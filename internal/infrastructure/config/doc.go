// Package config loads the controller's YAML configuration.
//
// Load reads the file, fills in defaults for anything omitted, applies
// THEATRE_* environment overrides and validates the result; every problem
// found is reported in one error rather than stopping at the first.
//
// Credentials (MQTT password, InfluxDB token, movie database key) belong
// in the environment, not the file:
//
//	THEATRE_MQTT_PASSWORD=... THEATRE_INFLUXDB_TOKEN=... theatre
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config

package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/nerrad567/theatre-core/internal/infrastructure/config"
)

const (
	connectTimeout   = 10 * time.Second
	operationTimeout = 5 * time.Second
	keepAlive        = 30 * time.Second
	quiesceMillis    = 500
	statusQoS        = 1
)

// Controller status values published on the system status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Reasons attached to an offline status.
const (
	ReasonShutdown   = "shutdown"
	ReasonConnection = "connection_lost"
)

// StatusMessage announces whether the controller is on the bus. Bridges
// watch it to stop queueing commands for a controller that is gone.
//
// Topic: {prefix}/system/status (retained)
type StatusMessage struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func statusPayload(status, clientID, reason string) []byte {
	b, err := json.Marshal(StatusMessage{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		// Only string and time fields; marshalling cannot fail.
		panic(err)
	}
	return b
}

// sessionOptions maps the broker configuration onto paho options. The will
// message marks the controller offline if it vanishes without Close.
func sessionOptions(cfg config.MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	scheme := "tcp"
	var tlsCfg *tls.Config
	if cfg.Broker.TLS {
		scheme = "ssl"
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetBinaryWill(topics.SystemStatus(),
			statusPayload(StatusOffline, cfg.Broker.ClientID, ReasonConnection),
			statusQoS, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if tlsCfg != nil {
		opts.SetTLSConfig(tlsCfg)
	}
	return opts
}

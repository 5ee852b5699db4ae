// Package mqtt is the controller's session on the device bus.
//
// Every device (video processor, display, audio processor, media player)
// sits behind a bridge that speaks the device's native protocol and
// exchanges JSON with the controller over MQTT. This package owns the
// broker connection; the message shapes belong to the bridges package.
//
// The session is clean, so the client remembers its own subscriptions and
// replays them after paho reconnects. A retained StatusMessage on
// {prefix}/system/status says whether the controller is up; the broker
// publishes the offline variant as the will if the process dies.
//
//	bus, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer bus.Close()
//
//	topics := bus.Topics()
//	err = bus.Subscribe(topics.DeviceStates("lumagen"), 1,
//	    func(topic string, payload []byte) error {
//	        device, kind, _ := topics.ParseState(topic)
//	        ...
//	    })
//
// Broker tests are behind the integration build tag.
package mqtt

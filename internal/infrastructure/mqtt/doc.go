// Package mqtt provides the MQTT client the automation core uses to reach
// protocol bridges and other services on the site broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and payload-size checks
//   - Subscriptions that survive reconnects
//   - Last Will and Testament for offline detection
//
// # Architecture
//
// Protocol bridges (KNX, DALI, Modbus, ...) translate field buses to MQTT.
// The core's bus bridge (internal/bridge) turns their state reports into
// bus events and bus commands back into bridge messages:
//
//	rule engine ↔ event bus ↔ bridge ↔ MQTT broker ↔ protocol bridges
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	topic := mqtt.Topics{}.BridgeCommand("knx", "HallLight")
//	client.Publish(topic, []byte(`{"command":"ON"}`), 1, false)
//
// TLS should be enabled (mqtt.broker.tls) anywhere but local development.
package mqtt

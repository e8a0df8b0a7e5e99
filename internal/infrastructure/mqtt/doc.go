// Package mqtt provides MQTT client connectivity for the socket daemon.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The daemon uses MQTT for two jobs: relaying switch commands to the LAN
// agent that speaks the vendor's local protocol, and fanning notifications
// out to home dashboards. The broker (Mosquitto) decouples the daemon from
// the device's LAN segment.
//
//	Socket Daemon ↔ MQTT Broker ↔ LAN Relay Agent ↔ Device
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - The retained config topic carries the device local key; lock the
//     broker down accordingly
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all relay responses
//	err = client.Subscribe(mqtt.Topics{}.AllResponses(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish command
//	topic := mqtt.Topics{}.LocalCommand("bf1234567890")
//	client.Publish(topic, []byte(`{"commands":[{"code":"switch_1","value":true}]}`), 1, false)
package mqtt

// Package mqtt provides MQTT client connectivity for Parkgate.
//
// This package manages:
//   - Connection to the broker with auto-reconnect (plain TCP or TLS)
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for backend offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the link between the backend and the gate controller hardware.
// The controller publishes entry/exit/scan events and system status; the
// backend publishes commands (barrier control, whitelist sync, scan mode).
//
//	Gate Controller ↔ MQTT Broker ↔ Parkgate Backend
//
// # Security Considerations
//
//   - TLS is required for managed brokers (cfg.Broker.TLS=true, port 8883)
//   - Credentials are validated against broker ACL
//   - TLSInsecure disables certificate verification; local self-signed only
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all gate controller events
//	err = client.Subscribe(mqtt.Topics{}.AllEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	client.Publish(mqtt.Topics{}.Commands(), []byte(`{"command":"get_status"}`), 1, false)
package mqtt

// Package mqtt provides MQTT client connectivity for Urchin.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS validation
//   - Topic subscriptions with wildcard support and restoration on reconnect
//   - An optional Last Will for "we vanished" status messages
//   - Connection health monitoring
//
// # Architecture
//
// The broker is the agent's nervous system: every message on every topic
// is a potential sensation, and anything the agent says out loud is also
// published so other instruments can be polite.
//
//	Senses/Workers ↔ internal/bus ↔ mqtt.Client ↔ Broker
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: "nh/status/res", Payload: "Lost: Creepy Urchin"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.TopicAll, 0,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.PublishString("nh/urchin/said", "hello")
package mqtt

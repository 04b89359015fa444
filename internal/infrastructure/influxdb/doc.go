// Package influxdb records the agent's activity in InfluxDB.
//
// Client wraps the official influxdb-client-go v2 library: a ping on
// Connect, then non-blocking batched writes whose failures arrive through
// the SetOnError callback. Recorder is a brain observer writing one
// "sensation" point per dispatched sensation and one "urge" point per
// performed urge.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	b.AddObserver(influxdb.NewRecorder(client, cfg.Site.InstrumentID))
//
// Batch size and flush interval come from the influxdb section of
// config.yaml.
package influxdb

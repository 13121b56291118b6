// Package telemetry periodically samples the running system and fans the
// samples out to every configured sink.
//
// # Architecture
//
//	            ┌────────────┐
//	 engine ───▶│            │───▶ MQTT  (washcycle/telemetry)
//	 outputs ──▶│  Collector │───▶ WebSocket hub ("telemetry.update")
//	 sensors ──▶│            │───▶ InfluxDB (sensor_metrics, output_levels)
//	            └────────────┘
//
// The collector also closes the sensor loop: live readings published by
// external sensor boards on washcycle/sensor/+ are parsed and written into
// the shared sensor store, where the engine's trigger monitor reads them.
//
// # Degradation
//
// Every sink is optional. A missing MQTT client, hub or InfluxDB client
// simply drops that leg of the fan-out; sampling continues for the rest.
//
// # Usage
//
//	collector, err := telemetry.New(telemetry.Deps{
//	    ApplianceID: cfg.Appliance.ID,
//	    Engine:      eng,
//	    Outputs:     bank,
//	    Sensors:     readings,
//	    Readings:    readings,
//	    MQTT:        mqttClient,
//	    Hub:         hub,
//	    Interval:    cfg.GetTelemetryInterval(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	collector.AttachSensorFeed(mqttClient)
//	go collector.Run(ctx)
package telemetry

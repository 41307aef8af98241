// Package influxdb provides the optional telemetry export sink.
//
// When enabled, every numeric property change applied by the sync engine
// (from either direction) is recorded as a point in the property_value
// measurement, tagged with instance id, property key, and origin. This
// gives operators history and dashboards without touching the engine's
// reconciliation path: writes are batched and non-blocking, and a failed
// or absent InfluxDB never affects device synchronization.
//
// The sink is disabled by default; Connect returns ErrDisabled when
// influxdb.enabled is false.
package influxdb

// Package config provides configuration management for the virtual devices
// service.
//
// Configuration is loaded from a YAML file with three layers of precedence:
//
//  1. Hardcoded defaults (defaultConfig)
//  2. YAML file values
//  3. Environment variable overrides (VIRTDEV_* pattern)
//
// Note that this is the service configuration (broker address, logging,
// history store), not the device fleet definition. The fleet document lives
// at fleet.path and is owned by the fleet package; the two are deliberately
// separate files because the fleet document is rewritten at runtime while
// the service configuration is read once at startup.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := mqtt.Connect(cfg.MQTT)
package config

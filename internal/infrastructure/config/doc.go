// Package config handles loading and validating Urchin configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (URCHIN_*)
//   - Validation of required fields
//   - Default value handling
//
// Durations are written the way time.ParseDuration reads them ("250ms",
// "1m30s").
//
// Values that belong to a particular installation (broker, voice, door
// threshold, mute switch) are normally kept in the store's profile record
// and applied over this configuration at startup.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.InstrumentID)
package config

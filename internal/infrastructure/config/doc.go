// Package config handles loading and validating the automation core's
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//
// Environment overrides of note:
//   - GRAYLOGIC_CONFIG selects the config file (see ResolvePath)
//   - GRAYLOGIC_NO_RULES=true starts the rule engine disabled
//   - GRAYLOGIC_THREADPOOL_MIN, _MAX, _KEEPALIVE (ms) and _BACKGROUND_SIZE
//     the job scheduler
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables rather than the file.
//
// Usage:
//
//	cfg, err := config.Load(config.ResolvePath(flagPath))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config

// Package config handles loading and validating socket daemon configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (API secret, local key, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The Tuya local key grants full control of the device on the LAN
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.Name)
//
// Deployments without a config file can rely on FromEnv, which builds
// the configuration from defaults and environment variables alone.
package config

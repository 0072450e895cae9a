// Package config handles loading and validating ProfileHub configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (signing secrets, media credentials) should be set
//     via environment variables, never committed to the config file
//   - The config file should have restricted permissions (0600)
//   - Both JWT secrets are required and must differ from each other
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config

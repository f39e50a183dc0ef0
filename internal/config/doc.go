// Package config provides centralized configuration management for the ledger
// aggregation service. It loads settings from the environment and an optional
// YAML file, validates them and exposes a typed Config.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default() values (lowest priority)
//
// A key present in the file takes effect even when its value is zero or
// false, so thresholds and switches can be turned off from YAML.
//
// # Environment Variables
//
// All environment variables follow the pattern LEDGER_* for namespacing:
//
//	LEDGER_SERVER_PORT=5002
//	LEDGER_PIPELINE_HEADER_ROW=5
//	LEDGER_PIPELINE_SCRUB_MODE=drop-row
//	LEDGER_PIPELINE_EXCLUDED_CODES=SYS18,SYS27
//	LEDGER_SECURITY_ALLOWED_ORIGINS=http://localhost:5173
//	LEDGER_CONFIG_FILE=/etc/tradeledger/config.yaml
//
// A .env file in the working directory is loaded by the binaries before Load
// is called, so the same variables can be kept there during development.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := config.GetPaths(cfg)
//
// # Testing
//
// Use config.Default() for a configuration that needs no environment. It is
// the same value Load starts from.
package config

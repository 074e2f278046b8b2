// Package config loads the sslops configuration from YAML with environment
// overrides.
//
// Values are resolved in order: built-in defaults, the YAML file
// (~/.config/sslops/config.yaml unless --config names another), a .env file in
// the working directory, then SSLOPS_* environment variables.
//
// Example config.yaml:
//
//	acme:
//	  email: ops@example.com
//	  staging: false
//	  plugin: nginx
//	ssh:
//	  binary: ssh
//	  connect_timeout: 10s
//	  max_output_bytes: 4194304
//	timeouts:
//	  obtain: 5m
//	  renew: 5m
//	  revoke: 2m
//	  install: 10m
//	  check: 30s
//	sweep:
//	  window: 720h
//	  concurrency: 1
//	  interval: 12h
//	store:
//	  driver: file
//	metrics:
//	  addr: :9090
//
// Every key maps to an environment variable built from its section and name,
// for example SSLOPS_ACME_EMAIL, SSLOPS_TIMEOUT_OBTAIN or SSLOPS_STORE_DSN.
package config

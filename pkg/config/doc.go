// Package config loads the configuration of the verifier components.
//
// Values are resolved with the following precedence:
//  1. Environment variables (CONTRACTS_*)
//  2. Config file (YAML, or JSON by extension)
//  3. Defaults
//
// Example file:
//
//	logging:
//	  level: debug
//	  format: json
//	plugins:
//	  dir: /opt/pact/plugins
//	  timeout: 5s
//	verifier:
//	  generateDiff: 1MB
//
// Resolver exposes the verifier options under the dotted keys consulted by
// the comparison package.
package config

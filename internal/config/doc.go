// Package config loads the JSON runtime configuration for Nova, fills in
// defaults and resolves secrets from the environment (optionally seeded from
// a .env file).
package config

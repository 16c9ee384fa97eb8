// Package config loads and validates the TOML configuration that drives the
// export pipeline. Loading follows defaults -> file decode -> normalize ->
// validate so every consumer sees fully expanded, checked values.
package config

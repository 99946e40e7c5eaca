// Package config loads the Sentinel-X runtime configuration from a YAML file,
// overlays deployment environment variables and fills in defaults.
package config

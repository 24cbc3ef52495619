// Package config holds runtime configuration for magharvest: defaults,
// validation, XDG directory resolution, and the optional .magharvest
// YAML configuration file.
package config

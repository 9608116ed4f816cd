// Package config defines the ProcessingConfiguration consumed by the
// analysis pipeline, its TOML file representation, named presets, and eager
// validation. Every field is checked before any stage starts so invalid
// settings never surface mid-pipeline.
package config

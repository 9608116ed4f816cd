// Package plancache persists composition plans keyed by an asset
// fingerprint, so re-running an unchanged asset with an unchanged
// configuration skips the whole analysis pipeline. The cache is derived data
// only; clearing it is always safe. Storage is SQLite with a flock guard on
// the cache directory so concurrent invocations do not race the schema.
package plancache

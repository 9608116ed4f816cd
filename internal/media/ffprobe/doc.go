// Package ffprobe shells out to the ffprobe binary to inspect an asset
// before extraction starts. A missing audio track or an unreadable container
// is fatal and reported as an input error.
package ffprobe

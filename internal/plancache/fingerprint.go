package plancache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"derush/internal/config"
	"derush/internal/services"
)

// Fingerprint derives the cache key for one asset under one configuration:
// a digest over the source path, size, and modification time plus the full
// serialized configuration. Any change to the file or to a setting that
// could alter the plan produces a new key.
func Fingerprint(path string, cfg *config.Config) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrInput, "plancache", "fingerprint", "stat source asset", err)
	}

	cfgBytes, err := toml.Marshal(cfg)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "plancache", "fingerprint", "serialize configuration", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|", path, info.Size(), info.ModTime().UnixNano())
	h.Write(cfgBytes)
	return hex.EncodeToString(h.Sum(nil)), nil
}

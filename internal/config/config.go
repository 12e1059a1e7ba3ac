// Package config holds the trajectory-initial configuration threaded
// through verifier construction by the ambient cmd/ binaries. There is no
// process-wide mutable default: every value here must be passed
// explicitly (CANONICAL spec §9: "Process-wide mutable state ... must be
// replaced by explicit configuration values threaded through verifier
// construction").
package config

import (
	"errors"
	"fmt"

	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
)

// KernelConfig is the full set of trajectory-initial parameters a host
// needs to construct a verifier.Params.
type KernelConfig struct {
	Kappa        q18.Q  `json:"kappa"`
	SlabSize     int    `json:"slab_size"`
	GenesisHex   string `json:"genesis_chain_digest_hex,omitempty"`
	StateHexSeed string `json:"genesis_state_hash_hex,omitempty"`
	LogLevel     string `json:"log_level"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// DefaultSlabSize is the protocol's suggested batch length (spec §3: "a
// protocol constant, e.g. 1024").
const DefaultSlabSize = 1024

// Default returns a KernelConfig usable for devnets: kappa = 1.0 in Q18,
// the standard slab size, and info-level logging.
func Default() KernelConfig {
	return KernelConfig{
		Kappa:    q18.Q(q18.Scale),
		SlabSize: DefaultSlabSize,
		LogLevel: "info",
	}
}

// Validate checks the ambient fields of cfg. It does not (and cannot)
// validate kernel invariants that only a running trajectory can violate;
// those are the verifier's job.
func Validate(cfg KernelConfig) error {
	if cfg.SlabSize <= 0 {
		return errors.New("config: slab_size must be positive")
	}
	if cfg.Kappa <= 0 {
		return errors.New("config: kappa must be positive")
	}
	if _, ok := allowedLogLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("config: unrecognized log_level %q", cfg.LogLevel)
	}
	return nil
}

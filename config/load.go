//go:build !tinygo

package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Load parses a JSON or CBOR configuration document. A document whose
// first non-space byte is '{' is JSON; anything else is CBOR. Missing
// values are defaulted and the result is validated.
//
// Zero is a legal encoder seed, so the seed default is applied before
// decoding and an explicit 0 in the document survives.
func Load(data []byte) (*Config, error) {
	config := Config{EncoderSeed: Default().EncoderSeed}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	} else {
		if err := cbor.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse cbor config: %w", err)
		}
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// EncodeCBOR serializes cfg in the compact integer-keyed form
func EncodeCBOR(cfg *Config) ([]byte, error) {
	data, err := cbor.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// EncodeJSON serializes cfg as indented JSON
func EncodeJSON(cfg *Config) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}

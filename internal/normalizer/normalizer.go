// Package normalizer canonicalizes free-text vendor names into comparison
// keys. Invoice systems and bank ledgers record the same vendor with
// different legal-entity boilerplate, spacing, and casing; a deterministic
// cleanup pass maximizes exact-match rate without resorting to fuzzy
// matching, which the tool deliberately avoids for auditability.
package normalizer

import (
	"fmt"
	"strings"
)

// Config holds configuration for vendor name normalization.
//
// StripTokens are removed wherever they occur in a name, as substrings, not
// whole words only. Two distinct vendors whose names differ only in stripped
// boilerplate will collapse into one key; that is an accepted limitation
// corrected by manual overrides.
type Config struct {
	// StripTokens are boilerplate substrings removed from names
	StripTokens []string `json:"strip_tokens"`

	// Strict additionally lowercases names and removes all internal
	// whitespace and parentheses
	Strict bool `json:"strict"`

	// Passthrough lists exact names that normalize to themselves verbatim.
	// Payment platform intermediaries appear under these names on the bank
	// side and would otherwise be mangled by token stripping.
	Passthrough []string `json:"passthrough,omitempty"`
}

// DefaultConfig returns the token set observed across Korean tax office and
// bank exports plus the common English legal-entity markers
func DefaultConfig() *Config {
	return &Config{
		StripTokens: []string{
			"주식회사",
			"(주)",
			"㈜",
			"농업회사법인",
			"종합상사",
			"유한회사",
			"(유)",
			"Co., Ltd.",
			"Co.,Ltd.",
			"Ltd.",
			"Inc.",
			"Co.",
		},
		Strict: false,
	}
}

// StrictConfig returns a configuration that also lowercases and removes
// internal whitespace and parentheses
func StrictConfig() *Config {
	config := DefaultConfig()
	config.Strict = true
	return config
}

// Validate checks if the normalizer configuration is valid
func (c *Config) Validate() error {
	for _, token := range c.StripTokens {
		if token == "" {
			return fmt.Errorf("strip tokens cannot contain empty strings")
		}
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := &Config{Strict: c.Strict}
	clone.StripTokens = append([]string(nil), c.StripTokens...)
	clone.Passthrough = append([]string(nil), c.Passthrough...)
	return clone
}

// Normalizer canonicalizes vendor display names into comparison keys
type Normalizer struct {
	config      *Config
	passthrough map[string]struct{}
}

// New creates a Normalizer with the given configuration
func New(config *Config) *Normalizer {
	if config == nil {
		config = DefaultConfig()
	}

	passthrough := make(map[string]struct{}, len(config.Passthrough))
	for _, name := range config.Passthrough {
		passthrough[strings.TrimSpace(name)] = struct{}{}
	}

	return &Normalizer{
		config:      config,
		passthrough: passthrough,
	}
}

// Normalize canonicalizes a raw vendor name. It is total: any input,
// including the empty string, yields a string and never an error. It is
// idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if _, ok := n.passthrough[trimmed]; ok {
		return trimmed
	}

	// Stripping a token or collapsing whitespace can splice fragments into a
	// new token occurrence, so the whole pass repeats until the name is
	// stable. That fixpoint is what makes Normalize idempotent.
	name := trimmed
	for {
		next := n.pass(name)
		if next == name {
			break
		}
		name = next
	}

	return name
}

func (n *Normalizer) pass(name string) string {
	for _, token := range n.config.StripTokens {
		name = strings.ReplaceAll(name, token, "")
	}

	if n.config.Strict {
		name = strings.ToLower(name)
		name = strings.ReplaceAll(name, "(", "")
		name = strings.ReplaceAll(name, ")", "")
		name = strings.Join(strings.Fields(name), "")
	}

	return strings.TrimSpace(name)
}

// KeyFunc returns Normalize as a plain string function for callers that
// compose key resolution chains
func (n *Normalizer) KeyFunc() func(string) string {
	return n.Normalize
}

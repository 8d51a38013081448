// Package overrides holds operator-declared vendor links. A link pins two raw
// names, one from each side, to a shared synthetic key so aggregation unifies
// vendors the normalizer cannot recognize as the same counterparty.
package overrides

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"invoice-reconciliation-service/internal/aggregator"
	"invoice-reconciliation-service/internal/models"

	apperrors "invoice-reconciliation-service/pkg/errors"

	"gopkg.in/yaml.v3"
)

// syntheticKeyPrefix namespaces override keys. The normalizer trims its
// output, never emits "::", and strips rather than adds characters, so a
// prefixed key cannot collide with a normalized name.
const syntheticKeyPrefix = "link::"

// OverrideLink is one operator-declared pairing of raw names
type OverrideLink struct {
	Invoice string `yaml:"invoice" json:"invoice"`
	Bank    string `yaml:"bank" json:"bank"`
}

// linksFile is the on-disk shape of an override links file
type linksFile struct {
	Links []OverrideLink `yaml:"links"`
}

// Store maps raw vendor names to synthetic keys. Lookups during a run may be
// concurrent with operator edits, so access is guarded.
type Store struct {
	mu        sync.RWMutex
	byInvoice map[string]string
	byBank    map[string]string
	fallback  func(string) string
}

// NewStore creates a Store that falls back to the given key function for raw
// names without an override
func NewStore(fallback func(string) string) *Store {
	return &Store{
		byInvoice: make(map[string]string),
		byBank:    make(map[string]string),
		fallback:  fallback,
	}
}

// SyntheticKey builds the override key for a raw invoice/bank name pair
func SyntheticKey(invoiceRaw, bankRaw string) string {
	return syntheticKeyPrefix + invoiceRaw + "↔" + bankRaw
}

// Link declares the invoice-side raw name and the bank-side raw name to be
// the same vendor. Relinking a raw name replaces its previous assignment;
// the last link for a given raw name wins.
func (s *Store) Link(invoiceRaw, bankRaw string) error {
	if invoiceRaw == "" || bankRaw == "" {
		return apperrors.ValidationError(apperrors.CodeMissingField, "override link",
			fmt.Sprintf("invoice=%q bank=%q", invoiceRaw, bankRaw), nil)
	}

	key := SyntheticKey(invoiceRaw, bankRaw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byInvoice[invoiceRaw] = key
	s.byBank[bankRaw] = key
	return nil
}

// Unlink removes the override for a raw name on one side. Removing one side
// leaves the counterpart's assignment in place.
func (s *Store) Unlink(rawName string, side models.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if side == models.SideBank {
		delete(s.byBank, rawName)
	} else {
		delete(s.byInvoice, rawName)
	}
}

// Resolve returns the canonical key for a raw name: the synthetic key when an
// override covers the name on that side, the fallback key otherwise
func (s *Store) Resolve(rawName string, side models.Side) string {
	s.mu.RLock()
	var key string
	var linked bool
	if side == models.SideBank {
		key, linked = s.byBank[rawName]
	} else {
		key, linked = s.byInvoice[rawName]
	}
	s.mu.RUnlock()

	if linked {
		return key
	}
	return s.fallback(rawName)
}

// KeyFunc returns Resolve as an aggregation key function
func (s *Store) KeyFunc() aggregator.KeyFunc {
	return s.Resolve
}

// Len returns the number of linked raw names across both sides
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byInvoice) + len(s.byBank)
}

// Snapshot returns the current links as pairs, sorted by invoice name.
// Only pairs whose two sides still agree on a key are included; a raw name
// whose counterpart was relinked is reported against its recorded pairing.
func (s *Store) Snapshot() []OverrideLink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	links := make([]OverrideLink, 0, len(s.byInvoice))
	for invoiceRaw, key := range s.byInvoice {
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, OverrideLink{
			Invoice: invoiceRaw,
			Bank:    bankNameFromKey(key, invoiceRaw),
		})
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].Invoice < links[j].Invoice
	})
	return links
}

func bankNameFromKey(key, invoiceRaw string) string {
	prefix := syntheticKeyPrefix + invoiceRaw + "↔"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return ""
}

// Replay applies a sequence of links in order, preserving last-write-wins
func (s *Store) Replay(links []OverrideLink) error {
	for _, link := range links {
		if err := s.Link(link.Invoice, link.Bank); err != nil {
			return fmt.Errorf("replaying link %q/%q: %w", link.Invoice, link.Bank, err)
		}
	}
	return nil
}

// LoadLinksFile reads override links from a YAML file and applies them to
// the store in file order
func (s *Store) LoadLinksFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.FileError(apperrors.CodeFileNotFound, path, err)
	}

	var file linksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.ParseError(apperrors.CodeInvalidFormat, path, 0, "", "", err)
	}

	return s.Replay(file.Links)
}

// Package dedupe assigns stable fingerprints to candidate transactions and
// separates fresh rows from ones already on record.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/LiorShrago/BudgetBuddy/internal/dateutils"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/textutils"
)

// OccurrencePolicy decides how identical rows within one file are told apart.
type OccurrencePolicy string

const (
	// OccurrenceIndex numbers identical (date, amount, description) tuples 0, 1, 2...
	// in file order, so two identical same-day charges stay distinct.
	OccurrenceIndex OccurrencePolicy = "index"
	// OccurrenceNone collapses identical tuples into one transaction.
	OccurrenceNone OccurrencePolicy = "none"
)

// ParsePolicy maps a configuration value onto a policy.
func ParsePolicy(s string) (OccurrencePolicy, error) {
	switch OccurrencePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case OccurrenceIndex, "":
		return OccurrenceIndex, nil
	case OccurrenceNone:
		return OccurrenceNone, nil
	}
	return "", fmt.Errorf("unknown occurrence policy %q", s)
}

// Detector fingerprints candidates.
type Detector struct {
	policy OccurrencePolicy
}

// NewDetector creates a Detector using policy.
func NewDetector(policy OccurrencePolicy) *Detector {
	if policy == "" {
		policy = OccurrenceIndex
	}
	return &Detector{policy: policy}
}

// Policy returns the configured occurrence policy.
func (d *Detector) Policy() OccurrencePolicy {
	return d.policy
}

// Key is the identity tuple of a candidate, without the occurrence index.
func Key(c models.Candidate) string {
	return fmt.Sprintf("%d|%s|%s|%s",
		c.AccountID,
		dateutils.ToISODate(c.Date),
		c.SignedAmount().StringFixed(2),
		textutils.NormalizeDescription(c.Description),
	)
}

// Fingerprint returns the hex SHA-256 of the candidate's key and occurrence.
func (d *Detector) Fingerprint(c models.Candidate, occurrence int) string {
	if d.policy == OccurrenceNone {
		occurrence = 0
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", Key(c), occurrence)))
	return hex.EncodeToString(sum[:])
}

// Dedupe fingerprints candidates in order and splits them into fresh rows and
// duplicates. existing holds fingerprints already stored for the account; it is
// not modified.
func (d *Detector) Dedupe(candidates []models.Candidate, existing map[string]struct{}) ([]models.Fingerprinted, []models.Candidate) {
	seen := make(map[string]int, len(candidates))
	batch := make(map[string]struct{}, len(candidates))

	var fresh []models.Fingerprinted
	var duplicates []models.Candidate
	for _, c := range candidates {
		key := Key(c)
		occurrence := seen[key]
		seen[key]++

		fp := d.Fingerprint(c, occurrence)
		if _, ok := existing[fp]; ok {
			duplicates = append(duplicates, c)
			continue
		}
		if _, ok := batch[fp]; ok {
			duplicates = append(duplicates, c)
			continue
		}
		batch[fp] = struct{}{}
		fresh = append(fresh, models.Fingerprinted{Candidate: c, Fingerprint: fp})
	}
	return fresh, duplicates
}

// FirstFree fingerprints a single manually entered candidate with the lowest
// occurrence index whose fingerprint is not yet stored, so the n-th identical
// hand-entered row gets occurrence n. Under OccurrenceNone the fingerprint is
// fixed and ok reports whether it is free.
func (d *Detector) FirstFree(c models.Candidate, stored func(fingerprint string) bool) (models.Fingerprinted, bool) {
	for occurrence := 0; ; occurrence++ {
		fp := d.Fingerprint(c, occurrence)
		if !stored(fp) {
			return models.Fingerprinted{Candidate: c, Fingerprint: fp}, true
		}
		if d.policy == OccurrenceNone {
			return models.Fingerprinted{Candidate: c, Fingerprint: fp}, false
		}
	}
}

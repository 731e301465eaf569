package rules

import (
	"sort"
	"sync/atomic"
	"time"

	dErrors "taxpilot/pkg/domain-errors"
)

// Snapshot is an immutable, versioned view of the rule registry. Lookups are
// pure functions of (snapshot, inputs); publishing a new version never
// mutates a snapshot readers already hold.
type Snapshot struct {
	version       int64
	jurisdictions map[string]Jurisdiction
	rulesByCode   map[string][]ComplianceRule
	treaties      map[[2]string]Treaty
}

// NewSnapshot builds a snapshot from reference data. The inputs are copied so
// callers cannot mutate the snapshot after publication.
func NewSnapshot(version int64, jurisdictions []Jurisdiction, ruleSet []ComplianceRule, treaties []Treaty) *Snapshot {
	s := &Snapshot{
		version:       version,
		jurisdictions: make(map[string]Jurisdiction, len(jurisdictions)),
		rulesByCode:   make(map[string][]ComplianceRule),
		treaties:      make(map[[2]string]Treaty, len(treaties)),
	}
	for _, j := range jurisdictions {
		s.jurisdictions[j.Code] = j
	}
	for _, r := range ruleSet {
		s.rulesByCode[r.JurisdictionCode] = append(s.rulesByCode[r.JurisdictionCode], r)
	}
	for _, t := range treaties {
		s.treaties[t.Countries] = t
		// Treaties are symmetric.
		s.treaties[[2]string{t.Countries[1], t.Countries[0]}] = t
	}
	return s
}

// Version returns the snapshot's registry version.
func (s *Snapshot) Version() int64 { return s.version }

// Jurisdiction resolves reference data for a jurisdiction code.
func (s *Snapshot) Jurisdiction(code string) (Jurisdiction, bool) {
	j, ok := s.jurisdictions[code]
	return j, ok
}

// JurisdictionCodes returns the registered jurisdiction codes, sorted.
func (s *Snapshot) JurisdictionCodes() []string {
	codes := make([]string, 0, len(s.jurisdictions))
	for code := range s.jurisdictions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RuleCount returns the number of rules in the snapshot.
func (s *Snapshot) RuleCount() int {
	n := 0
	for _, set := range s.rulesByCode {
		n += len(set)
	}
	return n
}

// Treaty resolves the treaty between two countries, if one exists.
func (s *Snapshot) Treaty(a, b string) (Treaty, bool) {
	t, ok := s.treaties[[2]string{a, b}]
	return t, ok
}

// Lookup returns all rules of the jurisdiction whose predicate matches the
// attributes and whose effective range includes asOf, ordered by specificity
// (most specific first) then by rule ID for determinism.
//
// An empty result for a registered jurisdiction is not an error; only an
// unregistered jurisdiction is.
func (s *Snapshot) Lookup(jurisdictionCode string, attrs TransactionAttributes, asOf time.Time) ([]ComplianceRule, error) {
	if _, ok := s.jurisdictions[jurisdictionCode]; !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "jurisdiction %q is not registered", jurisdictionCode)
	}

	var matched []ComplianceRule
	for _, rule := range s.rulesByCode[jurisdictionCode] {
		if !rule.InEffect(asOf) {
			continue
		}
		if !rule.Predicate.Matches(attrs) {
			continue
		}
		matched = append(matched, rule)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := matched[i].Specificity(), matched[j].Specificity()
		if si != sj {
			return si > sj
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}

// Registry publishes immutable snapshots. Readers load the current snapshot
// without blocking writers and keep evaluating against it even while a new
// version is being published.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry with an initial snapshot.
func NewRegistry(initial *Snapshot) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Current returns the active snapshot.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Publish atomically replaces the active snapshot. The new snapshot must
// carry a version greater than the current one.
func (r *Registry) Publish(snapshot *Snapshot) error {
	for {
		cur := r.current.Load()
		if cur != nil && snapshot.version <= cur.version {
			return dErrors.Newf(dErrors.CodeConflict,
				"snapshot version %d is not newer than active version %d", snapshot.version, cur.version)
		}
		if r.current.CompareAndSwap(cur, snapshot) {
			return nil
		}
	}
}

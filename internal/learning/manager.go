package learning

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chartlinehq/chartline/internal/model"
)

// Manager owns the pattern lifecycle: submission, approval, application
// to facts, and outcome feedback. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	patterns map[string]*model.LearningPattern

	matcher *Matcher
	cfg     model.LearningConfig
}

// NewManager creates a manager with the given tuning. Zero thresholds
// fall back to the defaults.
func NewManager(cfg model.LearningConfig) *Manager {
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = model.DefaultSuccessThreshold
	}
	if cfg.MatchThreshold == 0 {
		cfg.MatchThreshold = model.DefaultMatchThreshold
	}
	if cfg.SuccessAlpha == 0 {
		cfg.SuccessAlpha = model.DefaultSuccessAlpha
	}
	return &Manager{
		patterns: make(map[string]*model.LearningPattern),
		matcher:  NewMatcher(),
		cfg:      cfg,
	}
}

// Load seeds the manager with persisted patterns, keyed by hash.
// Existing in-memory entries with the same hash are replaced.
func (m *Manager) Load(patterns []*model.LearningPattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range patterns {
		if p != nil && p.Hash != "" {
			cp := *p
			m.patterns[p.Hash] = &cp
		}
	}
}

// Submit records a correction candidate in PENDING state. Submitting
// the same correction again updates its context instead of duplicating.
func (m *Manager) Submit(factType model.FactType, original, corrected string, context map[string]string, submitter string) (*model.LearningPattern, error) {
	if original == "" || corrected == "" {
		return nil, fmt.Errorf("correction needs both original and corrected text")
	}
	if original == corrected {
		return nil, fmt.Errorf("correction does not change the text")
	}

	hash := model.PatternHash(factType, original, corrected)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.patterns[hash]; ok {
		if existing.Context == nil {
			existing.Context = make(map[string]string)
		}
		for k, v := range context {
			existing.Context[k] = v
		}
		return m.snapshot(existing), nil
	}

	p := &model.LearningPattern{
		Hash:          hash,
		FactType:      factType,
		OriginalText:  original,
		CorrectedText: corrected,
		Context:       copyContext(context),
		Status:        model.PatternPending,
		CreatedBy:     submitter,
		CreatedAt:     time.Now().UTC(),
		SuccessRate:   1.0,
	}
	m.patterns[hash] = p
	return m.snapshot(p), nil
}

// Approve activates a pending pattern
func (m *Manager) Approve(hash, approver string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patterns[hash]
	if !ok {
		return fmt.Errorf("pattern %s not found", shortHash(hash))
	}
	if p.Status != model.PatternPending {
		return fmt.Errorf("pattern %s is %s, only pending patterns can be approved", shortHash(hash), p.Status)
	}

	now := time.Now().UTC()
	p.Status = model.PatternApproved
	p.ApprovedBy = approver
	p.ApprovedAt = &now
	return nil
}

// Reject declines a pending pattern, keeping it for audit
func (m *Manager) Reject(hash, rejecter, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patterns[hash]
	if !ok {
		return fmt.Errorf("pattern %s not found", shortHash(hash))
	}
	if p.Status != model.PatternPending {
		return fmt.Errorf("pattern %s is %s, only pending patterns can be rejected", shortHash(hash), p.Status)
	}

	p.Status = model.PatternRejected
	p.RejectedBy = rejecter
	p.RejectReason = reason
	return nil
}

// ApplyCorrections rewrites facts that match an active pattern. The
// candidate set is an active-only snapshot taken once per call, so a
// pattern approved or degraded mid-run cannot affect this pass. Each
// fact is corrected at most once, by its best match at or above the
// match threshold. Returns the number of corrections applied.
func (m *Manager) ApplyCorrections(facts []*model.Fact) int {
	active := m.activeSnapshot()
	if len(active) == 0 {
		return 0
	}

	applied := 0
	for _, f := range facts {
		if f.CorrectionApplied {
			continue
		}

		var best *model.LearningPattern
		bestScore := 0.0
		for _, p := range active {
			score := m.matcher.Score(p, f)
			if score > bestScore {
				best, bestScore = p, score
			}
		}
		if best == nil || bestScore < m.cfg.MatchThreshold {
			continue
		}

		f.Text = best.CorrectedText
		f.CorrectionApplied = true
		f.CorrectionPattern = best.Hash
		f.Confidence *= best.SuccessRate
		applied++

		m.mu.Lock()
		if p, ok := m.patterns[best.Hash]; ok {
			p.AppliedCount++
		}
		m.mu.Unlock()
	}
	return applied
}

// RecordOutcome folds one human verdict into a pattern's success rate.
// The rate is an exponential moving average; a degraded pattern drops
// out of the active set while keeping its approved status for audit.
func (m *Manager) RecordOutcome(hash string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patterns[hash]
	if !ok {
		return fmt.Errorf("pattern %s not found", shortHash(hash))
	}

	outcome := 0.0
	if success {
		outcome = 1.0
	}
	p.SuccessRate = (1-m.cfg.SuccessAlpha)*p.SuccessRate + m.cfg.SuccessAlpha*outcome
	return nil
}

// Pending lists patterns awaiting review, oldest first
func (m *Manager) Pending() []*model.LearningPattern {
	return m.listByStatus(model.PatternPending)
}

// Approved lists approved patterns, oldest first
func (m *Manager) Approved() []*model.LearningPattern {
	return m.listByStatus(model.PatternApproved)
}

// All lists every pattern regardless of status
func (m *Manager) All() []*model.LearningPattern {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.LearningPattern, 0, len(m.patterns))
	for _, p := range m.patterns {
		out = append(out, m.snapshot(p))
	}
	sortByCreation(out)
	return out
}

// Get returns a pattern by hash
func (m *Manager) Get(hash string) (*model.LearningPattern, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patterns[hash]
	if !ok {
		return nil, false
	}
	return m.snapshot(p), true
}

// Stats summarizes the pattern population
type Stats struct {
	Total             int     `json:"total"`
	Pending           int     `json:"pending"`
	Approved          int     `json:"approved"`
	Rejected          int     `json:"rejected"`
	Active            int     `json:"active"`
	ApprovalRate      float64 `json:"approval_rate"`
	AvgSuccessRate    float64 `json:"avg_success_rate"`
	TotalApplications int     `json:"total_applications"`
}

// Stats computes counts and rates over all patterns
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	successSum := 0.0
	for _, p := range m.patterns {
		s.Total++
		s.TotalApplications += p.AppliedCount
		switch p.Status {
		case model.PatternPending:
			s.Pending++
		case model.PatternApproved:
			s.Approved++
			successSum += p.SuccessRate
		case model.PatternRejected:
			s.Rejected++
		}
		if p.IsActive(m.cfg.SuccessThreshold) {
			s.Active++
		}
	}
	if decided := s.Approved + s.Rejected; decided > 0 {
		s.ApprovalRate = float64(s.Approved) / float64(decided)
	}
	if s.Approved > 0 {
		s.AvgSuccessRate = successSum / float64(s.Approved)
	}
	return s
}

// activeSnapshot copies the currently applicable patterns
func (m *Manager) activeSnapshot() []*model.LearningPattern {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.LearningPattern
	for _, p := range m.patterns {
		if p.IsActive(m.cfg.SuccessThreshold) {
			out = append(out, m.snapshot(p))
		}
	}
	return out
}

func (m *Manager) listByStatus(status model.PatternStatus) []*model.LearningPattern {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.LearningPattern
	for _, p := range m.patterns {
		if p.Status == status {
			out = append(out, m.snapshot(p))
		}
	}
	sortByCreation(out)
	return out
}

// snapshot copies a pattern so callers never share the internal state
func (m *Manager) snapshot(p *model.LearningPattern) *model.LearningPattern {
	cp := *p
	cp.Context = copyContext(p.Context)
	return &cp
}

func sortByCreation(patterns []*model.LearningPattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].CreatedAt.Before(patterns[j].CreatedAt)
	})
}

func copyContext(ctx map[string]string) map[string]string {
	if ctx == nil {
		return nil
	}
	out := make(map[string]string, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}

package models

// ConfidenceLevel grades how much static approximation was required to
// exclude a definition from the reachable set.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// rank orders confidence levels for threshold filtering.
func (c ConfidenceLevel) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c meets a minimum confidence level.
func (c ConfidenceLevel) AtLeast(min ConfidenceLevel) bool {
	return c.rank() >= min.rank()
}

// ParseConfidenceLevel maps a string to a ConfidenceLevel, defaulting to low.
func ParseConfidenceLevel(s string) ConfidenceLevel {
	switch s {
	case "high":
		return ConfidenceHigh
	case "medium", "med":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Finding is a definition excluded from the reachable set.
type Finding struct {
	Name       string          `json:"name" toon:"name"`
	Kind       Kind            `json:"kind" toon:"kind"`
	File       string          `json:"file" toon:"file"`
	Line       uint32          `json:"line" toon:"line"`
	Column     uint32          `json:"column" toon:"column"`
	Confidence ConfidenceLevel `json:"confidence" toon:"confidence"`
	Reason     string          `json:"reason" toon:"reason"`
}

// DeadCodeSummary provides aggregate statistics for one run.
type DeadCodeSummary struct {
	TotalFilesScanned int            `json:"total_files_scanned" toon:"total_files_scanned"`
	TotalDefinitions  int            `json:"total_definitions" toon:"total_definitions"`
	DeadCodeCount     int            `json:"dead_code_count" toon:"dead_code_count"`
	ReachableCount    int            `json:"reachable_count" toon:"reachable_count"`
	// SpeculativeCount is how many reachable definitions were admitted
	// only by an unresolved reference textually matching their name.
	SpeculativeCount int            `json:"speculative_reachable,omitempty" toon:"speculative_reachable,omitempty"`
	EntryPointCount  int            `json:"entry_point_count" toon:"entry_point_count"`
	Languages        []string       `json:"languages" toon:"languages"`
	ByFile           map[string]int `json:"by_file,omitempty" toon:"by_file,omitempty"`
	ByKind           map[string]int `json:"by_kind,omitempty" toon:"by_kind,omitempty"`
	ByConfidence     map[string]int `json:"by_confidence,omitempty" toon:"by_confidence,omitempty"`
	CyclicGroups     int            `json:"cyclic_groups,omitempty" toon:"cyclic_groups,omitempty"`
}

// NewDeadCodeSummary creates an initialized summary.
func NewDeadCodeSummary() DeadCodeSummary {
	return DeadCodeSummary{
		ByFile:       make(map[string]int),
		ByKind:       make(map[string]int),
		ByConfidence: make(map[string]int),
	}
}

// AddFinding updates the summary with one finding.
func (s *DeadCodeSummary) AddFinding(f Finding) {
	s.DeadCodeCount++
	s.ByFile[f.File]++
	s.ByKind[string(f.Kind)]++
	s.ByConfidence[string(f.Confidence)]++
}

// DeadCodeAnalysis is the full result of one reachability run.
type DeadCodeAnalysis struct {
	Summary  DeadCodeSummary `json:"summary" toon:"summary"`
	Findings []Finding       `json:"dead_code" toon:"dead_code"`
	Warnings []Warning       `json:"warnings,omitempty" toon:"warnings,omitempty"`
}

// HasFindings reports whether any dead code was found.
func (a *DeadCodeAnalysis) HasFindings() bool {
	return len(a.Findings) > 0
}

// FilterByConfidence returns the analysis keeping only findings at or above
// min. The summary counters are rebuilt for the filtered set.
func (a *DeadCodeAnalysis) FilterByConfidence(min ConfidenceLevel) *DeadCodeAnalysis {
	if min == ConfidenceLow || min == "" {
		return a
	}

	filtered := &DeadCodeAnalysis{
		Summary:  NewDeadCodeSummary(),
		Warnings: a.Warnings,
	}
	filtered.Summary.TotalFilesScanned = a.Summary.TotalFilesScanned
	filtered.Summary.TotalDefinitions = a.Summary.TotalDefinitions
	filtered.Summary.ReachableCount = a.Summary.ReachableCount
	filtered.Summary.SpeculativeCount = a.Summary.SpeculativeCount
	filtered.Summary.EntryPointCount = a.Summary.EntryPointCount
	filtered.Summary.Languages = a.Summary.Languages
	filtered.Summary.CyclicGroups = a.Summary.CyclicGroups

	for _, f := range a.Findings {
		if f.Confidence.AtLeast(min) {
			filtered.Findings = append(filtered.Findings, f)
			filtered.Summary.AddFinding(f)
		}
	}
	return filtered
}

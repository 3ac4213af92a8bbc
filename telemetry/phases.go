package telemetry

// Phase names for one host step. The decision phases match
// decision.Phase names.
const (
	PhaseSnapshot    = "snapshot"
	PhaseGathering   = "gathering"
	PhaseScoring     = "scoring"
	PhaseSelecting   = "selecting"
	PhaseDispatching = "dispatching"
	PhaseApply       = "apply"
	PhaseNeeds       = "needs"
	PhaseTelemetry   = "telemetry"
)

// PhaseInfo describes a timed phase for logs and reports.
type PhaseInfo struct {
	ID          string // Key used by PerfCollector
	Name        string // Display name
	Description string
}

// PhaseRegistry holds metadata about all timed phases in step order.
type PhaseRegistry struct {
	phases []PhaseInfo
	byID   map[string]PhaseInfo
}

// NewPhaseRegistry creates a registry with all known phases.
func NewPhaseRegistry() *PhaseRegistry {
	reg := &PhaseRegistry{byID: make(map[string]PhaseInfo)}
	reg.Register(PhaseInfo{ID: PhaseSnapshot, Name: "Snapshot", Description: "Copies host state into the read-only view"})
	reg.Register(PhaseInfo{ID: PhaseGathering, Name: "Gathering", Description: "Builds per-controller jobs"})
	reg.Register(PhaseInfo{ID: PhaseScoring, Name: "Scoring", Description: "Scores every candidate"})
	reg.Register(PhaseInfo{ID: PhaseSelecting, Name: "Selecting", Description: "Picks the winner and applies hysteresis"})
	reg.Register(PhaseInfo{ID: PhaseDispatching, Name: "Dispatching", Description: "Invokes handlers and updates trackers"})
	reg.Register(PhaseInfo{ID: PhaseApply, Name: "Apply", Description: "Applies handler commands to the world"})
	reg.Register(PhaseInfo{ID: PhaseNeeds, Name: "Needs", Description: "Advances villager needs and food stock"})
	reg.Register(PhaseInfo{ID: PhaseTelemetry, Name: "Telemetry", Description: "Flushes stats windows"})
	return reg
}

// Register adds a phase. Re-registering an ID replaces its metadata but
// keeps its position.
func (r *PhaseRegistry) Register(info PhaseInfo) {
	if _, exists := r.byID[info.ID]; exists {
		for i := range r.phases {
			if r.phases[i].ID == info.ID {
				r.phases[i] = info
			}
		}
	} else {
		r.phases = append(r.phases, info)
	}
	r.byID[info.ID] = info
}

// Get returns phase info by ID.
func (r *PhaseRegistry) Get(id string) (PhaseInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a phase ID.
// Falls back to the ID itself if not found.
func (r *PhaseRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// IDs returns phase IDs in step order.
func (r *PhaseRegistry) IDs() []string {
	ids := make([]string, len(r.phases))
	for i, p := range r.phases {
		ids[i] = p.ID
	}
	return ids
}

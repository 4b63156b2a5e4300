package models

// Runner is a race entrant as captured by one poll
type Runner struct {
	RunnerID int64  `json:"runner_id"`
	Name     string `json:"name"`
	Event    string `json:"event"`
	Odds     Odds   `json:"odds"`
}

// RunnerMap maps runner id to the runner's captured state
type RunnerMap map[int64]Runner

// Clone returns a shallow copy; Runner values are immutable so this is a full copy
func (m RunnerMap) Clone() RunnerMap {
	out := make(RunnerMap, len(m))
	for id, r := range m {
		out[id] = r
	}
	return out
}

// Merge overwrites entries in m with every entry of other (last write wins)
func (m RunnerMap) Merge(other RunnerMap) {
	for id, r := range other {
		m[id] = r
	}
}

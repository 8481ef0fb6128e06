// Package progress holds the learner's resumable state and persists it
// through the LMS runtime as suspend data plus a bookmark.
package progress

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// State is everything needed to resume a launch. It is serialized as one
// JSON document into cmi.suspend_data.
type State struct {
	CurrentModule    int       `json:"currentModule"`
	CurrentSlide     int       `json:"currentSlide"`
	CompletedModules ModuleSet `json:"completedModules"`
	// QuizAnswers maps a slide ID ("module-slide") to the chosen option.
	QuizAnswers map[string]int `json:"quizAnswers"`
	// QuizScores is reserved. It is carried through save and load and
	// cleared on restart, but scoring never reads it.
	QuizScores map[string]int `json:"quizScores"`
	// ScenarioChoices keeps the latest choice per simulation slide.
	ScenarioChoices map[string]int `json:"scenarioChoices,omitempty"`
	// StartTime and TotalTime are Unix milliseconds and milliseconds.
	StartTime int64 `json:"startTime"`
	TotalTime int64 `json:"totalTime"`
}

// New returns the default state for a fresh attempt started at now.
func New(now time.Time) *State {
	return &State{
		CompletedModules: ModuleSet{},
		QuizAnswers:      map[string]int{},
		QuizScores:       map[string]int{},
		ScenarioChoices:  map[string]int{},
		StartTime:        now.UnixMilli(),
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.CompletedModules = slices.Clone(s.CompletedModules)
	c.QuizAnswers = maps.Clone(s.QuizAnswers)
	c.QuizScores = maps.Clone(s.QuizScores)
	c.ScenarioChoices = maps.Clone(s.ScenarioChoices)
	c.normalize()
	return &c
}

// Elapsed is the wall time since StartTime.
func (s *State) Elapsed(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-s.StartTime) * time.Millisecond
}

func (s *State) normalize() {
	if s.CompletedModules == nil {
		s.CompletedModules = ModuleSet{}
	}
	if s.QuizAnswers == nil {
		s.QuizAnswers = map[string]int{}
	}
	if s.QuizScores == nil {
		s.QuizScores = map[string]int{}
	}
	if s.ScenarioChoices == nil {
		s.ScenarioChoices = map[string]int{}
	}
}

// ModuleSet is a sorted set of module indexes, encoded as a JSON array.
type ModuleSet []int

// Has reports whether m is in the set.
func (ms ModuleSet) Has(m int) bool {
	_, found := slices.BinarySearch(ms, m)
	return found
}

// Add inserts m and reports whether it was new.
func (ms *ModuleSet) Add(m int) bool {
	i, found := slices.BinarySearch(*ms, m)
	if found {
		return false
	}
	*ms = slices.Insert(*ms, i, m)
	return true
}

// UnmarshalJSON accepts any array of integers, unsorted or with duplicates.
func (ms *ModuleSet) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	slices.Sort(raw)
	*ms = slices.Compact(raw)
	if *ms == nil {
		*ms = ModuleSet{}
	}
	return nil
}

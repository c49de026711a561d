// Package healthcare models finite hospital/ICU capacity and the daily
// testing pipeline: a per-day testing queue, a detection policy driven by
// the current testing mode, and recursive contact tracing.
package healthcare

import (
	"fmt"
	"sync"

	"nathangeffen/epidemic-abm/disease"
	"nathangeffen/epidemic-abm/randompool"
)

// TestingMode controls who gets queued for testing when they fall ill.
type TestingMode int

const (
	NoTesting TestingMode = iota
	AllWithSymptomsCT
	AllWithSymptoms
	OnlySevereSymptoms
)

func (m TestingMode) String() string {
	switch m {
	case NoTesting:
		return "no_testing"
	case AllWithSymptomsCT:
		return "all_with_symptoms_ct"
	case AllWithSymptoms:
		return "all_with_symptoms"
	case OnlySevereSymptoms:
		return "only_severe_symptoms"
	default:
		return "unknown"
	}
}

// Roster is the minimal view of the agent population the healthcare system
// needs in order to run the testing queue and contact tracing. abm.Context
// implements this; the healthcare package never imports abm.
type Roster interface {
	Dead(idx int) bool
	Infected(idx int) bool
	Detected(idx int) bool
	Queued(idx int) bool
	SetQueued(idx int)
	MarkDetected(idx int)
	Severity(idx int) disease.Severity
	SourceInfectiousness(idx int) float64
	HospitalizedOrICU(idx int) bool
	Infector(idx int) (int, bool)
	Infectees(idx int) []int
}

// System owns bed/ICU capacity accounting and the testing pipeline.
type System struct {
	mu sync.Mutex

	beds           int
	icuUnits       int
	availableBeds  int
	availableICU   int
	testsRunPerDay int
	mode           TestingMode
	queue          []int

	pDetectedAnyway float64
	rng             *randompool.Pool
}

// New builds a System with the given starting capacity and the probability
// that a non-severe case is tested anyway under OnlySevereSymptoms mode.
func New(beds, icuUnits int, pDetectedAnyway float64, rng *randompool.Pool) *System {
	return &System{
		beds:            beds,
		icuUnits:        icuUnits,
		availableBeds:   beds,
		availableICU:    icuUnits,
		pDetectedAnyway: pDetectedAnyway,
		rng:             rng,
	}
}

// SetMode changes the active testing mode, as driven by an intervention.
func (s *System) SetMode(m TestingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Mode returns the active testing mode.
func (s *System) Mode() TestingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// AddBeds increases both total and available hospital bed capacity, as
// driven by the build-new-hospital-beds intervention.
func (s *System) AddBeds(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beds += n
	s.availableBeds += n
}

// AddICUUnits increases both total and available ICU capacity, as driven
// by the build-new-icu-units intervention.
func (s *System) AddICUUnits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.icuUnits += n
	s.availableICU += n
}

// Beds, ICUUnits, AvailableBeds and AvailableICU report current capacity.
func (s *System) Beds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beds
}

func (s *System) ICUUnits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.icuUnits
}

func (s *System) AvailableBeds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableBeds
}

func (s *System) AvailableICU() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableICU
}

// TestsRunPerDay reports how many tests the most recent Iterate call ran.
func (s *System) TestsRunPerDay() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testsRunPerDay
}

// Hospitalize reserves a bed if one is available.
func (s *System) Hospitalize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.availableBeds <= 0 {
		return false
	}
	s.availableBeds--
	return true
}

// ToICU reserves an ICU unit if one is available.
func (s *System) ToICU() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.availableICU <= 0 {
		return false
	}
	s.availableICU--
	return true
}

// Release returns one hospital bed to the pool.
func (s *System) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.availableBeds < s.beds {
		s.availableBeds++
	}
}

// ReleaseFromICU returns one ICU unit to the pool.
func (s *System) ReleaseFromICU() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.availableICU < s.icuUnits {
		s.availableICU++
	}
}

// QueueForTesting enqueues idx for testing unless it is dead, already
// detected, or already queued. queued_for_testing is set on success and is
// never cleared by this package — it is documented behavior, not a bug
// (see SPEC_FULL.md / DESIGN.md): once an agent has been processed by the
// queue once, it can never be queued again.
func (s *System) QueueForTesting(idx int, roster Roster) bool {
	if roster.Dead(idx) || roster.Detected(idx) || roster.Queued(idx) {
		return false
	}
	roster.SetQueued(idx)
	s.mu.Lock()
	s.queue = append(s.queue, idx)
	s.mu.Unlock()
	return true
}

// SeekTesting is called when a symptomatic agent becomes ill and is not yet
// detected. Eligibility depends on the active testing mode.
func (s *System) SeekTesting(idx int, roster Roster) {
	switch s.Mode() {
	case AllWithSymptomsCT, AllWithSymptoms:
		s.QueueForTesting(idx, roster)
	case OnlySevereSymptoms:
		sev := roster.Severity(idx)
		if sev == disease.Severe || sev == disease.Critical {
			s.QueueForTesting(idx, roster)
		} else if s.rng.Chance(s.pDetectedAnyway) {
			s.QueueForTesting(idx, roster)
		}
	case NoTesting:
		// nothing to do
	}
}

// IsDetected reports whether a queued agent's test comes back positive.
// Test sensitivity is not modeled (an open question, preserved as-is): an
// agent is detected if currently infectious, or already in a hospital/ICU
// bed regardless of community infectiousness.
func (s *System) IsDetected(idx int, roster Roster) bool {
	return roster.SourceInfectiousness(idx) > 0 || roster.HospitalizedOrICU(idx)
}

// Iterate drains the testing queue once per tick: it snapshots and clears
// the queue, records TestsRunPerDay, and for each queued agent that is
// still infected and undetected, rolls IsDetected and marks it on success.
// Under AllWithSymptomsCT it additionally triggers contact tracing from the
// root of each newly detected agent. An invariant violation (a dequeued
// agent that isn't marked queued) is reported as an error rather than
// panicking, so the caller can fold it into its own failure taxonomy.
func (s *System) Iterate(roster Roster) error {
	s.mu.Lock()
	snapshot := s.queue
	s.queue = nil
	s.testsRunPerDay = len(snapshot)
	mode := s.mode
	s.mu.Unlock()

	for _, idx := range snapshot {
		if !roster.Queued(idx) {
			return fmt.Errorf("healthcare: dequeued agent %d was not marked queued", idx)
		}
		if !roster.Infected(idx) || roster.Detected(idx) {
			continue
		}
		if s.IsDetected(idx, roster) {
			roster.MarkDetected(idx)
			if mode == AllWithSymptomsCT {
				s.PerformContactTracing(idx, 0, roster)
			}
		}
	}
	return nil
}

// PerformContactTracing queues idx's infector and infectees for testing,
// recursing one level further from each newly queued contact. Recursion
// depth is statically bounded at 2 (root + one recursion) and assumes
// perfect recall of who infected whom (an open question, preserved as-is).
func (s *System) PerformContactTracing(idx, level int, roster Roster) {
	if level > 1 {
		return
	}
	if infector, ok := roster.Infector(idx); ok {
		if s.QueueForTesting(infector, roster) {
			s.PerformContactTracing(infector, level+1, roster)
		}
	}
	for _, infectee := range roster.Infectees(idx) {
		if s.QueueForTesting(infectee, roster) {
			s.PerformContactTracing(infectee, level+1, roster)
		}
	}
}

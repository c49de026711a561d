// Package population tracks age-indexed epidemic counters and the
// population-wide mobility/gathering modifiers used to sample how many
// contacts an agent makes on a given day.
package population

import (
	"math"
	"sort"
	"sync"

	"nathangeffen/epidemic-abm/classedvalues"
	"nathangeffen/epidemic-abm/randompool"
)

// AgedPerson is the minimal view of an agent Population needs: its age.
type AgedPerson interface {
	Age() int
}

// Counts is a point-in-time snapshot of one age bracket's counters.
type Counts struct {
	Susceptible  int
	Infected     int
	AllInfected  int
	Detected     int
	AllDetected  int
	Recovered    int
	Hospitalized int
	InICU        int
	Dead         int
}

// Population holds per-age counters and mobility modifiers. All mutation
// methods are safe to call concurrently from the parallel per-tick agent
// advance; a single mutex guards the whole structure since updates are
// small, frequent, and cheap relative to lock overhead at realistic agent
// counts.
type Population struct {
	mu       sync.Mutex
	counters map[int]*Counts

	avgContactsPerDay  *classedvalues.Values
	mobilityFactor     float64
	massGatheringLimit int

	rng *randompool.Pool
}

// New builds a Population from initial per-age susceptible counts and the
// age-indexed average-contacts-per-day curve.
func New(ageCounts map[int]int, avgContactsPerDay []classedvalues.Entry, rng *randompool.Pool) *Population {
	p := &Population{
		counters:          make(map[int]*Counts, len(ageCounts)),
		avgContactsPerDay: classedvalues.New(avgContactsPerDay),
		mobilityFactor:    1.0,
		rng:               rng,
	}
	for age, n := range ageCounts {
		p.counters[age] = &Counts{Susceptible: n}
	}
	return p
}

func (p *Population) bucket(age int) *Counts {
	c, ok := p.counters[age]
	if !ok {
		c = &Counts{}
		p.counters[age] = c
	}
	return c
}

// Infect moves one agent of the given age from susceptible to infected.
func (p *Population) Infect(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.bucket(age)
	c.Susceptible--
	c.Infected++
	c.AllInfected++
}

// Detect marks one agent of the given age as newly detected.
func (p *Population) Detect(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.bucket(age)
	c.Detected++
	c.AllDetected++
}

// Hospitalize records that one infected agent now occupies a hospital bed.
func (p *Population) Hospitalize(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bucket(age).Hospitalized++
}

// TransferToICU records that one infected agent now occupies an ICU unit.
func (p *Population) TransferToICU(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bucket(age).InICU++
}

// ReleaseFromHospital frees the hospital-bed counter for one agent; it does
// not change the infected/recovered/dead counters, which the caller updates
// separately via Recover or Die.
func (p *Population) ReleaseFromHospital(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bucket(age).Hospitalized--
}

// ReleaseFromICU frees the ICU counter for one agent.
func (p *Population) ReleaseFromICU(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bucket(age).InICU--
}

// Recover moves one infected agent of the given age to recovered.
func (p *Population) Recover(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.bucket(age)
	c.Infected--
	c.Recovered++
}

// Die moves one infected agent of the given age to dead.
func (p *Population) Die(age int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.bucket(age)
	c.Infected--
	c.Dead++
}

// SetMobilityFactor applies a population-wide mobility modifier, as driven
// by the limit-mobility intervention.
func (p *Population) SetMobilityFactor(f float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mobilityFactor = f
}

// SetMassGatheringLimit caps sampled daily contacts at n (0 disables the
// cap), as driven by the limit-mass-gatherings intervention.
func (p *Population) SetMassGatheringLimit(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.massGatheringLimit = n
}

// ContactsPerDay samples how many contacts an agent makes today:
//
//	f = factor * mobilityFactor * lognormal(0, 0.5) * avgContactsPerDay(age)
//	contacts = floor(f) - 1, saturated at 0
//
// then clamped to the mass-gathering limit (if enabled) and to limit.
func (p *Population) ContactsPerDay(person AgedPerson, factor float64, limit int) int {
	p.mu.Lock()
	mobility := p.mobilityFactor
	gatheringLimit := p.massGatheringLimit
	p.mu.Unlock()

	avg := p.avgContactsPerDay.GetGreatestLTE(person.Age())
	f := factor * mobility * p.rng.Lognormal(0, 0.5) * avg
	contacts := int(math.Floor(f)) - 1
	if contacts < 0 {
		contacts = 0
	}
	if gatheringLimit > 0 && contacts > gatheringLimit {
		contacts = gatheringLimit
	}
	if contacts > limit {
		contacts = limit
	}
	return contacts
}

// ContactsPerDayDefault is ContactsPerDay with factor=1.0 and limit=100.
func (p *Population) ContactsPerDayDefault(person AgedPerson) int {
	return p.ContactsPerDay(person, 1.0, 100)
}

// Ages returns the sorted list of ages for which counters exist.
func (p *Population) Ages() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ages := make([]int, 0, len(p.counters))
	for age := range p.counters {
		ages = append(ages, age)
	}
	sort.Ints(ages)
	return ages
}

// Snapshot returns a copy of the counters for the given age.
func (p *Population) Snapshot(age int) Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[age]; ok {
		return *c
	}
	return Counts{}
}

package abm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nathangeffen/epidemic-abm/disease"
	"nathangeffen/epidemic-abm/healthcare"
	"nathangeffen/epidemic-abm/population"
	"nathangeffen/epidemic-abm/randompool"
)

// chunkSize is the number of agent indices a single worker claims from the
// shared cursor at a time during the parallel per-tick advance, generalizing
// runsim.go's one-goroutine-per-simulation sync.WaitGroup pattern down to
// one-goroutine-per-chunk-of-agents.
const chunkSize = 10000

// ModelState is the snapshot generate_state() returns: per-age counters plus
// the scalar, whole-population figures.
type ModelState struct {
	Day                int
	Ages               []int
	Counts             map[int]population.Counts
	AvailableBeds      int
	AvailableICUUnits  int
	ExposedPerDay      int64
	TestsRunPerDay     int
	R                  float64
}

// Context owns the agent array and drives the simulation one day at a time.
// It implements healthcare.Roster so the healthcare package can query and
// mutate agents without importing abm.
type Context struct {
	people []Person

	population *population.Population
	disease    *disease.Disease
	healthcare *healthcare.System
	rng        *randompool.Pool

	startDate time.Time
	day       int

	interventions []Intervention

	totalInfectors  int64
	totalInfections int64
	exposedPerDay   int64

	problemMu sync.Mutex
	problem   SimulationProblem
}

// New constructs a Context and allocates every agent (all Susceptible),
// deriving ages and per-age counts from pop's current snapshot. startDateISO
// is an RFC3339 date ("2020-03-01") used as the epoch for AddIntervention's
// day-offset conversion.
func New(pop *population.Population, hc *healthcare.System, dis *disease.Disease, rng *randompool.Pool, startDateISO string) (*Context, error) {
	start, err := time.Parse("2006-01-02", startDateISO)
	if err != nil {
		return nil, fmt.Errorf("abm: invalid start date %q: %w", startDateISO, err)
	}

	c := &Context{
		population: pop,
		disease:    dis,
		healthcare: hc,
		rng:        rng,
		startDate:  start,
	}

	var total int
	ages := pop.Ages()
	agesForIdx := make([]int, 0, total)
	for _, age := range ages {
		n := pop.Snapshot(age).Susceptible
		for i := 0; i < n; i++ {
			agesForIdx = append(agesForIdx, age)
		}
	}
	total = len(agesForIdx)

	c.people = make([]Person, total)
	for i, age := range agesForIdx {
		c.people[i].ctx = c
		c.people[i].idx = i
		c.people[i].age = age
		c.people[i].state = disease.Susceptible
		c.people[i].infector = noInfector
	}
	return c, nil
}

// Day returns the current simulated day, 0-based from construction.
func (c *Context) Day() int { return c.day }

// flagProblem records the first SimulationProblem raised during a tick.
// First-write-wins: once a problem is set, later calls are no-ops.
func (c *Context) flagProblem(p SimulationProblem) {
	c.problemMu.Lock()
	defer c.problemMu.Unlock()
	if c.problem == NoProblem {
		c.problem = p
	}
}

// --- healthcare.Roster ---

func (c *Context) Dead(idx int) bool     { return c.people[idx].state == disease.Dead }
func (c *Context) Infected(idx int) bool { return c.people[idx].isInfected }
func (c *Context) Detected(idx int) bool { return c.people[idx].wasDetected }
func (c *Context) Queued(idx int) bool   { return c.people[idx].queued }

func (c *Context) SetQueued(idx int) {
	c.people[idx].queued = true
}

// MarkDetected marks idx as detected exactly once, updating Population's
// detected counters the first time it is called for a given agent.
func (c *Context) MarkDetected(idx int) {
	p := &c.people[idx]
	if p.wasDetected {
		return
	}
	p.wasDetected = true
	c.population.Detect(p.age)
}

func (c *Context) Severity(idx int) disease.Severity { return c.people[idx].severity }

func (c *Context) SourceInfectiousness(idx int) float64 {
	return c.disease.SourceInfectiousness(&c.people[idx])
}

func (c *Context) HospitalizedOrICU(idx int) bool {
	s := c.people[idx].state
	return s == disease.Hospitalized || s == disease.InIcu
}

func (c *Context) Infector(idx int) (int, bool) {
	inf := c.people[idx].infector
	return inf, inf != noInfector
}

func (c *Context) Infectees(idx int) []int {
	p := &c.people[idx]
	if p.infectees == nil {
		return nil
	}
	return p.infectees[:p.nrInfectees]
}

// AddIntervention schedules name/value for application at the start of the
// day computed from dateISO relative to startDate.
func (c *Context) AddIntervention(dateISO, name string, value int) error {
	d, err := time.Parse("2006-01-02", dateISO)
	if err != nil {
		return fmt.Errorf("abm: invalid intervention date %q: %w", dateISO, err)
	}
	day := int(d.Sub(c.startDate).Hours() / 24)
	c.interventions = append(c.interventions, Intervention{Day: day, Name: name, Value: value})
	return nil
}

// applyInterventions applies every intervention scheduled for today.
func (c *Context) applyInterventions() {
	for _, iv := range c.interventions {
		if iv.Day == c.day {
			c.applyIntervention(iv)
		}
	}
}

// InfectPeople draws count agent indices uniformly (with replacement) and
// infects each drawn agent with no recorded source, as used by the
// import-infections intervention and directly by callers seeding a run. A
// drawn agent that is already infected or immune is skipped, so fewer than
// count agents may be newly infected.
func (c *Context) InfectPeople(count int) error {
	for i := 0; i < count; i++ {
		idx := c.rng.Intn(len(c.people))
		p := &c.people[idx]
		p.mu.Lock()
		var err error
		if !p.isInfected && !p.isImmune() {
			err = p.infect(nil)
		}
		p.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Iterate advances the simulation by one day: applies due interventions,
// resets per-day counters, drains the healthcare testing queue, then runs
// the parallel agent advance. It returns a *ProblemError if any agent
// flagged a SimulationProblem during the tick.
func (c *Context) Iterate() error {
	c.problemMu.Lock()
	c.problem = NoProblem
	c.problemMu.Unlock()

	c.applyInterventions()

	atomic.StoreInt64(&c.exposedPerDay, 0)

	if err := c.healthcare.Iterate(c); err != nil {
		return fmt.Errorf("abm: day %d: %w", c.day, err)
	}

	var cursor atomic.Int64
	total := int64(len(c.people))
	var wg sync.WaitGroup

	workers := (len(c.people) + chunkSize - 1) / chunkSize
	if workers < 1 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				start := cursor.Add(chunkSize) - chunkSize
				if start >= total {
					return
				}
				end := start + chunkSize
				if end > total {
					end = total
				}
				c.advanceChunk(int(start), int(end))
			}
		}()
	}
	wg.Wait()

	c.problemMu.Lock()
	problem := c.problem
	c.problemMu.Unlock()
	if problem != NoProblem {
		return &ProblemError{Day: c.day, Problem: problem}
	}

	c.day++
	return nil
}

// advanceChunk advances agents [start, end) by one day, folding cumulative
// totals and surfacing any error as a flagged SimulationProblem.
func (c *Context) advanceChunk(start, end int) {
	for i := start; i < end; i++ {
		p := &c.people[i]

		p.mu.Lock()
		terminal := p.state == disease.Recovered || p.state == disease.Dead
		notYetTotaled := !p.includedInTotals
		if terminal && notYetTotaled {
			p.includedInTotals = true
			infected := p.otherPeopleInfected
			p.mu.Unlock()
			atomic.AddInt64(&c.totalInfections, int64(infected))
			atomic.AddInt64(&c.totalInfectors, 1)
			continue
		}
		if !p.isInfected {
			p.mu.Unlock()
			continue
		}
		err := p.advanceOneDay()
		exposedToday := p.otherPeopleExposedToday
		p.mu.Unlock()

		if err != nil {
			if pe, ok := err.(*ProblemError); ok {
				c.flagProblem(pe.Problem)
			} else {
				c.flagProblem(OtherFailure)
			}
			continue
		}
		atomic.AddInt64(&c.exposedPerDay, int64(exposedToday))
	}
}

// GenerateState returns a point-in-time snapshot of every per-age counter
// bucket plus the whole-population scalars.
func (c *Context) GenerateState() ModelState {
	ages := c.population.Ages()
	counts := make(map[int]population.Counts, len(ages))
	for _, age := range ages {
		counts[age] = c.population.Snapshot(age)
	}

	totalInfectors := atomic.LoadInt64(&c.totalInfectors)
	totalInfections := atomic.LoadInt64(&c.totalInfections)
	var r float64
	if totalInfectors > 5 {
		r = float64(totalInfections) / float64(totalInfectors)
	}

	return ModelState{
		Day:               c.day,
		Ages:              ages,
		Counts:            counts,
		AvailableBeds:     c.healthcare.AvailableBeds(),
		AvailableICUUnits: c.healthcare.AvailableICU(),
		ExposedPerDay:     atomic.LoadInt64(&c.exposedPerDay),
		TestsRunPerDay:    c.healthcare.TestsRunPerDay(),
		R:                 r,
	}
}

// LogState renders GenerateState as one structured zerolog event, the
// descendant of the teacher's Report(iteration int).
func (c *Context) LogState(logger zerolog.Logger) {
	s := c.GenerateState()
	var susceptible, infected, recovered, dead int
	for _, cnt := range s.Counts {
		susceptible += cnt.Susceptible
		infected += cnt.Infected
		recovered += cnt.Recovered
		dead += cnt.Dead
	}
	logger.Info().
		Int("day", s.Day).
		Int("susceptible", susceptible).
		Int("infected", infected).
		Int("recovered", recovered).
		Int("dead", dead).
		Int("available_beds", s.AvailableBeds).
		Int("available_icu_units", s.AvailableICUUnits).
		Int64("exposed_per_day", s.ExposedPerDay).
		Int("tests_run_per_day", s.TestsRunPerDay).
		Float64("r", s.R).
		Msg("tick")
}

// Sample runs a single synthetic agent of the given age through what,
// 10000 times, returning the raw draws for distribution inspection. For
// "infectiousness", age is ignored and the infectiousness-over-time curve is
// returned for days [-100, 100).
func (c *Context) Sample(what string, age int) []float64 {
	const trials = 10000

	if what == "infectiousness" {
		out := make([]float64, 0, 200)
		for day := -100; day < 100; day++ {
			out = append(out, c.disease.GetInfectiousnessOverTime(day))
		}
		return out
	}

	out := make([]float64, 0, trials)
	sample := newPerson(c, -1, age)
	for i := 0; i < trials; i++ {
		switch what {
		case "contacts_per_day":
			out = append(out, float64(c.population.ContactsPerDayDefault(sample)))
		case "symptom_severity":
			out = append(out, float64(c.disease.SymptomSeverity(age)))
		case "incubation_period":
			out = append(out, float64(c.disease.IncubationDays()))
		case "illness_period":
			out = append(out, float64(c.disease.IllnessDays()))
		case "hospitalization_period":
			out = append(out, float64(c.disease.HospitalizationDays()))
		case "icu_period":
			out = append(out, float64(c.disease.ICUDays()))
		}
	}
	return out
}

// Package disease holds the epidemiological parameters and sampling
// functions: incubation/illness/hospitalization/ICU duration, symptom
// severity, the infectiousness-over-time curve, and the Bernoulli trials
// for transmission and in-hospital death.
package disease

import (
	"math"

	"nathangeffen/epidemic-abm/classedvalues"
	"nathangeffen/epidemic-abm/population"
	"nathangeffen/epidemic-abm/randompool"
)

// State is an agent's place in the disease state machine.
type State int

const (
	Susceptible State = iota
	Incubation
	Illness
	Hospitalized
	InIcu
	Recovered
	Dead
)

func (s State) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Incubation:
		return "incubation"
	case Illness:
		return "illness"
	case Hospitalized:
		return "hospitalized"
	case InIcu:
		return "in_icu"
	case Recovered:
		return "recovered"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Severity is the clinical severity assigned to an agent at infection time.
// It is meaningful only once an agent is infected.
type Severity int

const (
	Asymptomatic Severity = iota
	Mild
	Severe
	Critical
)

func (s Severity) String() string {
	switch s {
	case Asymptomatic:
		return "asymptomatic"
	case Mild:
		return "mild"
	case Severe:
		return "severe"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Carrier is the minimal read-only view of an agent that the disease model
// needs in order to sample infectiousness and exposure counts. abm.Person
// satisfies this interface; the disease package never imports abm.
type Carrier interface {
	Age() int
	State() State
	Severity() Severity
	DaysLeft() int
	DayOfIllness() int
	WasDetected() bool
}

// infectiousnessPoint is one entry of the infectiousness-over-time curve,
// keyed by day relative to symptom onset (negative = before onset).
type infectiousnessPoint struct {
	day    int
	weight float64
}

// infectiousnessOverTime is a hard-coded table; every day not listed
// contributes zero.
var infectiousnessOverTime = []infectiousnessPoint{
	{-2, 0.12}, {-1, 0.29}, {0, 0.27}, {1, 0.07}, {2, 0.05}, {3, 0.04},
	{4, 0.03}, {5, 0.02}, {6, 0.02}, {7, 0.01}, {8, 0.01}, {9, 0.01}, {10, 0.01},
}

func infectiousnessWeight(day int) float64 {
	for _, p := range infectiousnessOverTime {
		if p.day == day {
			return p.weight
		}
	}
	return 0
}

// Params holds the Bernoulli and duration-sampling parameters of the
// disease model.
type Params struct {
	PInfection                float64
	PAsymptomatic             float64
	PSevere                   []classedvalues.Entry
	PCritical                 []classedvalues.Entry
	PHospitalDeath            float64
	PICUDeath                 float64
	PHospitalDeathNoBeds      float64
	PICUDeathNoBeds           float64
	MeanIllnessDuration       float64
	MeanHospitalizationDuration float64
	MeanICUDuration           float64
}

// Disease samples disease-parameter values and durations, and answers
// transmission/severity/mortality questions, against a shared Population
// (for age-indexed average contact rates) and RandomPool.
type Disease struct {
	params     Params
	pSevere    *classedvalues.Values
	pCritical  *classedvalues.Values
	population *population.Population
	rng        *randompool.Pool
}

// New builds a Disease model bound to the given Population (for
// contacts-per-day sampling) and RandomPool.
func New(params Params, pop *population.Population, rng *randompool.Pool) *Disease {
	return &Disease{
		params:     params,
		pSevere:    classedvalues.New(params.PSevere),
		pCritical:  classedvalues.New(params.PCritical),
		population: pop,
		rng:        rng,
	}
}

// GetInfectiousnessOverTime returns the infectiousness table's weight for
// day, scaled by PInfection.
func (d *Disease) GetInfectiousnessOverTime(day int) float64 {
	return infectiousnessWeight(day) * d.params.PInfection
}

// SourceInfectiousness returns how infectious person is today, as a
// probability in [0,1]. Only Incubation and Illness carriers are
// infectious; everyone else contributes zero.
func (d *Disease) SourceInfectiousness(person Carrier) float64 {
	var day int
	switch person.State() {
	case Incubation:
		day = -person.DaysLeft()
	case Illness:
		day = person.DayOfIllness()
	default:
		return 0
	}
	return d.GetInfectiousnessOverTime(day)
}

// DidInfect rolls whether an exposure from source succeeds. The original
// model does not discount transmission for an asymptomatic source (an open
// question noted in the source material); this is preserved rather than
// silently "fixed".
func (d *Disease) DidInfect(source Carrier) bool {
	return d.rng.Chance(d.SourceInfectiousness(source))
}

// PeopleExposed returns how many contacts an infectious, undetected carrier
// makes today. Detected (quarantined) or non-infectious agents make none.
// Symptomatic illness halves the contact rate and caps it at 5; all other
// infectious states use the population's default contact sampling.
func (d *Disease) PeopleExposed(person Carrier) int {
	if person.WasDetected() {
		return 0
	}
	switch person.State() {
	case Incubation:
		return d.population.ContactsPerDayDefault(person)
	case Illness:
		if person.Severity() == Asymptomatic {
			return d.population.ContactsPerDayDefault(person)
		}
		return d.population.ContactsPerDay(person, 0.5, 5)
	default:
		return 0
	}
}

// DiesInHospital rolls whether a hospitalized or ICU agent dies, using the
// probability that matches the (inICU, careAvailable) combination.
func (d *Disease) DiesInHospital(inICU, careAvailable bool) bool {
	var p float64
	switch {
	case inICU && careAvailable:
		p = d.params.PICUDeath
	case inICU && !careAvailable:
		p = d.params.PICUDeathNoBeds
	case !inICU && careAvailable:
		p = d.params.PHospitalDeath
	default:
		p = d.params.PHospitalDeathNoBeds
	}
	return d.rng.Chance(p)
}

// SymptomSeverity samples a Severity for a newly infected agent of the
// given age from the age-indexed p_severe/p_critical curves and the
// flat p_asymptomatic probability.
func (d *Disease) SymptomSeverity(age int) Severity {
	u := float64(d.rng.Get())
	sc := d.pSevere.GetGreatestLTE(age)
	cc := d.pCritical.GetGreatestLTE(age)
	switch {
	case u < sc*cc:
		return Critical
	case u < sc:
		return Severe
	case u < 1-d.params.PAsymptomatic:
		return Mild
	default:
		return Asymptomatic
	}
}

// durationDays implements the shared "1 + floor(lognormal(mu,sigma)*scale)"
// sampler, clamped to [1, cap].
func durationDays(rng *randompool.Pool, mu, sigma, scale float64, cap int) int {
	d := 1 + int(math.Floor(rng.Lognormal(mu, sigma)*scale))
	if d < 1 {
		d = 1
	}
	if d > cap {
		d = cap
	}
	return d
}

// IncubationDays samples the number of days an agent spends in Incubation.
// Independent of MeanIllnessDuration by design.
func (d *Disease) IncubationDays() int {
	return durationDays(d.rng, 1.0, 0.4, 1.5, 14)
}

// IllnessDays samples the number of days an agent spends in Illness.
func (d *Disease) IllnessDays() int {
	return durationDays(d.rng, 0, 0.6, d.params.MeanIllnessDuration, 40)
}

// HospitalizationDays samples the number of days an agent spends
// Hospitalized.
func (d *Disease) HospitalizationDays() int {
	return durationDays(d.rng, 0, 0.5, d.params.MeanHospitalizationDuration, 50)
}

// ICUDays samples the number of days an agent spends InIcu.
func (d *Disease) ICUDays() int {
	return durationDays(d.rng, 0, 0.3, d.params.MeanICUDuration, 50)
}

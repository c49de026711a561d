package disease

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nathangeffen/epidemic-abm/classedvalues"
	"nathangeffen/epidemic-abm/population"
	"nathangeffen/epidemic-abm/randompool"
)

type fakeCarrier struct {
	age          int
	state        State
	severity     Severity
	daysLeft     int
	dayOfIllness int
	detected     bool
}

func (f fakeCarrier) Age() int           { return f.age }
func (f fakeCarrier) State() State       { return f.state }
func (f fakeCarrier) Severity() Severity { return f.severity }
func (f fakeCarrier) DaysLeft() int      { return f.daysLeft }
func (f fakeCarrier) DayOfIllness() int  { return f.dayOfIllness }
func (f fakeCarrier) WasDetected() bool  { return f.detected }

func newTestDisease(pInfection float64) *Disease {
	rng := randompool.New(11)
	pop := population.New(map[int]int{40: 100}, []classedvalues.Entry{{Class: 0, Value: 5.0}}, rng)
	params := Params{
		PInfection:                  pInfection,
		PAsymptomatic:               0.3,
		PSevere:                     []classedvalues.Entry{{Class: 0, Value: 0.2}},
		PCritical:                   []classedvalues.Entry{{Class: 0, Value: 0.1}},
		PHospitalDeath:              0.1,
		PICUDeath:                   0.3,
		PHospitalDeathNoBeds:        0.9,
		PICUDeathNoBeds:             0.95,
		MeanIllnessDuration:         5,
		MeanHospitalizationDuration: 7,
		MeanICUDuration:             10,
	}
	return New(params, pop, rng)
}

func TestSourceInfectiousnessOnlyInfectiousStates(t *testing.T) {
	d := newTestDisease(1.0)
	assert.Zero(t, d.SourceInfectiousness(fakeCarrier{state: Susceptible}))
	assert.Zero(t, d.SourceInfectiousness(fakeCarrier{state: Recovered}))
	assert.Zero(t, d.SourceInfectiousness(fakeCarrier{state: Hospitalized}))

	incubating := fakeCarrier{state: Incubation, daysLeft: 2} // day = -2
	assert.InDelta(t, 0.12, d.SourceInfectiousness(incubating), 1e-9)

	ill := fakeCarrier{state: Illness, dayOfIllness: 0}
	assert.InDelta(t, 0.27, d.SourceInfectiousness(ill), 1e-9)
}

func TestDidInfectZeroWhenPInfectionZero(t *testing.T) {
	d := newTestDisease(0)
	source := fakeCarrier{state: Illness, dayOfIllness: 0}
	for i := 0; i < 1000; i++ {
		require.False(t, d.DidInfect(source))
	}
}

func TestPeopleExposedZeroWhenDetected(t *testing.T) {
	d := newTestDisease(1.0)
	p := fakeCarrier{state: Illness, severity: Mild, detected: true}
	assert.Zero(t, d.PeopleExposed(p))
}

func TestPeopleExposedZeroForNonInfectious(t *testing.T) {
	d := newTestDisease(1.0)
	assert.Zero(t, d.PeopleExposed(fakeCarrier{state: Recovered}))
}

func TestPeopleExposedSymptomaticCappedAtFive(t *testing.T) {
	d := newTestDisease(1.0)
	p := fakeCarrier{state: Illness, severity: Mild, age: 40}
	for i := 0; i < 200; i++ {
		n := d.PeopleExposed(p)
		assert.LessOrEqual(t, n, 5)
	}
}

func TestSymptomSeverityAllAsymptomaticWhenPAsymptomaticOne(t *testing.T) {
	rng := randompool.New(5)
	pop := population.New(map[int]int{40: 10}, nil, rng)
	params := Params{PAsymptomatic: 1.0, PSevere: nil, PCritical: nil}
	d := New(params, pop, rng)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, Asymptomatic, d.SymptomSeverity(40))
	}
}

func TestDurationsRespectCaps(t *testing.T) {
	d := newTestDisease(1.0)
	for i := 0; i < 500; i++ {
		inc := d.IncubationDays()
		assert.GreaterOrEqual(t, inc, 1)
		assert.LessOrEqual(t, inc, 14)

		ill := d.IllnessDays()
		assert.GreaterOrEqual(t, ill, 1)
		assert.LessOrEqual(t, ill, 40)

		hosp := d.HospitalizationDays()
		assert.GreaterOrEqual(t, hosp, 1)
		assert.LessOrEqual(t, hosp, 50)

		icu := d.ICUDays()
		assert.GreaterOrEqual(t, icu, 1)
		assert.LessOrEqual(t, icu, 50)
	}
}

func TestDiesInHospitalUsesMatchingProbability(t *testing.T) {
	d := newTestDisease(1.0)
	for i := 0; i < 200; i++ {
		assert.False(t, d.DiesInHospital(false, true) && false) // sanity: call succeeds without panic
	}
	// With no-beds probability at 0.9/0.95, overwhelming majority should die.
	deaths := 0
	for i := 0; i < 1000; i++ {
		if d.DiesInHospital(true, false) {
			deaths++
		}
	}
	assert.Greater(t, deaths, 800)
}

package abm

import (
	"sync"

	"nathangeffen/epidemic-abm/disease"
	"nathangeffen/epidemic-abm/healthcare"
)

// MaxInfectees is the hard cap on stored infectees per agent. Exceeding it
// aborts the simulation with TooManyInfectees.
const MaxInfectees = 64

// noInfector is the sentinel infector index meaning "infected with no
// recorded source" (e.g. via the import-infections intervention).
const noInfector = -1

// Person is one agent: fixed array slot, stable index, own lock. Person
// methods are the state machine from SPEC_FULL.md §4.3; they reach into the
// owning Context for the shared Disease/Population/HealthcareSystem/
// RandomPool, since those are simulation-wide, not per-agent.
type Person struct {
	ctx *Context

	idx int
	age int

	mu sync.Mutex

	state    disease.State
	severity disease.Severity

	isInfected  bool
	hasImmunity bool
	wasDetected bool
	queued      bool
	includedInTotals bool

	daysLeft       int
	dayOfIllness   int
	dayOfInfection int

	infector  int
	infectees *[MaxInfectees]int
	nrInfectees int

	otherPeopleInfected     int
	otherPeopleExposedToday int
}

func newPerson(ctx *Context, idx, age int) *Person {
	return &Person{
		ctx:      ctx,
		idx:      idx,
		age:      age,
		state:    disease.Susceptible,
		infector: noInfector,
	}
}

// Age, State, Severity, DaysLeft, DayOfIllness and WasDetected satisfy
// disease.Carrier and population.AgedPerson without either package ever
// importing abm.
func (p *Person) Age() int                   { return p.age }
func (p *Person) State() disease.State       { return p.state }
func (p *Person) Severity() disease.Severity { return p.severity }
func (p *Person) DaysLeft() int              { return p.daysLeft }
func (p *Person) DayOfIllness() int          { return p.dayOfIllness }
func (p *Person) WasDetected() bool          { return p.wasDetected }

func (p *Person) isImmune() bool {
	return p.hasImmunity
}

// infect transitions a Susceptible person to Incubation. source is nil when
// there is no recorded infector (e.g. seeded via import-infections).
func (p *Person) infect(source *Person) error {
	p.state = disease.Incubation
	p.severity = p.ctx.disease.SymptomSeverity(p.age)
	p.daysLeft = p.ctx.disease.IncubationDays()
	p.dayOfInfection = 0
	p.isInfected = true

	if source != nil {
		p.infector = source.idx
		if source.infectees != nil {
			if source.nrInfectees >= MaxInfectees {
				return &ProblemError{Day: p.ctx.Day(), Problem: TooManyInfectees}
			}
			source.infectees[source.nrInfectees] = p.idx
			source.nrInfectees++
		}
	}

	if p.ctx.healthcare.Mode() == healthcare.AllWithSymptomsCT {
		if p.infectees != nil {
			return &ProblemError{Day: p.ctx.Day(), Problem: OtherFailure}
		}
		p.infectees = &[MaxInfectees]int{}
	}

	p.ctx.population.Infect(p.age)
	return nil
}

// expose reports whether an exposure from source succeeded in infecting p.
// Already-infected or immune targets can never be (re-)infected. p's own
// lock is held for the duration of the mutation. source is not locked here,
// although infect appends p to source's infectee buffer when source has one;
// the caller is source itself, whose lock advanceChunk already holds.
func (p *Person) expose(source *Person) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isInfected || p.isImmune() {
		return false, nil
	}
	if !p.ctx.disease.DidInfect(source) {
		return false, nil
	}
	if err := p.infect(source); err != nil {
		return false, err
	}
	return true, nil
}

// exposeOthers attempts nrContacts random exposures from p onto uniformly
// chosen targets drawn from everyone except p itself. p is the exposer and
// is never locked by this call; each target is locked individually inside
// expose. advanceChunk holds p.mu for the whole of advanceOneDay, so a
// self-targeted draw would deadlock on p's own (non-reentrant) lock inside
// expose; excluding p.idx from the draw avoids that case entirely.
func (p *Person) exposeOthers(nrContacts int, totalPeople int) error {
	p.otherPeopleExposedToday = nrContacts
	if totalPeople <= 1 {
		return nil
	}
	for i := 0; i < nrContacts; i++ {
		targetIdx := p.ctx.rng.Intn(totalPeople - 1)
		if targetIdx >= p.idx {
			targetIdx++
		}
		target := &p.ctx.people[targetIdx]
		infected, err := target.expose(p)
		if err != nil {
			return err
		}
		if infected {
			if p.infectees != nil {
				if p.nrInfectees >= MaxInfectees {
					return &ProblemError{Day: p.ctx.Day(), Problem: TooManyInfectees}
				}
				p.infectees[p.nrInfectees] = target.idx
				p.nrInfectees++
			}
			p.otherPeopleInfected++
		}
	}
	return nil
}

// becomeIll transitions Incubation -> Illness once days_left reaches zero.
func (p *Person) becomeIll() {
	p.state = disease.Illness
	p.dayOfIllness = 0
	p.daysLeft = p.ctx.disease.IllnessDays()
	if p.severity != disease.Asymptomatic && !p.wasDetected {
		p.ctx.healthcare.SeekTesting(p.idx, p.ctx)
	}
}

// hospitalize is called once Illness's days_left reaches zero for a
// Severe/Critical case. It forces detection, then routes the agent to ICU,
// a hospital bed, or straight to death/recovery depending on capacity.
func (p *Person) hospitalize() {
	if !p.wasDetected {
		p.ctx.MarkDetected(p.idx)
	}

	if p.severity == disease.Critical {
		if p.ctx.healthcare.ToICU() {
			p.state = disease.InIcu
			p.daysLeft = p.ctx.disease.ICUDays()
			p.ctx.population.TransferToICU(p.age)
			return
		}
		p.die()
		return
	}

	if p.ctx.healthcare.Hospitalize() {
		p.state = disease.Hospitalized
		p.daysLeft = p.ctx.disease.HospitalizationDays()
		p.ctx.population.Hospitalize(p.age)
		return
	}

	if p.ctx.disease.DiesInHospital(false, false) {
		p.die()
	} else {
		p.recover()
	}
}

// releaseFromHospital is called once Hospitalized/InIcu's days_left
// reaches zero: it rolls death with care available, then returns the bed
// or ICU unit regardless of outcome.
func (p *Person) releaseFromHospital() {
	inICU := p.state == disease.InIcu
	dies := p.ctx.disease.DiesInHospital(inICU, true)

	if inICU {
		p.ctx.healthcare.ReleaseFromICU()
		p.ctx.population.ReleaseFromICU(p.age)
	} else {
		p.ctx.healthcare.Release()
		p.ctx.population.ReleaseFromHospital(p.age)
	}

	if dies {
		p.die()
	} else {
		p.recover()
	}
}

func (p *Person) freeInfectees() {
	p.infectees = nil
	p.nrInfectees = 0
}

func (p *Person) die() {
	p.state = disease.Dead
	p.isInfected = false
	p.hasImmunity = true
	p.freeInfectees()
	p.ctx.population.Die(p.age)
}

func (p *Person) recover() {
	p.state = disease.Recovered
	p.isInfected = false
	p.hasImmunity = true
	p.freeInfectees()
	p.ctx.population.Recover(p.age)
}

// advanceOneDay is the per-tick state machine step. It is safe to call
// concurrently across distinct agents; it must never be called concurrently
// for the same agent.
func (p *Person) advanceOneDay() error {
	p.otherPeopleExposedToday = 0
	wasIllAtStart := p.state == disease.Illness

	switch p.state {
	case disease.Incubation, disease.Illness:
		contacts := p.ctx.disease.PeopleExposed(p)
		if contacts > 0 {
			if err := p.exposeOthers(contacts, len(p.ctx.people)); err != nil {
				return err
			}
		}
		p.daysLeft--
		if p.daysLeft <= 0 {
			if p.state == disease.Incubation {
				p.becomeIll()
			} else if p.severity == disease.Severe || p.severity == disease.Critical {
				p.hospitalize()
			} else {
				p.recover()
			}
		}

	case disease.Hospitalized, disease.InIcu:
		p.daysLeft--
		if p.daysLeft <= 0 {
			p.releaseFromHospital()
		}

	default:
		// Susceptible, Recovered, Dead: no-op.
	}

	// becomeIll already reset day_of_illness to 0 for the tick it fires on;
	// only bump it for a tick that started (and is still) in Illness, so the
	// first exposing tick under Illness reads day_of_illness == 0.
	if wasIllAtStart && p.state == disease.Illness {
		p.dayOfIllness++
	}
	p.dayOfInfection++
	return nil
}

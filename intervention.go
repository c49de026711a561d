package abm

import "nathangeffen/epidemic-abm/healthcare"

// Intervention is a dated, named parameter change applied at the start of
// its scheduled day.
type Intervention struct {
	Day   int
	Name  string
	Value int
}

// applyIntervention mutates the relevant subsystem for one intervention.
// Unrecognized names are silently ignored, matching a dated-event list that
// may be extended without every Context needing to understand every name.
func (c *Context) applyIntervention(iv Intervention) {
	switch iv.Name {
	case "test-all-with-symptoms":
		c.healthcare.SetMode(healthcare.AllWithSymptoms)
	case "test-only-severe-symptoms":
		c.healthcare.SetMode(healthcare.OnlySevereSymptoms)
	case "test-with-contact-tracing":
		c.healthcare.SetMode(healthcare.AllWithSymptomsCT)
	case "build-new-icu-units":
		c.healthcare.AddICUUnits(iv.Value)
	case "build-new-hospital-beds":
		c.healthcare.AddBeds(iv.Value)
	case "import-infections":
		c.flagOnImportError(c.InfectPeople(iv.Value))
	case "limit-mass-gatherings":
		c.population.SetMassGatheringLimit(iv.Value)
	case "limit-mobility":
		c.population.SetMobilityFactor(float64(100-iv.Value) / 100)
	}
}

// flagOnImportError surfaces an import-infections failure (e.g. an
// infectees-buffer overflow from seeding into an already-hot population)
// through the same SimulationProblem channel the parallel advance uses.
func (c *Context) flagOnImportError(err error) {
	if err == nil {
		return
	}
	if pe, ok := err.(*ProblemError); ok {
		c.flagProblem(pe.Problem)
		return
	}
	c.flagProblem(OtherFailure)
}

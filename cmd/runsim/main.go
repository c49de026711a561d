// Command runsim drives one epidemic-abm simulation from the command line:
// it builds a Population/HealthcareSystem/Disease/Context from flags, runs
// the requested number of ticks, and logs one structured state event every
// 10 days and on the final day.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	abm "nathangeffen/epidemic-abm"
	"nathangeffen/epidemic-abm/classedvalues"
	"nathangeffen/epidemic-abm/disease"
	"nathangeffen/epidemic-abm/healthcare"
	"nathangeffen/epidemic-abm/internal/logging"
	"nathangeffen/epidemic-abm/population"
	"nathangeffen/epidemic-abm/randompool"
)

// parameters mirrors the teacher's flat flag-populated struct, upgraded
// from stdlib flag to cobra/pflag.
type parameters struct {
	seed   uint64
	agents int
	age    int
	days   int

	initialInfections int

	beds            int
	icuUnits        int
	pDetectedAnyway float64

	pInfection    float64
	pAsymptomatic float64
	pSevere       float64
	pCritical     float64

	pHospitalDeath       float64
	pICUDeath            float64
	pHospitalDeathNoBeds float64
	pICUDeathNoBeds      float64

	meanIllnessDuration       float64
	meanHospitalizationDays   float64
	meanICUDuration           float64
	avgContactsPerDay         float64

	startDate string
	logDir    string
	verbose   bool
}

func main() {
	var p parameters

	cmd := &cobra.Command{
		Use:   "runsim",
		Short: "Run one agent-based epidemic simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(p)
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&p.seed, "seed", 1, "random pool seed")
	flags.IntVar(&p.agents, "agents", 10000, "number of agents")
	flags.IntVar(&p.age, "age", 40, "uniform age assigned to every agent")
	flags.IntVar(&p.days, "days", 365, "number of days to simulate")
	flags.IntVar(&p.initialInfections, "initial-infections", 10, "agents infected at day 0")

	flags.IntVar(&p.beds, "beds", 1000, "hospital bed capacity")
	flags.IntVar(&p.icuUnits, "icu-units", 200, "ICU unit capacity")
	flags.Float64Var(&p.pDetectedAnyway, "p-detected-anyway", 0.05,
		"probability a mild case is tested anyway under only-severe-symptoms testing mode")

	flags.Float64Var(&p.pInfection, "p-infection", 0.05, "transmission probability scale")
	flags.Float64Var(&p.pAsymptomatic, "p-asymptomatic", 0.3, "probability of asymptomatic severity")
	flags.Float64Var(&p.pSevere, "p-severe", 0.1, "probability of severe-or-critical severity, flat across ages")
	flags.Float64Var(&p.pCritical, "p-critical", 0.02, "probability that a severe-or-critical case is critical, flat across ages")

	flags.Float64Var(&p.pHospitalDeath, "p-hospital-death", 0.1, "death probability with a hospital bed")
	flags.Float64Var(&p.pICUDeath, "p-icu-death", 0.3, "death probability with an ICU unit")
	flags.Float64Var(&p.pHospitalDeathNoBeds, "p-hospital-death-no-beds", 0.6, "death probability without a bed")
	flags.Float64Var(&p.pICUDeathNoBeds, "p-icu-death-no-beds", 0.9, "death probability without an ICU unit")

	flags.Float64Var(&p.meanIllnessDuration, "mean-illness-duration", 10, "mean days in Illness")
	flags.Float64Var(&p.meanHospitalizationDays, "mean-hospitalization-duration", 10, "mean days Hospitalized")
	flags.Float64Var(&p.meanICUDuration, "mean-icu-duration", 12, "mean days InIcu")
	flags.Float64Var(&p.avgContactsPerDay, "avg-contacts-per-day", 4.0, "average daily contacts, flat across ages")

	flags.StringVar(&p.startDate, "start-date", "2020-03-01", "simulation epoch, YYYY-MM-DD")
	flags.StringVar(&p.logDir, "log-dir", "./logs", "directory for the rotating log file")
	flags.BoolVarP(&p.verbose, "verbose", "v", false, "enable debug-level logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(p parameters) error {
	logger, err := logging.New(logging.Options{LogDir: p.logDir, Verbose: p.verbose})
	if err != nil {
		return fmt.Errorf("runsim: %w", err)
	}

	rng := randompool.New(p.seed)

	pop := population.New(
		map[int]int{p.age: p.agents},
		[]classedvalues.Entry{{Class: 0, Value: p.avgContactsPerDay}},
		rng,
	)

	hc := healthcare.New(p.beds, p.icuUnits, p.pDetectedAnyway, rng)

	diseaseParams := disease.Params{
		PInfection:                  p.pInfection,
		PAsymptomatic:               p.pAsymptomatic,
		PSevere:                     []classedvalues.Entry{{Class: 0, Value: p.pSevere}},
		PCritical:                   []classedvalues.Entry{{Class: 0, Value: p.pCritical}},
		PHospitalDeath:              p.pHospitalDeath,
		PICUDeath:                   p.pICUDeath,
		PHospitalDeathNoBeds:        p.pHospitalDeathNoBeds,
		PICUDeathNoBeds:             p.pICUDeathNoBeds,
		MeanIllnessDuration:         p.meanIllnessDuration,
		MeanHospitalizationDuration: p.meanHospitalizationDays,
		MeanICUDuration:             p.meanICUDuration,
	}
	dis := disease.New(diseaseParams, pop, rng)

	ctx, err := abm.New(pop, hc, dis, rng, p.startDate)
	if err != nil {
		return fmt.Errorf("runsim: %w", err)
	}

	if err := ctx.InfectPeople(p.initialInfections); err != nil {
		return fmt.Errorf("runsim: seeding infections: %w", err)
	}

	logger.Info().
		Int("agents", p.agents).
		Int("days", p.days).
		Uint64("seed", p.seed).
		Msg("simulation starting")

	for day := 0; day < p.days; day++ {
		if err := ctx.Iterate(); err != nil {
			logger.Error().Err(err).Msg("simulation aborted")
			return err
		}
		if day%10 == 0 || day == p.days-1 {
			ctx.LogState(logger)
		}
	}

	logger.Info().Msg("simulation complete")
	return nil
}

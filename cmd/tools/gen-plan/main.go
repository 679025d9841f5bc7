// Command gen-plan generates synthetic dynamic arc plans for exercising the
// analysis pipeline end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/kestrel-data/aperture.report/internal/machine"
	"github.com/kestrel-data/aperture.report/internal/planfile"
)

func main() {
	output := flag.String("o", "sample_plan.json", "output path")
	planID := flag.String("plan-id", "PLN-SYNTH", "plan identifier")
	beams := flag.Int("beams", 2, "number of arc beams")
	cps := flag.Int("cps", 60, "control points per beam")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	plan := generatePlan(rand.New(rand.NewSource(*seed)), *planID, *beams, *cps)

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal plan: %v", err)
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s (%d beams, %d control points each)", *output, *beams, *cps)
}

// generatePlan builds a plan of sliding-window arcs on a Millennium 120.
func generatePlan(rng *rand.Rand, planID string, beams, cps int) *planfile.Plan {
	if beams < 1 {
		beams = 1
	}
	if cps < 2 {
		cps = 2
	}

	plan := &planfile.Plan{
		SchemaVersion:    planfile.SchemaVersion,
		PlanID:           planID,
		PrescribedDoseGy: 2,
	}
	for b := 0; b < beams; b++ {
		plan.Beams = append(plan.Beams, syntheticArc(rng, fmt.Sprintf("arc-%d", b+1), cps))
	}
	return plan
}

// syntheticArc sweeps a roughly elliptical sliding window across a 358 degree
// arc. Pairs under the Y jaws park with their tips together; open pairs get a
// millimetre of random tip jitter so consecutive control points differ.
func syntheticArc(rng *rand.Rand, id string, cps int) planfile.Beam {
	leaves, _ := machine.NewRegistry().LeafPairs("Millennium 120")
	weights := monotoneWeights(rng, cps)

	beam := planfile.Beam{
		ID:            id,
		TreatmentUnit: "TrueBeam",
		MLCModel:      "Millennium 120",
		DeliveryType:  planfile.DeliveryDynamic,
		TotalMU:       100 + rng.Float64()*200,
	}

	for k := 0; k < cps; k++ {
		frac := float64(k) / float64(cps-1)
		center := -30 + 60*frac

		bank0 := make([]float64, len(leaves))
		bank1 := make([]float64, len(leaves))
		for i, lp := range leaves {
			if math.Abs(lp.CenterY) >= 90 {
				bank0[i] = center
				bank1[i] = center
				continue
			}
			envelope := math.Sqrt(1 - math.Pow(lp.CenterY/90, 2))
			half := 6 + 12*envelope + (rng.Float64()*2 - 1)
			bank0[i] = center - half
			bank1[i] = center + half
		}

		beam.ControlPoints = append(beam.ControlPoints, planfile.ControlPoint{
			GantryAngleDeg:     math.Mod(181+358*frac, 360),
			CumulativeMeterset: weights[k],
			Jaw:                planfile.Jaw{X1: -60, X2: 60, Y1: -100, Y2: 100},
			Bank0:              bank0,
			Bank1:              bank1,
		})
	}
	return beam
}

// monotoneWeights draws a strictly increasing cumulative meterset running
// exactly from 0 to 1.
func monotoneWeights(rng *rand.Rand, n int) []float64 {
	increments := make([]float64, n-1)
	var sum float64
	for i := range increments {
		increments[i] = 0.5 + rng.Float64()
		sum += increments[i]
	}

	weights := make([]float64, n)
	var acc float64
	for i, inc := range increments {
		acc += inc
		weights[i+1] = acc / sum
	}
	weights[n-1] = 1
	return weights
}

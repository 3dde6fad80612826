package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irindex/irindex/model"
)

func TestEvaluate_ScenarioSix(t *testing.T) {
	gold := []model.GoldEntry{
		{QueryID: "q1", DocumentsPMID: []string{"X", "Y", "Z"}},
	}
	run := []model.RunEntry{
		{QueryID: "q1", DocumentsPMID: []string{"X", "W", "Y", "Z", "pad1", "pad2", "pad3", "pad4", "pad5", "pad6"}},
	}

	report, err := Evaluate(gold, run)
	require.NoError(t, err)
	require.Equal(t, 1, report.Meta.NumQueries)

	var at10 KResult
	for _, r := range report.Results {
		if r.K == 10 {
			at10 = r
		}
	}

	assert.InDelta(t, 1.0, at10.Precision, 1e-4)
	assert.InDelta(t, 1.0, at10.Recall, 1e-4)
	assert.InDelta(t, 1.0, at10.F1, 1e-4)
	assert.InDelta(t, 0.8056, at10.AP, 1e-4)
	assert.InDelta(t, 1.9307, at10.DCG, 1e-4)
}

func TestEvaluate_PrecisionEqualsRecallAlways(t *testing.T) {
	gold := []model.GoldEntry{{QueryID: "q1", DocumentsPMID: []string{"A", "B", "C", "D"}}}
	run := []model.RunEntry{{QueryID: "q1", DocumentsPMID: []string{"A", "zzz"}}}

	report, err := Evaluate(gold, run)
	require.NoError(t, err)
	for _, r := range report.Results {
		assert.Equal(t, r.Precision, r.Recall, "k=%d", r.K)
	}
}

func TestEvaluate_APIgnoresTopKCutoff(t *testing.T) {
	gold := []model.GoldEntry{{QueryID: "q1", DocumentsPMID: []string{"A", "Z"}}}
	runPMIDs := make([]string, 0, 60)
	runPMIDs = append(runPMIDs, "A")
	for i := 0; i < 58; i++ {
		runPMIDs = append(runPMIDs, "filler")
	}
	runPMIDs = append(runPMIDs, "Z")
	run := []model.RunEntry{{QueryID: "q1", DocumentsPMID: runPMIDs}}

	report, err := Evaluate(gold, run)
	require.NoError(t, err)

	var at10 KResult
	for _, r := range report.Results {
		if r.K == 10 {
			at10 = r
		}
	}
	// Z sits at rank 60, past every cutoff, yet still contributes to AP
	// because AP is computed over the full run list, not the top-10.
	assert.InDelta(t, (1.0+2.0/60.0)/2.0, at10.AP, 1e-4)
	assert.InDelta(t, 0.5, at10.Precision, 1e-4)
}

func TestEvaluate_MissingGoldReturnsDataError(t *testing.T) {
	_, err := Evaluate(nil, nil)
	assert.Error(t, err)
}

func TestEvaluate_UnmatchedGoldQueryScoresZero(t *testing.T) {
	gold := []model.GoldEntry{{QueryID: "q1", DocumentsPMID: []string{"A"}}}
	report, err := Evaluate(gold, nil)
	require.NoError(t, err)
	for _, r := range report.Results {
		assert.Zero(t, r.Precision)
		assert.Zero(t, r.AP)
		assert.Zero(t, r.DCG)
	}
}

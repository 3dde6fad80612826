// Package eval compares a batch search run against a gold-standard
// judgment file, reporting Precision/Recall/F1/AP/DCG macro-averaged
// across queries at the cutoffs named in SPEC_FULL.md §8 (10, 50, 100).
//
// Two documented discrepancies from textbook IR metrics are preserved
// rather than "fixed", per SPEC_FULL.md §9: Precision divides by |gold|
// rather than the size of the intersected top-k (making it numerically
// equal to Recall), and Average Precision is always computed over the
// full run list regardless of which k it is reported under.
package eval

import (
	"math"

	"github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/model"
)

// Cutoffs are the three k values every report is computed at.
var Cutoffs = []int{10, 50, 100}

// Metrics holds one query's (or one macro-averaged) scores at a single k.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	AP        float64 `json:"ap"`
	DCG       float64 `json:"dcg"`
}

// KResult is one cutoff's macro-averaged metrics across every query.
type KResult struct {
	K int `json:"k"`
	Metrics
}

// ReportMeta describes the run being evaluated.
type ReportMeta struct {
	NumQueries int `json:"num_queries"`
}

// Report is the evaluator's full output: metadata followed by one
// KResult per cutoff, matching §4.7's "two-element list: metadata
// object, then a per-k results object".
type Report struct {
	Meta    ReportMeta `json:"meta"`
	Results []KResult  `json:"results"`
}

// Evaluate pairs gold and run entries by query id and macro-averages
// Precision/Recall/F1/AP/DCG across every matched query, at each cutoff
// in Cutoffs. Run entries with no matching gold entry are ignored; gold
// entries with no matching run are treated as a fully-missed query
// (every metric 0) rather than skipped, since a run is expected to cover
// every gold query.
func Evaluate(gold []model.GoldEntry, runs []model.RunEntry) (Report, error) {
	if len(gold) == 0 {
		return Report{}, errors.NewDataError("gold", 0, "", "gold file contained no queries")
	}

	runByQuery := make(map[string]model.RunEntry, len(runs))
	for _, r := range runs {
		runByQuery[r.QueryID] = r
	}

	sums := make(map[int]Metrics, len(Cutoffs))
	for _, k := range Cutoffs {
		sums[k] = Metrics{}
	}

	for _, g := range gold {
		goldSet := make(map[string]struct{}, len(g.DocumentsPMID))
		for _, pmid := range g.DocumentsPMID {
			goldSet[pmid] = struct{}{}
		}

		run := runByQuery[g.QueryID]
		for _, k := range Cutoffs {
			m := queryMetrics(goldSet, run.DocumentsPMID, k)
			s := sums[k]
			s.Precision += m.Precision
			s.Recall += m.Recall
			s.F1 += m.F1
			s.AP += m.AP
			s.DCG += m.DCG
			sums[k] = s
		}
	}

	n := float64(len(gold))
	results := make([]KResult, 0, len(Cutoffs))
	for _, k := range Cutoffs {
		s := sums[k]
		results = append(results, KResult{
			K: k,
			Metrics: Metrics{
				Precision: s.Precision / n,
				Recall:    s.Recall / n,
				F1:        s.F1 / n,
				AP:        s.AP / n,
				DCG:       s.DCG / n,
			},
		})
	}

	return Report{Meta: ReportMeta{NumQueries: len(gold)}, Results: results}, nil
}

// queryMetrics scores one query's run against its gold set at cutoff k.
// Precision and Recall both divide by |gold|, per the documented
// discrepancy above. AP and DCG range over the full runPMIDs list
// regardless of k.
func queryMetrics(goldSet map[string]struct{}, runPMIDs []string, k int) Metrics {
	if len(goldSet) == 0 {
		return Metrics{}
	}

	topK := runPMIDs
	if len(topK) > k {
		topK = topK[:k]
	}

	hits := 0
	for _, pmid := range topK {
		if _, ok := goldSet[pmid]; ok {
			hits++
		}
	}

	denom := float64(len(goldSet))
	precision := float64(hits) / denom
	recall := precision

	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	var apSum float64
	relevantSoFar := 0
	var dcg float64
	for i, pmid := range runPMIDs {
		if _, ok := goldSet[pmid]; !ok {
			continue
		}
		relevantSoFar++
		apSum += float64(relevantSoFar) / float64(i+1)
		dcg += 1 / math.Log2(float64(i)+2)
	}
	ap := apSum / denom

	return Metrics{Precision: precision, Recall: recall, F1: f1, AP: ap, DCG: dcg}
}

// Package smart implements the SMART tf/df/normalization weighting
// tables and the BM25 retrieval status value, shared by the external
// merger's score materializer and the query executor's raw-postings
// scoring path so the two formulas can never drift apart.
package smart

import (
	"math"

	"github.com/irindex/irindex/internal/errors"
)

// TFWeight applies the tf component of a SMART code to a raw term
// frequency: n (natural), l (logarithmic), b (boolean).
func TFWeight(code byte, tf float64) (float64, error) {
	switch code {
	case 'n':
		return tf, nil
	case 'l':
		if tf <= 0 {
			return 0, nil
		}
		return 1 + math.Log10(tf), nil
	case 'b':
		if tf > 0 {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errors.NewConfigError("smart", "unknown tf weight code: "+string(code))
	}
}

// DFWeight applies the df component of a SMART code: n (no idf), t
// (standard idf), p (probabilistic idf, floored at 0).
func DFWeight(code byte, df, n int) (float64, error) {
	switch code {
	case 'n':
		return 1, nil
	case 't':
		return math.Log10(float64(n) / float64(df)), nil
	case 'p':
		v := math.Log10(float64(n-df) / float64(df))
		if v < 0 {
			return 0, nil
		}
		return v, nil
	default:
		return 0, errors.NewConfigError("smart", "unknown df weight code: "+string(code))
	}
}

// Weight combines tf and df weighting for a single (term, doc) pair.
func Weight(tfCode, dfCode byte, tf float64, df, n int) (float64, error) {
	tfw, err := TFWeight(tfCode, tf)
	if err != nil {
		return 0, err
	}
	dfw, err := DFWeight(dfCode, df, n)
	if err != nil {
		return 0, err
	}
	return tfw * dfw, nil
}

// Normalize applies the normalization component of a SMART code to a
// weight vector in place: n (identity), c (L2 / cosine normalization).
func Normalize(code byte, weights map[string]float64) error {
	switch code {
	case 'n':
		return nil
	case 'c':
		var sumSq float64
		for _, w := range weights {
			sumSq += w * w
		}
		if sumSq == 0 {
			return nil
		}
		norm := math.Sqrt(sumSq)
		for t, w := range weights {
			weights[t] = w / norm
		}
		return nil
	default:
		return errors.NewConfigError("smart", "unknown normalization code: "+string(code))
	}
}

// ParseCode validates a three-letter SMART code and splits it into its
// (tf, df, norm) components.
func ParseCode(code string) (tf, df, norm byte, err error) {
	if len(code) != 3 {
		return 0, 0, 0, errors.NewConfigError("smart", "SMART code must be exactly three letters")
	}
	return code[0], code[1], code[2], nil
}

// BM25 computes the Okapi BM25 retrieval status value for a single
// (term, doc) pair's contribution to a query's score.
func BM25(tf float64, df, n int, dl, avgdl, k1, b float64) float64 {
	idf := math.Log10(float64(n) / float64(df))
	denom := tf + k1*((1-b)+b*(dl/avgdl))
	if denom == 0 {
		return 0
	}
	return idf * (tf * (k1 + 1)) / denom
}

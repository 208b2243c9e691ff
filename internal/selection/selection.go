// Package selection ranks the records returned for the orientation
// candidates of one image and picks the most complete one.
package selection

import "github.com/ibebio/herb-transcribe/internal/models"

// Scored is a parsed record together with the index of the candidate
// that produced it.
type Scored struct {
	Index  int
	Record *models.Record
	Score  int
}

// Score counts the non-empty values across the label and metadata groups.
func Score(r *models.Record) int {
	if r == nil {
		return 0
	}
	return r.Label.Filled() + r.Metadata.Filled()
}

// NewScored computes the score for a record produced by candidate index.
func NewScored(index int, r *models.Record) Scored {
	return Scored{Index: index, Record: r, Score: Score(r)}
}

// Select returns the highest scoring record. Ties go to the candidate that
// was generated first. The boolean is false when there is nothing to pick.
func Select(candidates []Scored) (Scored, bool) {
	var best Scored
	found := false
	for _, c := range candidates {
		if c.Record == nil {
			continue
		}
		replace := false
		if !found {
			replace = true
		} else if c.Score > best.Score {
			replace = true
		} else if c.Score == best.Score && c.Index < best.Index {
			replace = true
		}
		if replace {
			best = c
			found = true
		}
	}
	return best, found
}

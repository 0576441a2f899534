package dataset

import (
	"fmt"

	"github.com/qualab/subjqual/pkg/qerrors"
	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

// Build materializes the opinion tensor (spec section 4.1) from a parsed
// Dataset: subjects get dense indices in first-sighting order across
// DisVideos, stimuli keep dataset order, content ids are remapped to a
// dense 0..C-1 range in first-sighting order, and ref_stimulus_id becomes
// the reference map rho (-1 where absent).
func Build(ds *Dataset, scale qtypes.Scale) (*tensor.Tensor, error) {
	if len(ds.DisVideos) == 0 {
		return nil, qerrors.NewSchemaError("dataset has no distorted stimuli", nil)
	}

	subjectIndex := make(map[string]int)
	var subjectLabels []string
	for _, dv := range ds.DisVideos {
		for _, key := range dv.OS.Keys {
			if _, ok := subjectIndex[key]; !ok {
				subjectIndex[key] = len(subjectLabels)
				subjectLabels = append(subjectLabels, key)
			}
		}
	}
	if len(subjectLabels) == 0 {
		return nil, qerrors.NewSchemaError("dataset has no rated subjects", nil)
	}

	contentIndex := make(map[int]int)
	numContents := 0
	content := make([]int, len(ds.DisVideos))
	ref := make([]int, len(ds.DisVideos))
	stimulusLabels := make([]string, len(ds.DisVideos))

	for e, dv := range ds.DisVideos {
		c, ok := contentIndex[dv.ContentID]
		if !ok {
			c = numContents
			contentIndex[dv.ContentID] = c
			numContents++
		}
		content[e] = c
		if dv.RefStimulusID != nil {
			ref[e] = *dv.RefStimulusID
		} else {
			ref[e] = -1
		}
		stimulusLabels[e] = fmt.Sprintf("%d_%d", dv.ContentID, dv.AssetID)
	}

	for e, r := range ref {
		if r != -1 && (r < 0 || r >= len(ds.DisVideos)) {
			return nil, qerrors.NewSchemaError("ref_stimulus_id out of range", nil).
				With("stimulus", e).With("ref_stimulus_id", r)
		}
	}

	s := len(subjectLabels)
	eCount := len(ds.DisVideos)
	values := make([][]float64, s)
	observed := make([][]bool, s)
	for i := range values {
		values[i] = make([]float64, eCount)
		observed[i] = make([]bool, eCount)
	}

	seen := make(map[string]bool)
	for e, dv := range ds.DisVideos {
		for k := range seen {
			delete(seen, k)
		}
		for _, key := range dv.OS.Keys {
			if seen[key] {
				return nil, qerrors.NewSchemaError("duplicate subject within one stimulus", nil).
					With("stimulus", e).With("subject", key)
			}
			seen[key] = true
			s := subjectIndex[key]
			values[s][e] = dv.OS.Values[key].Value
			observed[s][e] = true
		}
	}

	t, err := tensor.New(values, observed, content, ref, numContents, scale)
	if err != nil {
		return nil, err
	}
	t.SubjectLabels = subjectLabels
	t.StimulusLabels = stimulusLabels
	return t, nil
}

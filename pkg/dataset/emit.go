package dataset

import (
	"github.com/qualab/subjqual/pkg/qtypes"
)

// StimulusOutput mirrors DisVideo but replaces the raw "os" ratings with
// the fitted groundtruth and its standard error (spec section 4.4/6).
type StimulusOutput struct {
	ContentID int    `json:"content_id"`
	AssetID   int    `json:"asset_id"`
	RefPath   string `json:"ref_path,omitempty"`
	Path      string `json:"path,omitempty"`

	Groundtruth    qtypes.JSONFloat64 `json:"groundtruth"`
	GroundtruthStd qtypes.JSONFloat64 `json:"groundtruth_std"`
}

// OutputDataset is the aggregated dataset record emitted by Emit.
type OutputDataset struct {
	DatasetName string `json:"dataset_name,omitempty"`
	YUVFmt      string `json:"yuv_fmt,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`

	RefVideos []RefVideo       `json:"ref_videos,omitempty"`
	DisVideos []StimulusOutput `json:"dis_videos"`

	ResamplingType string `json:"resampling_type,omitempty"`
	QualityWidth   int    `json:"quality_width,omitempty"`
	QualityHeight  int    `json:"quality_height,omitempty"`
}

// Emit builds the output dataset record from a fitted Result and the
// original input (for pass-through metadata), per spec section 4.4.
func Emit(result *qtypes.Result, original *Dataset) OutputDataset {
	out := OutputDataset{
		DatasetName:    original.DatasetName,
		YUVFmt:         original.YUVFmt,
		Width:          original.Width,
		Height:         original.Height,
		RefVideos:      original.RefVideos,
		ResamplingType: original.ResamplingType,
		QualityWidth:   original.QualityWidth,
		QualityHeight:  original.QualityHeight,
	}

	out.DisVideos = make([]StimulusOutput, len(original.DisVideos))
	for e, dv := range original.DisVideos {
		so := StimulusOutput{
			ContentID: dv.ContentID,
			AssetID:   dv.AssetID,
			RefPath:   dv.RefPath,
			Path:      dv.Path,
		}
		if e < len(result.QualityScores) {
			so.Groundtruth = qtypes.JSONFloat64(result.QualityScores[e])
		}
		if e < len(result.QualityScoresStd) {
			so.GroundtruthStd = qtypes.JSONFloat64(result.QualityScoresStd[e])
		}
		out.DisVideos[e] = so
	}
	return out
}

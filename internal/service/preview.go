package service

import (
	"github.com/dataforge/dataset-pipeline/internal/pii"
)

type PreviewService struct{}

func NewPreviewService() *PreviewService {
	return &PreviewService{}
}

type PreviewResult struct {
	pii.Result
	Stats map[pii.Type]int `json:"stats"`
}

// Preview runs the detector over a sample text without persisting anything.
func (s *PreviewService) Preview(text string, opts pii.Options) (*PreviewResult, error) {
	detector, err := pii.NewDetector(opts)
	if err != nil {
		return nil, NewErrInvalidProcessingConfig(err)
	}

	result := detector.Detect(text)
	stats := make(map[pii.Type]int)
	for _, m := range result.Matches {
		stats[m.Type]++
	}
	return &PreviewResult{Result: result, Stats: stats}, nil
}

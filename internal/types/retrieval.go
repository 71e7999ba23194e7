package types

import "strings"

type PipelineType string

const (
	PipelineRecursiveOverlap PipelineType = "recursive_overlap"
	PipelineSemantic         PipelineType = "semantic"
)

func ParsePipelineType(raw string) (PipelineType, bool) {
	switch PipelineType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PipelineRecursiveOverlap:
		return PipelineRecursiveOverlap, true
	case PipelineSemantic:
		return PipelineSemantic, true
	default:
		return "", false
	}
}

type RetrievalRequest struct {
	Query            string       `json:"query"`
	TopK             *int         `json:"top_k,omitempty"`
	UseQueryEnhancer *bool        `json:"use_query_enhancer,omitempty"`
	UseReranking     *bool        `json:"use_reranking,omitempty"`
	PipelineType     PipelineType `json:"pipeline_type,omitempty"`
}

type RetrievedDocument struct {
	Text     string         `json:"text"`
	Source   string         `json:"source"`
	Score    *float64       `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type RetrievalResponse struct {
	Query          string              `json:"query"`
	Documents      []RetrievedDocument `json:"documents"`
	TotalRetrieved int                 `json:"total_retrieved"`
}

package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"ragdash/internal/types"
)

const (
	MinTopK            = 1
	MaxTopK            = 50
	DefaultTopK        = 10
	MinQuestionsPerDoc = 1
	MaxQuestionsPerDoc = 10
)

var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrEmptyQuery     = errors.New("query is required")
	ErrFolderRequired = errors.New("folder is required")
	ErrNoFileTypes    = errors.New("select at least one file type")
)

func ChatRequest(message, sessionID string) (types.ChatRequest, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return types.ChatRequest{}, ErrEmptyMessage
	}
	req := types.ChatRequest{Message: message}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	return req, nil
}

type RetrievalForm struct {
	Query            string
	TopK             int
	UseQueryEnhancer bool
	UseReranking     bool
	Pipeline         types.PipelineType
}

func DefaultRetrievalForm() RetrievalForm {
	return RetrievalForm{TopK: DefaultTopK, Pipeline: types.PipelineRecursiveOverlap}
}

func (f RetrievalForm) Request() (types.RetrievalRequest, error) {
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return types.RetrievalRequest{}, ErrEmptyQuery
	}
	if err := checkRange("top_k", f.TopK, MinTopK, MaxTopK); err != nil {
		return types.RetrievalRequest{}, err
	}
	pipeline, ok := types.ParsePipelineType(string(f.Pipeline))
	if !ok {
		return types.RetrievalRequest{}, fmt.Errorf("unknown pipeline type %q", f.Pipeline)
	}
	topK, enhancer, rerank := f.TopK, f.UseQueryEnhancer, f.UseReranking
	return types.RetrievalRequest{
		Query:            q,
		TopK:             &topK,
		UseQueryEnhancer: &enhancer,
		UseReranking:     &rerank,
		PipelineType:     pipeline,
	}, nil
}

type IngestionForm struct {
	FolderPath  string
	IncludePDF  bool
	IncludeJSON bool
	Pipeline    types.PipelineType
}

func DefaultIngestionForm() IngestionForm {
	return IngestionForm{IncludePDF: true, Pipeline: types.PipelineRecursiveOverlap}
}

func (f IngestionForm) FileTypes() []string {
	var out []string
	if f.IncludePDF {
		out = append(out, "pdf")
	}
	if f.IncludeJSON {
		out = append(out, "json")
	}
	return out
}

func (f IngestionForm) Request() (types.IngestionJobRequest, error) {
	folder := strings.TrimSpace(f.FolderPath)
	if folder == "" {
		return types.IngestionJobRequest{}, ErrFolderRequired
	}
	fileTypes := f.FileTypes()
	if len(fileTypes) == 0 {
		return types.IngestionJobRequest{}, ErrNoFileTypes
	}
	pipeline, ok := types.ParsePipelineType(string(f.Pipeline))
	if !ok {
		return types.IngestionJobRequest{}, fmt.Errorf("unknown pipeline type %q", f.Pipeline)
	}
	return types.IngestionJobRequest{FolderPath: folder, FileTypes: fileTypes, PipelineType: pipeline}, nil
}

// Warning flags a selected folder the backend reports as empty. Submitting
// is still allowed.
func (f IngestionForm) Warning(folders []types.AssetFolder) string {
	for _, folder := range folders {
		if folder.Path == f.FolderPath && folder.FileCount != nil && *folder.FileCount == 0 {
			return "Selected folder has no files"
		}
	}
	return ""
}

type EvaluationForm struct {
	FolderPath       string
	TopK             int
	UseQueryEnhancer bool
	UseReranking     bool
	QuestionsPerDoc  int
	// SourceEvaluationID reuses the questions of an earlier evaluation;
	// QuestionsPerDoc is ignored then.
	SourceEvaluationID string
}

func DefaultEvaluationForm() EvaluationForm {
	return EvaluationForm{TopK: DefaultTopK, QuestionsPerDoc: MinQuestionsPerDoc}
}

func (f EvaluationForm) ReusesQuestions() bool {
	return strings.TrimSpace(f.SourceEvaluationID) != ""
}

func (f EvaluationForm) Request() (types.EvaluationRequest, error) {
	folder := strings.TrimSpace(f.FolderPath)
	if folder == "" {
		return types.EvaluationRequest{}, ErrFolderRequired
	}
	if err := checkRange("top_k", f.TopK, MinTopK, MaxTopK); err != nil {
		return types.EvaluationRequest{}, err
	}
	topK, enhancer, rerank := f.TopK, f.UseQueryEnhancer, f.UseReranking
	req := types.EvaluationRequest{
		FolderPath:       folder,
		TopK:             &topK,
		UseQueryEnhancer: &enhancer,
		UseReranking:     &rerank,
	}
	if f.ReusesQuestions() {
		source := strings.TrimSpace(f.SourceEvaluationID)
		req.SourceEvaluationID = &source
		return req, nil
	}
	if err := checkRange("questions per document", f.QuestionsPerDoc, MinQuestionsPerDoc, MaxQuestionsPerDoc); err != nil {
		return types.EvaluationRequest{}, err
	}
	questions := f.QuestionsPerDoc
	req.NumQuestionsPerDoc = &questions
	return req, nil
}

func checkRange(name string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return nil
}

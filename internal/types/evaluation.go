package types

type EvaluationStatus string

const (
	EvaluationStatusPending   EvaluationStatus = "pending"
	EvaluationStatusRunning   EvaluationStatus = "running"
	EvaluationStatusCompleted EvaluationStatus = "completed"
	EvaluationStatusFailed    EvaluationStatus = "failed"
)

func (s EvaluationStatus) IsTerminal() bool {
	return s == EvaluationStatusCompleted || s == EvaluationStatusFailed
}

func (s EvaluationStatus) Label() string {
	switch s {
	case EvaluationStatusPending:
		return "Pending"
	case EvaluationStatusRunning:
		return "Running"
	case EvaluationStatusCompleted:
		return "Completed"
	case EvaluationStatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

type EvaluationRequest struct {
	FolderPath         string  `json:"folder_path"`
	TopK               *int    `json:"top_k,omitempty"`
	UseQueryEnhancer   *bool   `json:"use_query_enhancer,omitempty"`
	UseReranking       *bool   `json:"use_reranking,omitempty"`
	NumQuestionsPerDoc *int    `json:"num_questions_per_doc,omitempty"`
	SourceEvaluationID *string `json:"source_evaluation_id,omitempty"`
	QuestionGroupID    *string `json:"question_group_id,omitempty"`
}

type EvaluationStartResponse struct {
	EvaluationID    string `json:"evaluation_id"`
	QuestionGroupID string `json:"question_group_id"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

type EvaluationResultsSummary struct {
	HitRate        *float64 `json:"hit_rate,omitempty"`
	MRR            *float64 `json:"mrr,omitempty"`
	AvgScore       *float64 `json:"avg_score,omitempty"`
	TotalQuestions *int     `json:"total_questions,omitempty"`
}

type RetrieveParams struct {
	TopK             *int `json:"top_k,omitempty"`
	UseQueryEnhancer bool `json:"use_query_enhancer"`
	UseReranking     bool `json:"use_reranking"`
}

type EvaluationStatusResponse struct {
	EvaluationID          string                    `json:"evaluation_id"`
	QuestionGroupID       string                    `json:"question_group_id"`
	Status                EvaluationStatus          `json:"status"`
	FolderPath            string                    `json:"folder_path"`
	RetrieveParams        RetrieveParams            `json:"retrieve_params"`
	NumDocumentsProcessed int                       `json:"num_documents_processed"`
	CreatedAt             string                    `json:"created_at"`
	CompletedAt           string                    `json:"completed_at,omitempty"`
	ResultsSummary        *EvaluationResultsSummary `json:"results_summary,omitempty"`
	ErrorMessage          string                    `json:"error_message,omitempty"`
	RelatedEvaluationIDs  []string                  `json:"related_evaluation_ids"`
}

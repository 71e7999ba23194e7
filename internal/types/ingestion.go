package types

type IngestionStatus string

const (
	IngestionStatusPending    IngestionStatus = "pending"
	IngestionStatusProcessing IngestionStatus = "processing"
	IngestionStatusChunking   IngestionStatus = "chunking"
	IngestionStatusIndexing   IngestionStatus = "indexing"
	IngestionStatusCompleted  IngestionStatus = "completed"
	IngestionStatusFailed     IngestionStatus = "failed"
)

func (s IngestionStatus) IsTerminal() bool {
	return s == IngestionStatusCompleted || s == IngestionStatusFailed
}

func (s IngestionStatus) Label() string {
	switch s {
	case IngestionStatusPending:
		return "Pending"
	case IngestionStatusProcessing:
		return "Running"
	case IngestionStatusChunking:
		return "Chunking"
	case IngestionStatusIndexing:
		return "Indexing"
	case IngestionStatusCompleted:
		return "Complete"
	case IngestionStatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

type IngestionJobRequest struct {
	FolderPath   string       `json:"folder_path"`
	FileTypes    []string     `json:"file_types,omitempty"`
	PipelineType PipelineType `json:"pipeline_type,omitempty"`
}

type IngestionJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type TaskProgress struct {
	JobID                         string          `json:"job_id"`
	Status                        IngestionStatus `json:"status"`
	TotalDocuments                int             `json:"total_documents,omitempty"`
	ProcessedDocuments            int             `json:"processed_documents,omitempty"`
	SuccessfulDocuments           int             `json:"successful_documents,omitempty"`
	FailedDocuments               int             `json:"failed_documents,omitempty"`
	DocumentsLeft                 int             `json:"documents_left,omitempty"`
	CurrentFile                   string          `json:"current_file,omitempty"`
	EstimatedTimeRemainingSeconds float64         `json:"estimated_time_remaining_seconds,omitempty"`
	ProgressPercentage            float64         `json:"progress_percentage,omitempty"`
	ErrorMessage                  string          `json:"error_message,omitempty"`
	TotalTimeSeconds              float64         `json:"total_time_seconds,omitempty"`
}

type AssetFolder struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	FileCount *int   `json:"file_count,omitempty"`
}

// Empty reports a folder the backend counted and found without files.
func (f AssetFolder) Empty() bool {
	return f.FileCount != nil && *f.FileCount == 0
}

package types

type AppState struct {
	ActiveSessionID      string   `json:"active_session_id,omitempty"`
	ActiveJobID          string   `json:"active_job_id,omitempty"`
	ActiveEvaluationID   string   `json:"active_evaluation_id,omitempty"`
	LastFolder           string   `json:"last_folder,omitempty"`
	CompareEvaluationIDs []string `json:"compare_evaluation_ids,omitempty"`
}

package client

import (
	"encoding/json"

	"ragdash/internal/types"
)

type SessionsResponse struct {
	Sessions []types.Session `json:"sessions"`
}

type AssetsResponse struct {
	Folders []types.AssetFolder `json:"folders"`
}

type EvaluationsResponse struct {
	Evaluations []types.EvaluationStatusResponse `json:"evaluations"`
}

// errorPayload is the FastAPI error envelope: detail is either a string or
// a list of validation entries.
type errorPayload struct {
	Detail json.RawMessage `json:"detail"`
}

type validationEntry struct {
	Msg string `json:"msg"`
}

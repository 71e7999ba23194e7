package dashboard

import (
	"errors"
	"testing"

	"ragdash/internal/types"
)

func TestIngestionFormValidation(t *testing.T) {
	form := DefaultIngestionForm()
	if _, err := form.Request(); !errors.Is(err, ErrFolderRequired) {
		t.Fatalf("expected ErrFolderRequired, got %v", err)
	}
	form.FolderPath = "/docs"
	form.IncludePDF = false
	if _, err := form.Request(); !errors.Is(err, ErrNoFileTypes) {
		t.Fatalf("expected ErrNoFileTypes, got %v", err)
	}
	form.IncludePDF = true
	form.IncludeJSON = true
	form.Pipeline = "semantic"
	req, err := form.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(req.FileTypes) != 2 || req.FileTypes[0] != "pdf" || req.FileTypes[1] != "json" {
		t.Fatalf("unexpected file types %v", req.FileTypes)
	}
	if req.PipelineType != types.PipelineSemantic {
		t.Fatalf("unexpected pipeline %q", req.PipelineType)
	}
	form.Pipeline = "bm25"
	if _, err := form.Request(); err == nil {
		t.Fatalf("expected unknown pipeline error")
	}
}

func TestIngestionFormWarnsOnEmptyFolder(t *testing.T) {
	zero, two := 0, 2
	folders := []types.AssetFolder{
		{Name: "empty", Path: "/empty", FileCount: &zero},
		{Name: "docs", Path: "/docs", FileCount: &two},
		{Name: "unknown", Path: "/unknown"},
	}
	cases := map[string]string{
		"/empty":   "Selected folder has no files",
		"/docs":    "",
		"/unknown": "",
	}
	for path, want := range cases {
		if got := (IngestionForm{FolderPath: path}).Warning(folders); got != want {
			t.Fatalf("%s: expected %q, got %q", path, want, got)
		}
	}
}

func TestEvaluationFormValidation(t *testing.T) {
	form := DefaultEvaluationForm()
	form.FolderPath = "/docs"
	req, err := form.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if *req.TopK != 10 || *req.NumQuestionsPerDoc != 1 || req.SourceEvaluationID != nil {
		t.Fatalf("unexpected defaults %+v", req)
	}

	form.TopK = 51
	if _, err := form.Request(); err == nil {
		t.Fatalf("expected top_k range error")
	}
	form.TopK = 5
	form.QuestionsPerDoc = 11
	if _, err := form.Request(); err == nil {
		t.Fatalf("expected questions range error")
	}

	form.SourceEvaluationID = "e0"
	req, err = form.Request()
	if err != nil {
		t.Fatalf("reusing questions should ignore the question count: %v", err)
	}
	if req.NumQuestionsPerDoc != nil || req.SourceEvaluationID == nil || *req.SourceEvaluationID != "e0" {
		t.Fatalf("unexpected reuse request %+v", req)
	}
}

func TestRetrievalFormValidation(t *testing.T) {
	form := DefaultRetrievalForm()
	if _, err := form.Request(); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	form.Query = "  what is rag  "
	form.UseReranking = true
	req, err := form.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Query != "what is rag" || *req.TopK != DefaultTopK || !*req.UseReranking || *req.UseQueryEnhancer {
		t.Fatalf("unexpected request %+v", req)
	}
	form.TopK = 0
	if _, err := form.Request(); err == nil {
		t.Fatalf("expected top_k range error")
	}
}

func TestChatRequestNullSession(t *testing.T) {
	req, err := ChatRequest("hi", "")
	if err != nil || req.SessionID != nil {
		t.Fatalf("expected nil session id, got %+v %v", req, err)
	}
	req, err = ChatRequest("hi", "s1")
	if err != nil || req.SessionID == nil || *req.SessionID != "s1" {
		t.Fatalf("expected session id, got %+v %v", req, err)
	}
}

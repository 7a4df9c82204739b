package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
)

func TestResultsFileName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	got := resultsFileName("out", ts)
	want := filepath.Join("out", "registration_results_20240309_140507.json")
	if got != want {
		t.Errorf("resultsFileName() = %s, want %s", got, want)
	}
}

func TestWriteResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	result := models.NewBatchResult("b-1", 1, time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC))
	result.State = models.BatchStateCompleted
	result.FinishedAt = result.StartedAt.Add(time.Minute)

	path, err := writeResults(dir, result)
	if err != nil {
		t.Fatalf("writeResults() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("results file is not JSON: %v", err)
	}
	if decoded["id"] != "b-1" || decoded["state"] != string(models.BatchStateCompleted) {
		t.Errorf("decoded = %v", decoded)
	}
}

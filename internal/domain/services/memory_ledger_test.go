package services

import (
	"context"
	"testing"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	pkgutils "github.com/athebyme/listing-pipeline/pkg/utils"
)

func seedLedger(t *testing.T) *MemoryLedger {
	t.Helper()
	l := NewMemoryLedger()
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	for i, failed := range []int{2, 0, 5} {
		r := models.NewBatchResult(string(rune('a'+i)), 10, start.Add(time.Duration(i)*time.Hour))
		r.State = models.BatchStateCompleted
		r.Failed = failed
		if err := l.SaveBatch(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func ids(items []models.BatchSummary) string {
	out := ""
	for _, s := range items {
		out += s.ID
	}
	return out
}

func TestMemoryLedger_ListBatchesSort(t *testing.T) {
	l := seedLedger(t)

	tests := []struct {
		name   string
		sortBy string
		desc   bool
		page   int
		size   int
		want   string
	}{
		{"newest first", "", true, 1, 10, "cba"},
		{"oldest first", "started_at", false, 1, 10, "abc"},
		{"most failures", "failed", true, 1, 10, "cab"},
		{"unknown field falls back", "state", true, 1, 10, "cba"},
		{"second page", "started_at", true, 2, 2, "a"},
		{"past the end", "started_at", true, 3, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pkgutils.NewPagination(tt.page, tt.size, tt.sortBy, tt.desc)
			items, total, err := l.ListBatches(context.Background(), nil, p)
			if err != nil {
				t.Fatalf("ListBatches failed: %v", err)
			}
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
			if got := ids(items); got != tt.want {
				t.Errorf("order = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryLedger_ListBatchesFilter(t *testing.T) {
	l := seedLedger(t)

	filter := models.BatchFilter{WithFailures: true}
	items, total, err := l.ListBatches(context.Background(), filter.ToMap(),
		pkgutils.NewPagination(1, 10, models.BatchSortFailed, false))
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if total != 2 || ids(items) != "ac" {
		t.Errorf("items = %q (total %d), want \"ac\" of 2", ids(items), total)
	}
}

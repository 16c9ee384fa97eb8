package queue_test

import (
	"context"
	"testing"

	"pageturn/internal/queue"
	"pageturn/internal/testsupport"
)

func TestNewJobDefaults(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.NewJob(ctx, "bk_1", "A Quiet Winter")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("job id empty")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("status = %s", job.Status)
	}
	if job.BookID != "bk_1" || job.Title != "A Quiet Winter" {
		t.Fatalf("job fields = %+v", job)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestNewJobRequiresBookID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := store.NewJob(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty book id")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job, err := store.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil, got %+v", job)
	}
}

func TestClaimNextOrdersOldestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.NewJob(ctx, "bk_1", "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := store.NewJob(ctx, "bk_2", ""); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed = %+v, want job %s", claimed, first.ID)
	}
	if claimed.Status != queue.StatusExporting {
		t.Fatalf("claimed status = %s", claimed.Status)
	}

	row, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.Status != queue.StatusExporting {
		t.Fatalf("persisted status = %s", row.Status)
	}
}

func TestClaimNextEmptyQueue(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	claimed, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected nil claim, got %+v", claimed)
	}
}

func TestProgressAndCompletion(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.NewJob(ctx, "bk_1", "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	if err := store.UpdateProgress(ctx, job.ID, "rendering_frames", 22.5, "frame 120/480"); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	row, _ := store.GetByID(ctx, job.ID)
	if row.ProgressPhase != "rendering_frames" || row.ProgressPercent != 22.5 || row.ProgressMessage != "frame 120/480" {
		t.Fatalf("progress row = %+v", row)
	}

	if err := store.MarkCompleted(ctx, job.ID, "https://cdn.example.com/v.mp4", 184.5, 2048); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	row, _ = store.GetByID(ctx, job.ID)
	if row.Status != queue.StatusCompleted || row.VideoURL != "https://cdn.example.com/v.mp4" {
		t.Fatalf("completed row = %+v", row)
	}
	if row.VideoDuration != 184.5 || row.VideoSize != 2048 || row.ProgressPercent != 100 {
		t.Fatalf("completed row = %+v", row)
	}
	if !row.IsTerminal() {
		t.Fatal("completed job not terminal")
	}
}

func TestMarkFailed(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, _ := store.NewJob(ctx, "bk_1", "")
	if err := store.MarkFailed(ctx, job.ID, "encode: ffmpeg exited 1"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	row, _ := store.GetByID(ctx, job.ID)
	if row.Status != queue.StatusFailed || row.ErrorMessage != "encode: ffmpeg exited 1" {
		t.Fatalf("failed row = %+v", row)
	}
	if row.ProgressPhase != "error" {
		t.Fatalf("phase = %s", row.ProgressPhase)
	}
}

func TestResetStuck(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, _ := store.NewJob(ctx, "bk_1", "")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	n, err := store.ResetStuck(ctx)
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if n != 1 {
		t.Fatalf("reset %d jobs, want 1", n)
	}
	row, _ := store.GetByID(ctx, job.ID)
	if row.Status != queue.StatusFailed || row.ErrorMessage != queue.RunnerStopReason {
		t.Fatalf("reset row = %+v", row)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a, _ := store.NewJob(ctx, "bk_1", "")
	b, _ := store.NewJob(ctx, "bk_2", "")
	_ = store.MarkFailed(ctx, b.ID, "boom")

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("pending list = %+v", pending)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all list = %d rows", len(all))
	}
}

func TestClearRemovesFinishedJobs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a, _ := store.NewJob(ctx, "bk_1", "")
	b, _ := store.NewJob(ctx, "bk_2", "")
	c, _ := store.NewJob(ctx, "bk_3", "")
	_ = store.MarkCompleted(ctx, a.ID, "url", 1, 1)
	_ = store.MarkFailed(ctx, b.ID, "boom")

	n, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Fatalf("cleared %d, want 2", n)
	}
	remaining, _ := store.List(ctx)
	if len(remaining) != 1 || remaining[0].ID != c.ID {
		t.Fatalf("remaining = %+v", remaining)
	}
}

func TestHealthSummary(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	_, _ = store.NewJob(ctx, "bk_1", "")
	b, _ := store.NewJob(ctx, "bk_2", "")
	_ = store.MarkFailed(ctx, b.ID, "boom")

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Failed != 1 {
		t.Fatalf("health = %+v", health)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Pending "); !ok || status != queue.StatusPending {
		t.Fatalf("ParseStatus = %v %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("unknown status accepted")
	}
}

package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tracksync/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (TrackerRepository, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := gdb.AutoMigrate(&model.Tracker{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormTrackerRepository(gdb), gdb
}

func TestCreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	tracker := &model.Tracker{Task: "a | b | STATUS:pending | PRIORITY:low", StartTime: start}
	if err := repo.Create(ctx, tracker); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tracker.ID == 0 || tracker.CreatedAt.IsZero() {
		t.Fatalf("id/created_at not assigned: %+v", tracker)
	}

	got, err := repo.GetByID(ctx, tracker.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Task != tracker.Task || !got.StartTime.Equal(start) || got.EndTime != nil {
		t.Errorf("got %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	repo, _ := newTestRepo(t)
	if _, err := repo.GetByID(context.Background(), 42); !errors.Is(err, ErrTrackerNotFound) {
		t.Errorf("expected ErrTrackerNotFound, got %v", err)
	}
}

func TestListOrder(t *testing.T) {
	repo, gdb := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.Tracker{
		{Task: "old", StartTime: base, CreatedAt: base},
		{Task: "new", StartTime: base, CreatedAt: base.Add(time.Hour)},
		{Task: "tie", StartTime: base, CreatedAt: base},
	}
	for i := range rows {
		if err := gdb.Create(&rows[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var tasks []string
	for _, tr := range list {
		tasks = append(tasks, tr.Task)
	}
	want := []string{"new", "tie", "old"}
	if len(tasks) != 3 || tasks[0] != want[0] || tasks[1] != want[1] || tasks[2] != want[2] {
		t.Errorf("order = %v, want %v", tasks, want)
	}
}

func TestListEmpty(t *testing.T) {
	repo, _ := newTestRepo(t)
	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("List() = %#v, want empty slice", list)
	}
}

func TestUpdate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	tracker := &model.Tracker{Task: "before", StartTime: start}
	if err := repo.Create(ctx, tracker); err != nil {
		t.Fatal(err)
	}

	task := "after"
	end := start.Add(2 * time.Hour)
	updated, err := repo.Update(ctx, tracker.ID, model.TrackerChanges{Task: &task, EndTime: &end})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Task != "after" || updated.EndTime == nil || !updated.EndTime.Equal(end) || !updated.StartTime.Equal(start) {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := repo.Update(ctx, 999, model.TrackerChanges{Task: &task}); !errors.Is(err, ErrTrackerNotFound) {
		t.Errorf("expected ErrTrackerNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	tracker := &model.Tracker{Task: "gone", StartTime: time.Now().UTC()}
	if err := repo.Create(ctx, tracker); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, tracker.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, tracker.ID); !errors.Is(err, ErrTrackerNotFound) {
		t.Errorf("second delete: expected ErrTrackerNotFound, got %v", err)
	}
}

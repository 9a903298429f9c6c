package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/persistence/gormstore/migrations"
	"rncflow/internal/infrastructure/persistence/gormstore/uow"
	"rncflow/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "rnc.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func sampleRNC(number uint64, partCode string, occurred time.Time) rnc.RNC {
	return rnc.RNC{
		Number:           number,
		Title:            "crack on housing",
		CriticalLevel:    rnc.CriticalMedium,
		PartCode:         partCode,
		PartID:           1,
		Status:           rnc.StatusOpen,
		Condition:        rnc.ConditionInAnalysis,
		DateOfOccurrence: occurred,
		OpeningDate:      occurred,
		OpenByID:         7,
	}
}

func TestInsertAndFindByNumber(t *testing.T) {
	repo := NewRNCRepository(setupDB(t))
	ctx := context.Background()
	occurred := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)

	created, err := repo.Insert(ctx, sampleRNC(1, "P-1", occurred))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("Insert() did not assign id")
	}

	got, err := repo.FindByNumber(ctx, 1, false)
	if err != nil {
		t.Fatalf("FindByNumber() error = %v", err)
	}
	if got.PartCode != "P-1" || got.Condition != rnc.ConditionInAnalysis || !got.DateOfOccurrence.Equal(occurred) {
		t.Fatalf("FindByNumber() = %+v", got)
	}
	if got.ClosingDate != nil || got.AnalysisUserID != nil {
		t.Fatalf("optional fields not nil: %+v", got)
	}

	if _, err := repo.FindByNumber(ctx, 99, false); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("FindByNumber(missing) error = %v", err)
	}
}

func TestOpenReportIsUniquePerPart(t *testing.T) {
	repo := NewRNCRepository(setupDB(t))
	ctx := context.Background()
	now := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)

	first, err := repo.Insert(ctx, sampleRNC(1, "P-1", now))
	if err != nil {
		t.Fatalf("Insert(first) error = %v", err)
	}

	_, err = repo.Insert(ctx, sampleRNC(2, "P-1", now))
	if !errors.Is(err, ports.ErrUniqueViolation) {
		t.Fatalf("Insert(second open) error = %v, want ErrUniqueViolation", err)
	}
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("kind = %v", errs.KindOf(err))
	}

	first.Status = rnc.StatusClosed
	first.Condition = rnc.ConditionApproved
	closedAt := now.Add(time.Hour)
	first.ClosingDate = &closedAt
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("Update(close) error = %v", err)
	}

	if _, err := repo.Insert(ctx, sampleRNC(2, "P-1", now)); err != nil {
		t.Fatalf("Insert(after close) error = %v", err)
	}

	current, found, err := repo.FindOpenByPartCode(ctx, "P-1")
	if err != nil || !found || current.Number != 2 {
		t.Fatalf("FindOpenByPartCode() = %d, %v, %v", current.Number, found, err)
	}
}

func TestDuplicateNumberIsRejected(t *testing.T) {
	repo := NewRNCRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := repo.Insert(ctx, sampleRNC(5, "P-1", now)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := repo.Insert(ctx, sampleRNC(5, "P-2", now)); !errors.Is(err, ports.ErrUniqueViolation) {
		t.Fatalf("Insert(dup number) error = %v", err)
	}
}

func TestUpdateMissingReport(t *testing.T) {
	repo := NewRNCRepository(setupDB(t))
	item := sampleRNC(1, "P-1", time.Now().UTC())
	item.ID = 404

	if err := repo.Update(context.Background(), item); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestListFiltersAndOrdering(t *testing.T) {
	repo := NewRNCRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for i, code := range []string{"A", "B", "C"} {
		item := sampleRNC(uint64(i+1), code, base.AddDate(0, 0, i))
		if code == "B" {
			item.OpenByID = 8
			item.Condition = rnc.ConditionAwaitingRework
		}
		if _, err := repo.Insert(ctx, item); err != nil {
			t.Fatalf("Insert(%s) error = %v", code, err)
		}
	}

	all, err := repo.List(ctx, ports.RNCFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].Number != 3 || all[2].Number != 1 {
		t.Fatalf("List() order = %v", numbers(all))
	}

	openBy := uint64(8)
	mine, err := repo.List(ctx, ports.RNCFilter{OpenByID: &openBy})
	if err != nil || len(mine) != 1 || mine[0].PartCode != "B" {
		t.Fatalf("List(open_by) = %v, %v", numbers(mine), err)
	}

	cond := rnc.ConditionInAnalysis
	page, err := repo.List(ctx, ports.RNCFilter{Condition: &cond, Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 || page[0].Number != 1 {
		t.Fatalf("List(condition, page 2) = %v, %v", numbers(page), err)
	}
}

func TestScanVisitsEveryReportInBatches(t *testing.T) {
	repo := NewRNCRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 1; i <= 5; i++ {
		if _, err := repo.Insert(ctx, sampleRNC(uint64(i), string(rune('A'+i)), now)); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	var batches, seen int
	if err := repo.Scan(ctx, 2, func(batch []rnc.RNC) error {
		batches++
		seen += len(batch)
		return nil
	}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if batches != 3 || seen != 5 {
		t.Fatalf("Scan() batches=%d seen=%d", batches, seen)
	}
}

func TestSequenceRequiresTransaction(t *testing.T) {
	db := setupDB(t)
	seq := NewSequence(db)
	repo := NewRNCRepository(db)
	ctx := context.Background()

	if _, err := seq.Next(ctx); err == nil {
		t.Fatalf("Next() outside tx expected error")
	}

	var got []uint64
	for i := 0; i < 3; i++ {
		if err := uow.NewUnitOfWork(db).WithTx(ctx, func(txCtx context.Context) error {
			n, err := seq.Next(txCtx)
			if err != nil {
				return err
			}
			got = append(got, n)
			_, err = repo.Insert(txCtx, sampleRNC(n, string(rune('A'+i)), time.Now().UTC()))
			return err
		}); err != nil {
			t.Fatalf("WithTx(%d) error = %v", i, err)
		}
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("allocated = %v", got)
	}
}

func TestPartsAndUsers(t *testing.T) {
	db := setupDB(t)
	parts := NewPartRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	part, err := parts.Create(ctx, rnc.Part{Code: " R-77 ", Description: "flange", Active: true})
	if err != nil {
		t.Fatalf("Create(part) error = %v", err)
	}
	if got, err := parts.FindByCode(ctx, "R-77"); err != nil || got.ID != part.ID || !got.Active {
		t.Fatalf("FindByCode() = %+v, %v", got, err)
	}
	if _, err := parts.Create(ctx, rnc.Part{Code: "R-77"}); !errors.Is(err, ports.ErrUniqueViolation) {
		t.Fatalf("Create(dup part) error = %v", err)
	}

	user, err := users.Create(ctx, rnc.User{Name: "Ana", Email: "Ana@Plant.example", PasswordHash: "x", Role: rnc.RoleQuality, Active: true})
	if err != nil {
		t.Fatalf("Create(user) error = %v", err)
	}
	got, err := users.FindByEmail(ctx, "ana@plant.example")
	if err != nil || got.ID != user.ID || got.Role != rnc.RoleQuality {
		t.Fatalf("FindByEmail() = %+v, %v", got, err)
	}
	if _, err := users.FindByID(ctx, 999); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("FindByID(missing) error = %v", err)
	}
}

func numbers(items []rnc.RNC) []uint64 {
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		out = append(out, item.Number)
	}
	return out
}

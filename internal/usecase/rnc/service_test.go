package rnc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domainrnc "rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/persistence/gormstore/migrations"
	"rncflow/internal/infrastructure/persistence/gormstore/repository"
	"rncflow/internal/infrastructure/persistence/gormstore/uow"
	"rncflow/internal/ports"
)

var (
	operator   = domainrnc.Actor{UserID: 1, Role: domainrnc.RoleOperator}
	quality    = domainrnc.Actor{UserID: 2, Role: domainrnc.RoleQuality}
	technician = domainrnc.Actor{UserID: 3, Role: domainrnc.RoleTechnician}
	engineer   = domainrnc.Actor{UserID: 4, Role: domainrnc.RoleEngineer}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domainrnc.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event domainrnc.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []domainrnc.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domainrnc.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type blockingParts struct {
	ports.PartRepository
}

func (p blockingParts) FindByCode(ctx context.Context, _ string) (domainrnc.Part, error) {
	<-ctx.Done()
	return domainrnc.Part{}, ctx.Err()
}

type testEnv struct {
	db       *gorm.DB
	svc      *Service
	notifier *recordingNotifier
}

func setupService(t *testing.T, opts Options, partCodes ...string) testEnv {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "workflow.sqlite")), &gorm.Config{})
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

	parts := repository.NewPartRepository(db)
	for _, code := range partCodes {
		if _, err := parts.Create(context.Background(), domainrnc.Part{Code: code, Active: true}); err != nil {
			t.Fatalf("create part %s: %v", code, err)
		}
	}

	notifier := &recordingNotifier{}
	svc := NewService(
		repository.NewRNCRepository(db),
		parts,
		repository.NewUserRepository(db),
		uow.NewUnitOfWork(db),
		repository.NewSequence(db),
		notifier,
		opts,
	)
	return testEnv{db: db, svc: svc, notifier: notifier}
}

func draftFor(code string) domainrnc.Draft {
	return domainrnc.Draft{Title: "burr on edge", CriticalLevel: "MEDIA", PartCode: code}
}

func TestScenarioReworkThenApproved(t *testing.T) {
	env := setupService(t, Options{ActionTimeout: 5 * time.Second}, "R-1234")
	ctx := context.Background()

	opened, err := env.svc.Open(ctx, draftFor("R-1234"), operator)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened.Number != 1 || opened.Condition != domainrnc.ConditionInAnalysis || opened.Status != domainrnc.StatusOpen {
		t.Fatalf("Open() = num %d %s/%s", opened.Number, opened.Status, opened.Condition)
	}

	analysis := domainrnc.Analysis{RootCause: "worn tool", CorrectiveAction: "replace insert"}
	analyzed, err := env.svc.Analyze(ctx, 1, analysis, quality)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analyzed.Condition != domainrnc.ConditionAwaitingRework || analyzed.Status != domainrnc.StatusOpen {
		t.Fatalf("Analyze() = %s/%s", analyzed.Status, analyzed.Condition)
	}

	reworked, err := env.svc.Rework(ctx, 1, domainrnc.Rework{Description: "deburr", ActionsTaken: "manual finish"}, technician)
	if err != nil {
		t.Fatalf("Rework() error = %v", err)
	}
	if reworked.Condition != domainrnc.ConditionAwaitingVerification {
		t.Fatalf("Rework() condition = %s", reworked.Condition)
	}

	analysis.CloseRNC = true
	closed, err := env.svc.Analyze(ctx, 1, analysis, engineer)
	if err != nil {
		t.Fatalf("Analyze(close) error = %v", err)
	}
	if closed.Condition != domainrnc.ConditionApproved || closed.Status != domainrnc.StatusClosed || closed.ClosingDate == nil {
		t.Fatalf("Analyze(close) = %s/%s closing=%v", closed.Status, closed.Condition, closed.ClosingDate)
	}

	stored, err := env.svc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != domainrnc.StatusClosed || stored.ClosedByID == nil || *stored.ClosedByID != engineer.UserID {
		t.Fatalf("Get() = %+v", stored)
	}

	want := []domainrnc.EventType{
		domainrnc.EventCreated,
		domainrnc.EventAnalysisCompleted,
		domainrnc.EventReworkCompleted,
		domainrnc.EventAnalysisCompleted,
		domainrnc.EventClosed,
	}
	got := env.notifier.types()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if last := env.notifier.events[len(env.notifier.events)-1]; !last.RNC.CloseRNC {
		t.Fatalf("last event close_rnc = false")
	}
}

func TestScenarioScrapInOneStep(t *testing.T) {
	env := setupService(t, Options{}, "R-9")
	ctx := context.Background()

	if _, err := env.svc.Open(ctx, draftFor("R-9"), operator); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	scrapped, err := env.svc.Analyze(ctx, 1, domainrnc.Analysis{
		RootCause:        "porosity",
		CorrectiveAction: "scrap",
		CloseRNC:         true,
		Refused:          true,
	}, quality)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if scrapped.Condition != domainrnc.ConditionScrapped || scrapped.Status != domainrnc.StatusClosed {
		t.Fatalf("Analyze() = %s/%s", scrapped.Status, scrapped.Condition)
	}
	want := []domainrnc.EventType{domainrnc.EventCreated, domainrnc.EventAnalysisCompleted, domainrnc.EventClosed}
	if got := env.notifier.types(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	if _, err := env.svc.Open(ctx, draftFor("R-9"), operator); err != nil {
		t.Fatalf("Open(after close) error = %v", err)
	}
}

func TestClosedReportRejectsEveryAction(t *testing.T) {
	env := setupService(t, Options{}, "P-1")
	ctx := context.Background()

	if _, err := env.svc.Open(ctx, draftFor("P-1"), operator); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := env.svc.Close(ctx, 1, "accepted as is", quality); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	admin := domainrnc.Actor{UserID: 9, Role: domainrnc.RoleAdmin}
	for _, actor := range []domainrnc.Actor{operator, quality, technician, engineer, admin} {
		_, err := env.svc.Analyze(ctx, 1, domainrnc.Analysis{RootCause: "a", CorrectiveAction: "b"}, actor)
		if errs.KindOf(err) != errs.KindForbidden {
			t.Fatalf("Analyze(%s) error = %v", actor.Role, err)
		}
		_, err = env.svc.Rework(ctx, 1, domainrnc.Rework{Description: "a", ActionsTaken: "b"}, actor)
		if errs.KindOf(err) != errs.KindForbidden {
			t.Fatalf("Rework(%s) error = %v", actor.Role, err)
		}
		_, err = env.svc.Close(ctx, 1, "", actor)
		if errs.KindOf(err) != errs.KindForbidden {
			t.Fatalf("Close(%s) error = %v", actor.Role, err)
		}
	}

	stored, err := env.svc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.ClosingNotes != "accepted as is" || stored.Condition != domainrnc.ConditionInAnalysis {
		t.Fatalf("closed report mutated: %+v", stored)
	}
}

func TestReworkPreconditions(t *testing.T) {
	env := setupService(t, Options{}, "P-1")
	ctx := context.Background()

	if _, err := env.svc.Open(ctx, draftFor("P-1"), operator); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	_, err := env.svc.Rework(ctx, 1, domainrnc.Rework{Description: "a", ActionsTaken: "b"}, technician)
	if !errors.Is(err, domainrnc.ErrTransitionNotAllowed) {
		t.Fatalf("Rework(EM_ANALISE) error = %v", err)
	}
	if _, err := env.svc.Rework(ctx, 42, domainrnc.Rework{Description: "a", ActionsTaken: "b"}, technician); !errors.Is(err, domainrnc.ErrRNCNotFound) {
		t.Fatalf("Rework(missing) error = %v", err)
	}
}

func TestOpenValidatesInput(t *testing.T) {
	env := setupService(t, Options{}, "P-1")
	ctx := context.Background()

	if _, err := env.svc.Open(ctx, draftFor("P-404"), operator); !errors.Is(err, domainrnc.ErrPartNotFound) {
		t.Fatalf("Open(unknown part) error = %v", err)
	}
	if _, err := env.svc.Open(ctx, domainrnc.Draft{Title: "x", CriticalLevel: "EXTREMA", PartCode: "P-1"}, operator); !errors.Is(err, domainrnc.ErrInvalidCriticalLevel) {
		t.Fatalf("Open(bad level) error = %v", err)
	}
	if _, err := env.svc.Open(ctx, draftFor("P-1"), technician); !errors.Is(err, domainrnc.ErrRoleNotAllowed) {
		t.Fatalf("Open(technician) error = %v", err)
	}
	if _, err := env.svc.Analyze(ctx, 1, domainrnc.Analysis{}, quality); !errors.Is(err, domainrnc.ErrRNCNotFound) {
		t.Fatalf("Analyze(missing) error = %v", err)
	}
	if len(env.notifier.types()) != 0 {
		t.Fatalf("failed actions published events: %v", env.notifier.types())
	}
}

func TestConcurrentOpenOnDistinctParts(t *testing.T) {
	const n = 8
	codes := make([]string, n)
	for i := range codes {
		codes[i] = fmt.Sprintf("D-%02d", i)
	}
	env := setupService(t, Options{ActionTimeout: 10 * time.Second}, codes...)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []uint64
		errList []error
	)
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			created, err := env.svc.Open(ctx, draftFor(code), operator)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errList = append(errList, err)
				return
			}
			numbers = append(numbers, created.Number)
		}(code)
	}
	wg.Wait()

	if len(errList) != 0 {
		t.Fatalf("Open() errors = %v", errList)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, num := range numbers {
		if num != uint64(i+1) {
			t.Fatalf("numbers = %v, want 1..%d", numbers, n)
		}
	}
}

func TestConcurrentOpenOnSamePart(t *testing.T) {
	env := setupService(t, Options{ActionTimeout: 10 * time.Second}, "S-1")
	ctx := context.Background()

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Open(ctx, draftFor("S-1"), operator)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errs.KindOf(err) == errs.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error = %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("ok=%d conflicts=%d", ok, conflicts)
	}

	open := domainrnc.StatusOpen
	items, err := env.svc.repo.List(ctx, ports.RNCFilter{Status: &open})
	if err != nil || len(items) != 1 {
		t.Fatalf("open reports = %d, %v", len(items), err)
	}
}

func TestActionTimeoutRollsBack(t *testing.T) {
	env := setupService(t, Options{ActionTimeout: 50 * time.Millisecond}, "T-1")
	env.svc.parts = blockingParts{PartRepository: env.svc.parts}
	ctx := context.Background()

	_, err := env.svc.Open(ctx, draftFor("T-1"), operator)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Open() error = %v, want deadline exceeded", err)
	}

	items, err := env.svc.List(ctx, ListInput{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("timed out open left %d reports", len(items))
	}
}

func TestUpdateAdvancesResponsible(t *testing.T) {
	env := setupService(t, Options{}, "U-1")
	ctx := context.Background()

	if _, err := env.svc.Open(ctx, draftFor("U-1"), operator); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	obs := "supplier notified"
	updated, err := env.svc.Update(ctx, 1, domainrnc.Update{Observations: &obs}, technician)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.CurrentResponsibleID == nil || *updated.CurrentResponsibleID != technician.UserID {
		t.Fatalf("responsible = %v", updated.CurrentResponsibleID)
	}

	ghost := uint64(777)
	if _, err := env.svc.Update(ctx, 1, domainrnc.Update{ResponsibleID: &ghost}, technician); !errors.Is(err, domainrnc.ErrUserNotFound) {
		t.Fatalf("Update(unknown responsible) error = %v", err)
	}

	types := env.notifier.types()
	if types[len(types)-1] != domainrnc.EventUpdated {
		t.Fatalf("events = %v", types)
	}
}

func TestListCurrentByPartAndStatistics(t *testing.T) {
	env := setupService(t, Options{}, "L-1", "L-2", "L-3")
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	clock := base
	env.svc.now = func() time.Time { return clock }

	for i, code := range []string{"L-1", "L-2", "L-3"} {
		clock = base.AddDate(0, 0, i)
		if _, err := env.svc.Open(ctx, draftFor(code), operator); err != nil {
			t.Fatalf("Open(%s) error = %v", code, err)
		}
	}

	for num, days := range map[uint64]int{1: 1, 2: 2, 3: 3} {
		clock = base.AddDate(0, 0, int(num)-1+days)
		if _, err := env.svc.Close(ctx, num, "", quality); err != nil {
			t.Fatalf("Close(%d) error = %v", num, err)
		}
	}

	stats, err := env.svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.AverageResolutionDays == nil || *stats.AverageResolutionDays != 2.0 {
		t.Fatalf("average = %v", stats.AverageResolutionDays)
	}
	if stats.Total != 3 || stats.Closed != 3 || stats.MonthlyOpened["2026-04"] != 3 {
		t.Fatalf("stats = %+v", stats)
	}

	clock = base.AddDate(0, 1, 0)
	if _, err := env.svc.Open(ctx, draftFor("L-2"), operator); err != nil {
		t.Fatalf("Open(L-2 again) error = %v", err)
	}
	current, err := env.svc.CurrentByPart(ctx, "L-2")
	if err != nil || current.Number != 4 {
		t.Fatalf("CurrentByPart() = %d, %v", current.Number, err)
	}
	if _, err := env.svc.CurrentByPart(ctx, "L-1"); !errors.Is(err, domainrnc.ErrRNCNotFound) {
		t.Fatalf("CurrentByPart(no open) error = %v", err)
	}

	items, err := env.svc.List(ctx, ListInput{Status: "fechado", Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 || items[0].Number != 3 {
		t.Fatalf("List() = %d items, first %d", len(items), items[0].Number)
	}
	if _, err := env.svc.List(ctx, ListInput{Condition: "PENDENTE"}); !errors.Is(err, domainrnc.ErrInvalidCondition) {
		t.Fatalf("List(bad condition) error = %v", err)
	}
}

// racyReports rejects the first failures inserts the way a concurrent writer
// on another connection would.
type racyReports struct {
	ports.RNCRepository

	mu       sync.Mutex
	failures int
	inserts  int
}

func (r *racyReports) Insert(ctx context.Context, item domainrnc.RNC) (domainrnc.RNC, error) {
	r.mu.Lock()
	r.inserts++
	fail := r.inserts <= r.failures
	r.mu.Unlock()
	if fail {
		return domainrnc.RNC{}, fmt.Errorf("%w: insert rnc", ports.ErrUniqueViolation)
	}
	return r.RNCRepository.Insert(ctx, item)
}

func TestOpenRetriesOnceAfterUniqueViolation(t *testing.T) {
	env := setupService(t, Options{}, "U-1")
	reports := &racyReports{RNCRepository: env.svc.repo, failures: 1}
	env.svc.repo = reports
	ctx := context.Background()

	created, err := env.svc.Open(ctx, draftFor("U-1"), operator)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if created.Number != 1 || reports.inserts != 2 {
		t.Fatalf("Open() num=%d inserts=%d", created.Number, reports.inserts)
	}
	if got := env.notifier.types(); len(got) != 1 || got[0] != domainrnc.EventCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestOpenGivesUpAfterSecondUniqueViolation(t *testing.T) {
	env := setupService(t, Options{}, "U-2")
	reports := &racyReports{RNCRepository: env.svc.repo, failures: 2}
	env.svc.repo = reports
	ctx := context.Background()

	_, err := env.svc.Open(ctx, draftFor("U-2"), operator)
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("Open() error = %v, want conflict", err)
	}
	if reports.inserts != 2 {
		t.Fatalf("inserts = %d, want 2", reports.inserts)
	}
	if len(env.notifier.types()) != 0 {
		t.Fatalf("failed open published events: %v", env.notifier.types())
	}
}

func TestOpenReportsCapacityExceeded(t *testing.T) {
	env := setupService(t, Options{}, "C-1")
	ctx := context.Background()

	occurred := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if _, err := env.svc.repo.Insert(ctx, domainrnc.RNC{
		Number:           domainrnc.MaxNumber,
		Title:            "last number",
		CriticalLevel:    domainrnc.CriticalLow,
		PartCode:         "C-1",
		PartID:           1,
		Status:           domainrnc.StatusClosed,
		Condition:        domainrnc.ConditionApproved,
		DateOfOccurrence: occurred,
		OpeningDate:      occurred,
		OpenByID:         operator.UserID,
	}); err != nil {
		t.Fatalf("seed report: %v", err)
	}

	_, err := env.svc.Open(ctx, draftFor("C-1"), operator)
	if !errors.Is(err, domainrnc.ErrCapacityExceeded) || errs.KindOf(err) != errs.KindCapacity {
		t.Fatalf("Open() error = %v kind=%v, want capacity", err, errs.KindOf(err))
	}

	items, err := env.svc.List(ctx, ListInput{})
	if err != nil || len(items) != 1 {
		t.Fatalf("reports after failed open = %d, %v", len(items), err)
	}
}

func TestListAsRequiresListRoleUnlessOwnReports(t *testing.T) {
	env := setupService(t, Options{}, "B-1")
	ctx := context.Background()

	if _, err := env.svc.Open(ctx, draftFor("B-1"), operator); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := env.svc.ListAs(ctx, ListInput{}, operator); !errors.Is(err, domainrnc.ErrRoleNotAllowed) {
		t.Fatalf("ListAs(operator, all) error = %v", err)
	}
	other := uint64(99)
	if _, err := env.svc.ListAs(ctx, ListInput{OpenByID: &other}, operator); !errors.Is(err, domainrnc.ErrRoleNotAllowed) {
		t.Fatalf("ListAs(operator, someone else) error = %v", err)
	}

	own := operator.UserID
	mine, err := env.svc.ListAs(ctx, ListInput{OpenByID: &own}, operator)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListAs(operator, own) = %d, %v", len(mine), err)
	}
	all, err := env.svc.ListAs(ctx, ListInput{}, technician)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAs(technician) = %d, %v", len(all), err)
	}
}

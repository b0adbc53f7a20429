package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tapin-reveal/internal/database"
	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/repository"
)

// openTestDB connects to the database named by TAPIN_TEST_MYSQL_DSN and
// bootstraps the schema.  Tests are skipped when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TAPIN_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TAPIN_TEST_MYSQL_DSN not set")
	}
	db, err := database.OpenDSN(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func TestMySQLPresenceActivation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewPresenceRepo(db)
	uid := uuid.NewString()
	t0 := time.Now().UTC().Truncate(time.Second)

	beat := func(at time.Time, stationary bool) model.Presence {
		t.Helper()
		p, err := repo.UpsertHeartbeat(ctx, repository.HeartbeatInput{UserID: uid, Lat: 1, Lng: 2, IsStationary: stationary, Now: at})
		if err != nil {
			t.Fatalf("UpsertHeartbeat: %v", err)
		}
		return p
	}

	if p := beat(t0, true); p.ActivatedAt == nil || !p.ActivatedAt.Equal(t0) {
		t.Fatalf("first stationary beat: %v", p.ActivatedAt)
	}
	if p := beat(t0.Add(10*time.Second), true); p.ActivatedAt == nil || !p.ActivatedAt.Equal(t0) {
		t.Fatalf("repeat stationary beat moved activation: %v", p.ActivatedAt)
	}
	if p := beat(t0.Add(20*time.Second), false); p.ActivatedAt != nil {
		t.Fatalf("moving beat should clear activation: %v", p.ActivatedAt)
	}
	if p := beat(t0.Add(30*time.Second), true); p.ActivatedAt == nil || !p.ActivatedAt.Equal(t0.Add(30*time.Second)) {
		t.Fatalf("re-activation: %v", p.ActivatedAt)
	}

	rows, err := repo.ListEligible(ctx, repository.EligibleFilter{
		ActivatedBefore: t0.Add(time.Minute),
		SeenSince:       t0,
		Bounds:          &repository.Bounds{MinLat: 0.5, MaxLat: 1.5, MinLng: 1.5, MaxLng: 2.5},
	})
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	found := false
	for _, p := range rows {
		found = found || p.UserID == uid
	}
	if !found {
		t.Fatalf("user missing from eligible rows")
	}
}

func TestMySQLCycleUniqueKeys(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewCycleRepo(db)
	viewer, target := uuid.NewString(), uuid.NewString()
	day := "2026-03-01"
	now := time.Now().UTC()

	s := model.CycleSlot{ViewerID: viewer, DayKey: day, Slot: 1, TargetID: target, Status: model.SlotActive, CreatedAt: now, UpdatedAt: now}
	if err := repo.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	s2 := s
	s2.TargetID = uuid.NewString()
	if err := repo.Insert(ctx, s2); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("same slot: expected ErrDuplicate, got %v", err)
	}
	s3 := s
	s3.Slot = 2
	if err := repo.Insert(ctx, s3); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("same target: expected ErrDuplicate, got %v", err)
	}

	if err := repo.SetConversationIfEmpty(ctx, viewer, day, target, "c1"); err != nil {
		t.Fatalf("SetConversationIfEmpty: %v", err)
	}
	if err := repo.SetConversationIfEmpty(ctx, viewer, day, target, "c2"); err != nil {
		t.Fatalf("SetConversationIfEmpty: %v", err)
	}
	if err := repo.UpdateStatus(ctx, viewer, day, target, model.SlotMeet); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, err := repo.FindByTarget(ctx, viewer, day, target)
	if err != nil || got.ConversationID != "c1" || got.Status != model.SlotMeet {
		t.Fatalf("FindByTarget: %+v %v", got, err)
	}
	if _, err := repo.FindByTarget(ctx, viewer, day, uuid.NewString()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing target: %v", err)
	}
}

func TestMySQLBlocklistAndConversation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()
	low, high := a, b
	if high < low {
		low, high = high, low
	}

	blocks := repository.NewBlocklistRepo(db)
	if err := blocks.Upsert(ctx, model.BlocklistEntry{UserLow: low, UserHigh: high, Reason: model.BlockReasonPassed, LastConversationID: "c1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := blocks.Upsert(ctx, model.BlocklistEntry{UserLow: low, UserHigh: high, Reason: model.BlockReasonPassed}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	e, err := blocks.Get(ctx, low, high)
	if err != nil || e.LastConversationID != "c1" {
		t.Fatalf("Get: %+v %v", e, err)
	}

	convs := repository.NewConversationRepo(db)
	id := uuid.NewString()
	if _, err := convs.Ensure(ctx, id, a, b, time.Now()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if changed, err := convs.SetStatusIfOpen(ctx, id, model.ConversationMatched); err != nil || !changed {
		t.Fatalf("SetStatusIfOpen: %v %v", changed, err)
	}
	if changed, _ := convs.SetStatusIfOpen(ctx, id, model.ConversationPassed); changed {
		t.Fatalf("resolved conversation changed status")
	}
	if ok, err := convs.MarkRevealed(ctx, id, time.Now()); err != nil || !ok {
		t.Fatalf("MarkRevealed: %v %v", ok, err)
	}
	if ok, _ := convs.MarkRevealed(ctx, id, time.Now()); ok {
		t.Fatalf("revealed twice")
	}
	_ = convs.RecordSender(ctx, id, a)
	_ = convs.RecordSender(ctx, id, a)
	_ = convs.RecordSender(ctx, id, b)
	if n, err := convs.CountSenders(ctx, id); err != nil || n != 2 {
		t.Fatalf("CountSenders: %d %v", n, err)
	}
}

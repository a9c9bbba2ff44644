package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

func TestStoreRollsBackFailedTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	team := domain.Team{ID: "t1", Code: "TEAM0001", CurrentPosition: 1, Status: domain.TeamActive, CanRollDice: true}
	if err := store.CreateTeam(ctx, &team, nil); err != nil {
		t.Fatalf("create team: %v", err)
	}

	boom := errors.New("boom")
	err := store.InTx(ctx, func(ctx context.Context, repo app.Repository) error {
		team.CurrentPosition = 40
		if err := repo.UpdateTeam(ctx, team); err != nil {
			return err
		}
		if _, err := repo.AddTeamTime(ctx, team.ID, 180); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := store.GetTeam(ctx, "t1")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if got.CurrentPosition != 1 || got.TotalTimeSec != 0 {
		t.Fatalf("expected rollback, got position %d time %d", got.CurrentPosition, got.TotalTimeSec)
	}
}

func TestUpdateTeamKeepsCounters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	team := domain.Team{ID: "t1", Code: "TEAM0001"}
	if err := store.CreateTeam(ctx, &team, nil); err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := store.AddTeamTime(ctx, "t1", 300); err != nil {
		t.Fatalf("add time: %v", err)
	}
	if err := store.AddTeamScore(ctx, "t1", 10); err != nil {
		t.Fatalf("add score: %v", err)
	}

	stale := team
	stale.CurrentPosition = 7
	if err := store.UpdateTeam(ctx, stale); err != nil {
		t.Fatalf("update team: %v", err)
	}
	got, _ := store.GetTeam(ctx, "t1")
	if got.TotalTimeSec != 300 || got.Score != 10 || got.CurrentPosition != 7 {
		t.Fatalf("unexpected team %+v", got)
	}
}

func TestCreateAssignmentEnforcesExclusivity(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	first := domain.QuestionAssignment{ID: "a1", CheckpointID: "c1", QuestionID: "q1", TeamID: "t1", Status: domain.AssignmentPending}
	if err := store.CreateAssignment(ctx, &first); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	other := domain.QuestionAssignment{ID: "a2", CheckpointID: "c2", QuestionID: "q1", TeamID: "t2", Status: domain.AssignmentPending}
	if err := store.CreateAssignment(ctx, &other); !errors.Is(err, domain.ErrQuestionAlreadyAssigned) {
		t.Fatalf("expected question already assigned, got %v", err)
	}

	second := domain.QuestionAssignment{ID: "a3", CheckpointID: "c1", QuestionID: "q2", TeamID: "t1", Status: domain.AssignmentPending}
	if err := store.CreateAssignment(ctx, &second); !errors.Is(err, domain.ErrCheckpointHasAssignment) {
		t.Fatalf("expected checkpoint has assignment, got %v", err)
	}

	first.Status = domain.AssignmentCorrect
	if err := store.UpdateAssignment(ctx, first); err != nil {
		t.Fatalf("grade: %v", err)
	}
	if err := store.CreateAssignment(ctx, &other); err != nil {
		t.Fatalf("expected question reusable after grading, got %v", err)
	}
}

func TestRecentQuestionIDs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	old := domain.QuestionAssignment{ID: "a1", CheckpointID: "c1", QuestionID: "q-old", TeamID: "t1", CreatedAt: now.Add(-time.Hour)}
	fresh := domain.QuestionAssignment{ID: "a2", CheckpointID: "c2", QuestionID: "q-new", TeamID: "t1", CreatedAt: now.Add(-time.Minute)}
	for _, a := range []*domain.QuestionAssignment{&old, &fresh} {
		if err := store.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}

	ids, err := store.RecentQuestionIDs(ctx, "t1", now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("recent ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "q-new" {
		t.Fatalf("expected only q-new, got %v", ids)
	}
}

func TestDeleteMapInUse(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	m := domain.BoardMap{ID: "m1", Name: "Classic"}
	if err := store.CreateMap(ctx, &m); err != nil {
		t.Fatalf("create map: %v", err)
	}
	team := domain.Team{ID: "t1", Code: "TEAM0001", MapID: "m1"}
	if err := store.CreateTeam(ctx, &team, nil); err != nil {
		t.Fatalf("create team: %v", err)
	}
	if err := store.DeleteMap(ctx, "m1"); !errors.Is(err, domain.ErrMapInUse) {
		t.Fatalf("expected map in use, got %v", err)
	}
	dup := domain.BoardMap{ID: "m2", Name: "Classic"}
	if err := store.CreateMap(ctx, &dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
}

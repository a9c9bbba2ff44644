package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
	"snakes-hunt-service/internal/game"
	"snakes-hunt-service/internal/infra/memory"
)

// scriptedRand replays fixed draws: a roll consumes one draw for the die
// (value-1) and one for the room index.
type scriptedRand struct {
	mu    sync.Mutex
	draws []int
	next  int
}

func script(draws ...int) *scriptedRand {
	return &scriptedRand{draws: draws}
}

func (r *scriptedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.draws) == 0 {
		return 0
	}
	v := r.draws[r.next%len(r.draws)]
	r.next++
	return v % n
}

type harness struct {
	store  *memory.Store
	feed   *memory.Feed
	engine *app.Engine
	mapID  string
	clock  time.Time
}

func newHarness(t *testing.T, rnd game.Randomizer, opts ...app.EngineOption) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		store: memory.NewStore(),
		feed:  memory.NewFeed(),
		mapID: "map-1",
		clock: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
	m := domain.BoardMap{ID: h.mapID, Name: "Classic", IsActive: true}
	if err := h.store.CreateMap(ctx, &m); err != nil {
		t.Fatalf("create map: %v", err)
	}
	snake := domain.BoardRule{ID: "snake-47", MapID: h.mapID, Type: domain.RuleSnake, StartPos: 47, EndPos: 26}
	if err := h.store.CreateRule(ctx, &snake); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	ladder := domain.BoardRule{ID: "ladder-20", MapID: h.mapID, Type: domain.RuleLadder, StartPos: 20, EndPos: 60}
	if err := h.store.CreateRule(ctx, &ladder); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	base := []app.EngineOption{
		app.WithRandomizer(rnd),
		app.WithEvents(h.feed),
		app.WithClock(h.now),
	}
	h.engine = app.NewEngine(h.store, memory.NewBoardCache(h.store, time.Minute), append(base, opts...)...)
	return h
}

func (h *harness) now() time.Time {
	h.clock = h.clock.Add(time.Second)
	return h.clock
}

func (h *harness) addTeam(t *testing.T, id string, position int) domain.Team {
	t.Helper()
	team := domain.Team{
		ID:              id,
		Code:            "TEAM-" + id,
		Name:            "Team " + id,
		CurrentPosition: position,
		CurrentRoom:     1,
		Status:          domain.TeamActive,
		CanRollDice:     true,
		MapID:           h.mapID,
		CreatedAt:       h.now(),
	}
	if err := h.store.CreateTeam(context.Background(), &team, nil); err != nil {
		t.Fatalf("create team: %v", err)
	}
	return team
}

func (h *harness) addQuestion(t *testing.T, id string, difficulty domain.Difficulty, points int) domain.Question {
	t.Helper()
	q := domain.Question{
		ID:            id,
		Content:       "Question " + id,
		Options:       []string{"A", "B"},
		CorrectAnswer: "A",
		Difficulty:    difficulty,
		Category:      "GENERAL",
		Points:        points,
		IsActive:      true,
		CreatedAt:     h.now(),
	}
	if err := h.store.CreateQuestion(context.Background(), &q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func TestRollDiceLandsOnSnakeAndLocks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(5, 0))
	h.addTeam(t, "t1", 41)

	events, cancel, _ := h.feed.Subscribe(ctx, "t1")
	defer cancel()

	res, err := h.engine.RollDice(ctx, "t1")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if res.DiceValue != 6 || res.PositionBefore != 41 || res.PositionAfter != 47 {
		t.Fatalf("unexpected roll %+v", res)
	}
	if !res.IsSnakePosition || res.SnakeEndPosition == nil || *res.SnakeEndPosition != 26 {
		t.Fatalf("expected snake 47->26, got %+v", res)
	}
	if res.NewRoom == 1 {
		t.Fatalf("room must change, got %d", res.NewRoom)
	}
	if res.Checkpoint.CheckpointNumber != 1 || res.Checkpoint.Status != domain.CheckpointPending {
		t.Fatalf("unexpected checkpoint %+v", res.Checkpoint)
	}

	team, _ := h.store.GetTeam(ctx, "t1")
	if team.CanRollDice {
		t.Fatalf("dice must lock after a roll")
	}
	if team.CurrentPosition != 47 {
		t.Fatalf("snake must not move the team before resolution, got %d", team.CurrentPosition)
	}

	if _, err := h.engine.RollDice(ctx, "t1"); !errors.Is(err, domain.ErrDiceLocked) {
		t.Fatalf("expected dice locked, got %v", err)
	}
	eligibility, err := h.engine.CanRoll(ctx, "t1")
	if err != nil || eligibility.CanRoll || eligibility.Reason != "Pending checkpoint approval" {
		t.Fatalf("unexpected eligibility %+v err %v", eligibility, err)
	}

	select {
	case ev := <-events:
		if ev.Type != domain.EventDiceRolled || ev.Position != 47 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected dice_rolled event")
	}
}

func TestRollOvershootKeepsPosition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(4, 0))
	h.addTeam(t, "t1", 97)

	res, err := h.engine.RollDice(ctx, "t1")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if res.DiceValue != 5 || res.PositionAfter != 97 || res.HasWon {
		t.Fatalf("expected overshoot to stay on 97, got %+v", res)
	}
	if res.Checkpoint.PositionBefore != 97 || res.Checkpoint.PositionAfter != 97 {
		t.Fatalf("overshoot still records a checkpoint, got %+v", res.Checkpoint)
	}
}

func TestRollReachingGoalCompletesTeam(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(5, 3))
	h.addTeam(t, "t1", 94)

	res, err := h.engine.RollDice(ctx, "t1")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if !res.HasWon || res.PositionAfter != 100 {
		t.Fatalf("expected win, got %+v", res)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if team.Status != domain.TeamCompleted {
		t.Fatalf("expected COMPLETED, got %s", team.Status)
	}

	if _, err := h.engine.ApproveCheckpoint(ctx, res.Checkpoint.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := h.engine.RollDice(ctx, "t1"); !errors.Is(err, domain.ErrTeamCompleted) {
		t.Fatalf("expected completed precondition, got %v", err)
	}
	eligibility, _ := h.engine.CanRoll(ctx, "t1")
	if eligibility.Reason != "Team has completed the game" {
		t.Fatalf("unexpected reason %q", eligibility.Reason)
	}
}

func TestRoomNeverRepeats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, game.NewSeededRand(7))
	h.addTeam(t, "t1", 1)

	room := 1
	for i := 0; i < 12; i++ {
		res, err := h.engine.RollDice(ctx, "t1")
		if err != nil {
			t.Fatalf("roll %d: %v", i, err)
		}
		if res.NewRoom == room || !game.ValidRoom(res.NewRoom) {
			t.Fatalf("roll %d: room %d after %d", i, res.NewRoom, room)
		}
		room = res.NewRoom
		if res.IsSnakePosition {
			_, err = h.engine.HandleSnakeDodge(ctx, res.Checkpoint.ID, true)
		} else {
			_, err = h.engine.ApproveCheckpoint(ctx, res.Checkpoint.ID)
		}
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if res.HasWon {
			break
		}
	}
}

func TestRollUsesTeamsOwnBoardMap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(5, 0))
	plain := domain.BoardMap{ID: "map-2", Name: "Plain", IsActive: true}
	if err := h.store.CreateMap(ctx, &plain); err != nil {
		t.Fatalf("create map: %v", err)
	}
	h.addTeam(t, "classic", 41)
	other := h.addTeam(t, "plain", 41)
	if _, err := h.engine.AssignMap(ctx, other.ID, plain.ID); err != nil {
		t.Fatalf("assign map: %v", err)
	}

	res, err := h.engine.RollDice(ctx, "plain")
	if err != nil {
		t.Fatalf("roll plain: %v", err)
	}
	if res.PositionAfter != 47 || res.IsSnakePosition || res.SnakeEndPosition != nil {
		t.Fatalf("square 47 has no snake on the plain map, got %+v", res)
	}

	res, err = h.engine.RollDice(ctx, "classic")
	if err != nil {
		t.Fatalf("roll classic: %v", err)
	}
	if res.PositionAfter != 47 || !res.IsSnakePosition || res.SnakeEndPosition == nil || *res.SnakeEndPosition != 26 {
		t.Fatalf("expected snake 47->26 on the classic map, got %+v", res)
	}
}

func TestRollWithoutBoardMap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(0, 0))
	team := domain.Team{ID: "t1", Code: "TEAM0001", CurrentPosition: 1, CurrentRoom: 1, Status: domain.TeamActive, CanRollDice: true}
	if err := h.store.CreateTeam(ctx, &team, nil); err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := h.engine.RollDice(ctx, "t1"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := h.engine.RollDice(ctx, "missing"); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("expected team not found, got %v", err)
	}
}

func TestConcurrentRollsOnlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, game.NewSeededRand(1))
	h.addTeam(t, "t1", 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, locked := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.RollDice(ctx, "t1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrDiceLocked):
				locked++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if succeeded != 1 || locked != 7 {
		t.Fatalf("expected exactly one roll, got %d ok %d locked", succeeded, locked)
	}
	checkpoints, _ := h.store.ListCheckpoints(ctx, "t1")
	if len(checkpoints) != 1 {
		t.Fatalf("expected one checkpoint, got %d", len(checkpoints))
	}
}

func TestSnakeDodgeFailureAppliesPenalty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(5, 0))
	h.addTeam(t, "t1", 41)

	res, err := h.engine.RollDice(ctx, "t1")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	dodge, err := h.engine.HandleSnakeDodge(ctx, res.Checkpoint.ID, false)
	if err != nil {
		t.Fatalf("dodge: %v", err)
	}
	if !dodge.Penalty || dodge.PenaltySeconds != 180 || dodge.NewPosition != 26 {
		t.Fatalf("unexpected dodge %+v", dodge)
	}
	if !dodge.Checkpoint.SnakeDodgeAttempted || dodge.Checkpoint.Status != domain.CheckpointApproved {
		t.Fatalf("checkpoint not resolved %+v", dodge.Checkpoint)
	}

	team, _ := h.store.GetTeam(ctx, "t1")
	if team.CurrentPosition != 26 || team.TotalTimeSec != 180 || !team.CanRollDice {
		t.Fatalf("unexpected team %+v", team)
	}
	logs, _ := h.store.ListTimeLogs(ctx, "t1")
	if len(logs) != 1 || logs[0].Seconds != 180 || logs[0].Reason != "Snake penalty at position 47" {
		t.Fatalf("unexpected time logs %+v", logs)
	}

	if _, err := h.engine.HandleSnakeDodge(ctx, res.Checkpoint.ID, true); !errors.Is(err, domain.ErrCheckpointAlreadyProcessed) {
		t.Fatalf("expected already processed, got %v", err)
	}
}

func TestSnakeDodgeSuccessKeepsPosition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(5, 0))
	h.addTeam(t, "t1", 41)

	res, _ := h.engine.RollDice(ctx, "t1")
	dodge, err := h.engine.HandleSnakeDodge(ctx, res.Checkpoint.ID, true)
	if err != nil {
		t.Fatalf("dodge: %v", err)
	}
	if dodge.Penalty || dodge.NewPosition != 47 || dodge.Message != "Snake dodged successfully!" {
		t.Fatalf("unexpected dodge %+v", dodge)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if team.TotalTimeSec != 0 || team.CurrentPosition != 47 || !team.CanRollDice {
		t.Fatalf("unexpected team %+v", team)
	}
}

func TestSnakeDodgeRejectsPlainCheckpoint(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 1)

	res, _ := h.engine.RollDice(ctx, "t1")
	if _, err := h.engine.HandleSnakeDodge(ctx, res.Checkpoint.ID, false); !errors.Is(err, domain.ErrNotSnakePosition) {
		t.Fatalf("expected not snake position, got %v", err)
	}
}

func TestApproveCheckpointTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 1)

	res, _ := h.engine.RollDice(ctx, "t1")
	if _, err := h.engine.ApproveCheckpoint(ctx, res.Checkpoint.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if !team.CanRollDice {
		t.Fatalf("approval must unlock dice")
	}
	if _, err := h.engine.ApproveCheckpoint(ctx, res.Checkpoint.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestQuestionExclusivityAcrossTeams(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 1)
	h.addTeam(t, "t2", 1)
	q := h.addQuestion(t, "q1", domain.DifficultyEasy, 10)

	r1, _ := h.engine.RollDice(ctx, "t1")
	r2, _ := h.engine.RollDice(ctx, "t2")

	a1, err := h.engine.AssignQuestion(ctx, r1.Checkpoint.ID, q.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.engine.AssignQuestion(ctx, r2.Checkpoint.ID, q.ID); !errors.Is(err, domain.ErrQuestionAlreadyAssigned) {
		t.Fatalf("expected question already assigned, got %v", err)
	}
	if _, err := h.engine.ApproveCheckpoint(ctx, r1.Checkpoint.ID); !errors.Is(err, domain.ErrCheckpointAwaitingGrade) {
		t.Fatalf("expected awaiting grade, got %v", err)
	}

	if _, err := h.engine.GradeAnswer(ctx, a1.ID, false); err != nil {
		t.Fatalf("grade: %v", err)
	}
	if _, err := h.engine.AssignQuestion(ctx, r2.Checkpoint.ID, q.ID); err != nil {
		t.Fatalf("question should be free after grading, got %v", err)
	}
}

func TestGradeAnswerAwardsPointsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 1)
	q := h.addQuestion(t, "q1", domain.DifficultyEasy, 15)

	res, _ := h.engine.RollDice(ctx, "t1")
	a, err := h.engine.AssignQuestion(ctx, res.Checkpoint.ID, q.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if team.CanRollDice {
		t.Fatalf("dice must stay locked while the question is pending")
	}

	graded, err := h.engine.GradeSubmittedAnswer(ctx, a.ID, "  a ")
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !graded.IsCorrect || graded.Points != 15 || graded.Assignment.AnsweredAt == nil {
		t.Fatalf("unexpected grade %+v", graded)
	}

	team, _ = h.store.GetTeam(ctx, "t1")
	if team.Score != 15 || !team.CanRollDice {
		t.Fatalf("unexpected team %+v", team)
	}
	cp, _ := h.store.GetCheckpoint(ctx, res.Checkpoint.ID)
	if cp.Status != domain.CheckpointApproved {
		t.Fatalf("grading must approve the checkpoint")
	}
	stored, _ := h.store.GetQuestion(ctx, q.ID)
	if stored.TimesUsed != 1 || stored.TimesCorrect != 1 {
		t.Fatalf("unexpected usage %+v", stored)
	}

	if _, err := h.engine.GradeAnswer(ctx, a.ID, true); !errors.Is(err, domain.ErrAlreadyGraded) {
		t.Fatalf("expected already graded, got %v", err)
	}
}

func TestGradeIncorrectRevealsAnswer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 1)
	q := h.addQuestion(t, "q1", domain.DifficultyEasy, 15)

	res, _ := h.engine.RollDice(ctx, "t1")
	if _, err := h.engine.AssignQuestion(ctx, res.Checkpoint.ID, q.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	graded, err := h.engine.GradeCheckpoint(ctx, res.Checkpoint.ID, false)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if graded.IsCorrect || graded.Points != 0 || graded.CorrectAnswer != "A" {
		t.Fatalf("unexpected grade %+v", graded)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if team.Score != 0 || team.TotalTimeSec != 0 || !team.CanRollDice {
		t.Fatalf("incorrect answers cost nothing, got %+v", team)
	}
}

func TestAssignInactiveQuestion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 1)
	q := h.addQuestion(t, "q1", domain.DifficultyEasy, 10)
	q.IsActive = false
	if err := h.store.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("update question: %v", err)
	}

	res, _ := h.engine.RollDice(ctx, "t1")
	if _, err := h.engine.AssignQuestion(ctx, res.Checkpoint.ID, q.ID); !errors.Is(err, domain.ErrQuestionInactive) {
		t.Fatalf("expected inactive question, got %v", err)
	}
}

func TestUndoRestoresPreviousCheckpoint(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(5, 0))
	h.addTeam(t, "t1", 6)

	first, err := h.engine.RollDice(ctx, "t1")
	if err != nil {
		t.Fatalf("roll 1: %v", err)
	}
	if _, err := h.engine.ApproveCheckpoint(ctx, first.Checkpoint.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	second, err := h.engine.RollDice(ctx, "t1")
	if err != nil {
		t.Fatalf("roll 2: %v", err)
	}
	if first.PositionAfter != 12 || second.PositionAfter != 18 {
		t.Fatalf("unexpected positions %d %d", first.PositionAfter, second.PositionAfter)
	}

	undo, err := h.engine.UndoCheckpoint(ctx, second.Checkpoint.ID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if undo.NewPosition != 12 {
		t.Fatalf("expected position 12, got %d", undo.NewPosition)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if team.CurrentPosition != 12 || !team.CanRollDice {
		t.Fatalf("unexpected team %+v", team)
	}

	undo, err = h.engine.UndoCheckpoint(ctx, first.Checkpoint.ID)
	if err != nil {
		t.Fatalf("undo first: %v", err)
	}
	if undo.NewPosition != game.StartPosition {
		t.Fatalf("expected start position, got %d", undo.NewPosition)
	}
	if _, err := h.engine.UndoCheckpoint(ctx, first.Checkpoint.ID); !errors.Is(err, domain.ErrCheckpointNotFound) {
		t.Fatalf("expected not found on second undo, got %v", err)
	}
}

func TestUndoSkipsGapsInCheckpointNumbers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(0, 0))
	h.addTeam(t, "t1", 1)

	var rolls []app.RollResult
	for i := 0; i < 3; i++ {
		res, err := h.engine.RollDice(ctx, "t1")
		if err != nil {
			t.Fatalf("roll %d: %v", i+1, err)
		}
		if _, err := h.engine.ApproveCheckpoint(ctx, res.Checkpoint.ID); err != nil {
			t.Fatalf("approve %d: %v", i+1, err)
		}
		rolls = append(rolls, res)
	}
	if rolls[0].PositionAfter != 2 || rolls[2].PositionAfter != 4 {
		t.Fatalf("unexpected positions %d %d", rolls[0].PositionAfter, rolls[2].PositionAfter)
	}

	if _, err := h.engine.UndoCheckpoint(ctx, rolls[1].Checkpoint.ID); err != nil {
		t.Fatalf("undo #2: %v", err)
	}
	undo, err := h.engine.UndoCheckpoint(ctx, rolls[2].Checkpoint.ID)
	if err != nil {
		t.Fatalf("undo #3: %v", err)
	}
	if undo.NewPosition != rolls[0].PositionAfter {
		t.Fatalf("expected checkpoint #1 square %d, got %d", rolls[0].PositionAfter, undo.NewPosition)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if team.CurrentPosition != rolls[0].PositionAfter {
		t.Fatalf("unexpected team position %d", team.CurrentPosition)
	}
}

func TestUndoDropsAssignmentAndReopensCompletedTeam(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(5, 0))
	h.addTeam(t, "t1", 94)
	q := h.addQuestion(t, "q1", domain.DifficultyHard, 10)

	res, _ := h.engine.RollDice(ctx, "t1")
	if _, err := h.engine.AssignQuestion(ctx, res.Checkpoint.ID, q.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.engine.UndoCheckpoint(ctx, res.Checkpoint.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	team, _ := h.store.GetTeam(ctx, "t1")
	if team.Status != domain.TeamActive || team.CurrentPosition != 1 || !team.CanRollDice {
		t.Fatalf("unexpected team %+v", team)
	}
	if _, err := h.store.AssignmentForCheckpoint(ctx, res.Checkpoint.ID); !errors.Is(err, domain.ErrAssignmentNotFound) {
		t.Fatalf("expected assignment removed, got %v", err)
	}
}

func TestTimerAdjustAndSet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(0, 0))
	h.addTeam(t, "t1", 1)

	team, err := h.engine.AdjustTimer(ctx, "t1", 420, "")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if team.TotalTimeSec != 420 {
		t.Fatalf("expected 420, got %d", team.TotalTimeSec)
	}
	team, err = h.engine.SetTimer(ctx, "t1", 500, "")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if team.TotalTimeSec != 500 {
		t.Fatalf("expected 500, got %d", team.TotalTimeSec)
	}

	logs, _ := h.store.ListTimeLogs(ctx, "t1")
	if len(logs) != 2 || logs[1].Seconds != 80 || logs[1].Reason != "Timer set by superadmin" {
		t.Fatalf("unexpected logs %+v", logs)
	}
	sum := 0
	for _, l := range logs {
		sum += l.Seconds
	}
	if sum != team.TotalTimeSec {
		t.Fatalf("ledger %d disagrees with total %d", sum, team.TotalTimeSec)
	}

	if _, err := h.engine.SetTimer(ctx, "t1", -1, ""); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition for negative timer, got %v", err)
	}
}

func TestDisqualifyAndReinstate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 10)

	if _, err := h.engine.Disqualify(ctx, "t1"); err != nil {
		t.Fatalf("disqualify: %v", err)
	}
	if _, err := h.engine.Disqualify(ctx, "t1"); !errors.Is(err, domain.ErrTeamAlreadyDisqualified) {
		t.Fatalf("expected already disqualified, got %v", err)
	}
	if _, err := h.engine.RollDice(ctx, "t1"); !errors.Is(err, domain.ErrTeamDisqualified) {
		t.Fatalf("expected disqualified precondition, got %v", err)
	}
	team, err := h.engine.Reinstate(ctx, "t1")
	if err != nil {
		t.Fatalf("reinstate: %v", err)
	}
	if team.Status != domain.TeamActive || team.CurrentPosition != 10 {
		t.Fatalf("unexpected team %+v", team)
	}
	if _, err := h.engine.Reinstate(ctx, "t1"); !errors.Is(err, domain.ErrTeamNotDisqualified) {
		t.Fatalf("expected not disqualified, got %v", err)
	}
}

func TestChangeRoomAndAssignMap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(0, 0))
	h.addTeam(t, "t1", 1)

	if _, err := h.engine.ChangeRoom(ctx, "t1", 11); !errors.Is(err, domain.ErrInvalidRoom) {
		t.Fatalf("expected invalid room, got %v", err)
	}
	team, err := h.engine.ChangeRoom(ctx, "t1", 7)
	if err != nil || team.CurrentRoom != 7 {
		t.Fatalf("change room: %+v %v", team, err)
	}
	if _, err := h.engine.AssignMap(ctx, "t1", "nope"); !errors.Is(err, domain.ErrMapNotFound) {
		t.Fatalf("expected map not found, got %v", err)
	}
}

func TestPickQuestionExcludesPendingAndWidens(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0))
	h.addTeam(t, "t1", 1)
	h.addTeam(t, "t2", 1)
	q1 := h.addQuestion(t, "q1", domain.DifficultyEasy, 10)
	q2 := h.addQuestion(t, "q2", domain.DifficultyEasy, 10)
	h.addQuestion(t, "q3", domain.DifficultyHard, 10)

	r1, _ := h.engine.RollDice(ctx, "t1")
	if _, err := h.engine.AssignQuestion(ctx, r1.Checkpoint.ID, q1.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for i := 0; i < 5; i++ {
		picked, err := h.engine.PickQuestion(ctx, "t2", domain.DifficultyEasy)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if picked.ID != q2.ID {
			t.Fatalf("pending question must be withheld, got %s", picked.ID)
		}
	}

	r2, _ := h.engine.RollDice(ctx, "t2")
	if _, err := h.engine.AssignQuestion(ctx, r2.Checkpoint.ID, q2.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	picked, err := h.engine.PickQuestion(ctx, "t2", domain.DifficultyEasy)
	if err != nil {
		t.Fatalf("pick with empty candidates: %v", err)
	}
	if picked.Difficulty != domain.DifficultyEasy {
		t.Fatalf("widened pool must keep difficulty, got %s", picked.Difficulty)
	}

	if _, err := h.engine.PickQuestion(ctx, "t2", domain.DifficultyMedium); !errors.Is(err, domain.ErrNoAvailableQuestions) {
		t.Fatalf("expected no available questions, got %v", err)
	}
	q, err := h.engine.QuestionForPosition(ctx, "t2")
	if err != nil || q.Difficulty != domain.DifficultyEasy {
		t.Fatalf("position 3 should draw EASY, got %+v %v", q, err)
	}
}

func TestPickQuestionRecentPolicy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, script(1, 0), app.WithSelectionPolicy(app.PolicyRecent, time.Hour))
	h.addTeam(t, "t1", 1)
	q1 := h.addQuestion(t, "q1", domain.DifficultyEasy, 10)
	q2 := h.addQuestion(t, "q2", domain.DifficultyEasy, 10)

	res, _ := h.engine.RollDice(ctx, "t1")
	a, err := h.engine.AssignQuestion(ctx, res.Checkpoint.ID, q1.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.engine.GradeAnswer(ctx, a.ID, true); err != nil {
		t.Fatalf("grade: %v", err)
	}
	for i := 0; i < 5; i++ {
		picked, err := h.engine.PickQuestion(ctx, "t1", domain.DifficultyEasy)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if picked.ID != q2.ID {
			t.Fatalf("recently seen question must be withheld, got %s", picked.ID)
		}
	}
}

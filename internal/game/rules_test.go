package game

import (
	"errors"
	"testing"

	"snakes-hunt-service/internal/domain"
)

func TestNextPositionClampsOvershoot(t *testing.T) {
	for before := 95; before < BoardSize; before++ {
		for roll := DiceMin; roll <= DiceMax; roll++ {
			got := NextPosition(before, roll)
			if before+roll > BoardSize && got != before {
				t.Fatalf("position %d roll %d: expected to stay at %d, got %d", before, roll, before, got)
			}
			if before+roll <= BoardSize && got != before+roll {
				t.Fatalf("position %d roll %d: expected %d, got %d", before, roll, before+roll, got)
			}
		}
	}
	if got := NextPosition(98, 5); got != 98 {
		t.Fatalf("expected 98, got %d", got)
	}
}

func TestRollDieWithinRange(t *testing.T) {
	rnd := NewSeededRand(7)
	seen := make(map[int]bool)
	for i := 0; i < 600; i++ {
		v := RollDie(rnd)
		if v < DiceMin || v > DiceMax {
			t.Fatalf("roll out of range: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != DiceMax {
		t.Fatalf("expected every face to appear, saw %v", seen)
	}
}

func TestPickRoomNeverRepeats(t *testing.T) {
	rnd := NewSeededRand(42)
	for current := 1; current <= TotalRooms; current++ {
		for i := 0; i < 200; i++ {
			room := PickRoom(rnd, current)
			if room == current {
				t.Fatalf("room repeated: %d", room)
			}
			if !ValidRoom(room) {
				t.Fatalf("room outside set: %d", room)
			}
		}
	}
}

func TestSnakeAt(t *testing.T) {
	rules := []domain.BoardRule{
		{Type: domain.RuleSnake, StartPos: 47, EndPos: 26},
		{Type: domain.RuleLadder, StartPos: 12, EndPos: 40},
	}
	snake, ok := SnakeAt(rules, 47)
	if !ok || snake.EndPos != 26 {
		t.Fatalf("expected snake at 47 -> 26, got %+v ok=%v", snake, ok)
	}
	if _, ok := SnakeAt(rules, 12); ok {
		t.Fatalf("ladder must not count as snake")
	}
	if _, ok := SnakeAt(rules, 48); ok {
		t.Fatalf("no rule at 48")
	}
}

func TestDifficultyForPosition(t *testing.T) {
	cases := map[int]domain.Difficulty{
		1:   domain.DifficultyEasy,
		33:  domain.DifficultyEasy,
		34:  domain.DifficultyMedium,
		66:  domain.DifficultyMedium,
		67:  domain.DifficultyHard,
		100: domain.DifficultyHard,
	}
	for pos, want := range cases {
		if got := DifficultyForPosition(pos); got != want {
			t.Fatalf("position %d: expected %s, got %s", pos, want, got)
		}
	}
}

func TestValidateRule(t *testing.T) {
	if err := ValidateRule(domain.RuleSnake, 47, 26); err != nil {
		t.Fatalf("valid snake rejected: %v", err)
	}
	if err := ValidateRule(domain.RuleSnake, 20, 30); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error for upward snake, got %v", err)
	}
	if err := ValidateRule(domain.RuleLadder, 30, 20); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error for downward ladder, got %v", err)
	}
	if err := ValidateRule(domain.RuleSnake, 101, 3); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error for off-board rule, got %v", err)
	}
	if err := ValidateRule(domain.RuleSnake, 100, 40); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error for snake on the goal square, got %v", err)
	}
}

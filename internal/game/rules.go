// Package game holds the board rules of the hunt: dice, movement, rooms,
// snake lookup and difficulty bands. It performs no I/O.
package game

import (
	"math/rand"
	"sync"
	"time"

	"snakes-hunt-service/internal/domain"
)

const (
	BoardSize           = 100
	StartPosition       = 1
	DiceMin             = 1
	DiceMax             = 6
	TotalRooms          = 10
	SnakePenaltySeconds = 180
)

// Rooms is the fixed room set.
var Rooms = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

// Randomizer is the source of dice values and room draws.
type Randomizer interface {
	Intn(n int) int
}

// LockedRand is a Randomizer safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRand returns a Randomizer seeded from the clock.
func NewRand() *LockedRand {
	return NewSeededRand(time.Now().UnixNano())
}

// NewSeededRand returns a deterministic Randomizer.
func NewSeededRand(seed int64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// RollDie draws uniformly from [DiceMin, DiceMax].
func RollDie(rnd Randomizer) int {
	return rnd.Intn(DiceMax-DiceMin+1) + DiceMin
}

// NextPosition applies a roll. Overshooting the board forfeits the move.
func NextPosition(current, roll int) int {
	next := current + roll
	if next > BoardSize {
		return current
	}
	return next
}

// HasReachedGoal reports whether a position wins the game.
func HasReachedGoal(position int) bool {
	return position >= BoardSize
}

// ValidRoom reports whether room is in the fixed room set.
func ValidRoom(room int) bool {
	return room >= 1 && room <= TotalRooms
}

// PickRoom draws a room uniformly from Rooms excluding current.
func PickRoom(rnd Randomizer, current int) int {
	available := make([]int, 0, len(Rooms))
	for _, room := range Rooms {
		if room != current {
			available = append(available, room)
		}
	}
	return available[rnd.Intn(len(available))]
}

// PickAnyRoom draws a starting room.
func PickAnyRoom(rnd Randomizer) int {
	return Rooms[rnd.Intn(len(Rooms))]
}

// SnakeAt returns the snake whose head is at position, if any.
func SnakeAt(rules []domain.BoardRule, position int) (domain.BoardRule, bool) {
	for _, rule := range rules {
		if rule.Type == domain.RuleSnake && rule.StartPos == position {
			return rule, true
		}
	}
	return domain.BoardRule{}, false
}

// DifficultyForPosition maps board thirds to difficulty bands.
func DifficultyForPosition(position int) domain.Difficulty {
	switch {
	case position <= 33:
		return domain.DifficultyEasy
	case position <= 66:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

// ValidateRule checks rule geometry: snakes demote, ladders promote, and both
// stay on the board.
func ValidateRule(ruleType domain.RuleType, start, end int) error {
	if start < 1 || start > BoardSize || end < 1 || end > BoardSize {
		return domain.NewPrecondition("rule positions must be within the board")
	}
	switch ruleType {
	case domain.RuleSnake:
		if start <= end {
			return domain.NewPrecondition("snake start position must be greater than end position")
		}
		if start >= BoardSize {
			return domain.NewPrecondition("snake cannot start on the final square")
		}
	case domain.RuleLadder:
		if start >= end {
			return domain.NewPrecondition("ladder start position must be less than end position")
		}
	default:
		return domain.NewPrecondition("unknown rule type")
	}
	return nil
}

package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"snakes-hunt-service/internal/domain"
)

const (
	defaultDifficulty = domain.DifficultyMedium
	defaultCategory   = "GENERAL"
	defaultPoints     = 10
)

// QuestionInput is the writable shape of a question.
type QuestionInput struct {
	Content       string            `json:"content"`
	Options       []string          `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	Category      string            `json:"category"`
	Points        int               `json:"points"`
}

// QuestionPatch updates only the fields that are set.
type QuestionPatch struct {
	Content       *string            `json:"content"`
	Options       []string           `json:"options"`
	CorrectAnswer *string            `json:"correctAnswer"`
	Difficulty    *domain.Difficulty `json:"difficulty"`
	Category      *string            `json:"category"`
	Points        *int               `json:"points"`
	IsActive      *bool              `json:"isActive"`
}

// QuestionService manages the question bank.
type QuestionService struct {
	store Store
	now   func() time.Time
}

func NewQuestionService(store Store) *QuestionService {
	return &QuestionService{store: store, now: time.Now}
}

func (s *QuestionService) Create(ctx context.Context, in QuestionInput) (domain.Question, error) {
	q, err := s.build(in)
	if err != nil {
		return domain.Question{}, err
	}
	if err := s.store.CreateQuestion(ctx, &q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// BulkCreate inserts every question or none.
func (s *QuestionService) BulkCreate(ctx context.Context, inputs []QuestionInput) ([]domain.Question, error) {
	if len(inputs) == 0 {
		return nil, domain.NewPrecondition("no questions supplied")
	}
	questions := make([]domain.Question, 0, len(inputs))
	for _, in := range inputs {
		q, err := s.build(in)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		for i := range questions {
			if err := repo.CreateQuestion(ctx, &questions[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *QuestionService) build(in QuestionInput) (domain.Question, error) {
	if in.Difficulty == "" {
		in.Difficulty = defaultDifficulty
	}
	if in.Category == "" {
		in.Category = defaultCategory
	}
	if in.Points == 0 {
		in.Points = defaultPoints
	}
	now := s.now()
	q := domain.Question{
		ID:            uuid.NewString(),
		Content:       strings.TrimSpace(in.Content),
		Options:       in.Options,
		CorrectAnswer: strings.TrimSpace(in.CorrectAnswer),
		Difficulty:    in.Difficulty,
		Category:      in.Category,
		Points:        in.Points,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return q, validateQuestion(q)
}

func validateQuestion(q domain.Question) error {
	if q.Content == "" {
		return domain.NewPrecondition("question content is required")
	}
	if len(q.Options) < 2 {
		return domain.NewPrecondition("question needs at least two options")
	}
	if q.CorrectAnswer == "" {
		return domain.NewPrecondition("correct answer is required")
	}
	found := false
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == q.CorrectAnswer {
			found = true
			break
		}
	}
	if !found {
		return domain.NewPrecondition("correct answer must be one of the options")
	}
	if !q.Difficulty.Valid() {
		return domain.NewPrecondition("invalid difficulty")
	}
	if q.Points < 0 {
		return domain.NewPrecondition("points cannot be negative")
	}
	return nil
}

func (s *QuestionService) Update(ctx context.Context, questionID string, patch QuestionPatch) (domain.Question, error) {
	var q domain.Question
	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if q, err = repo.GetQuestion(ctx, questionID); err != nil {
			return err
		}
		if patch.Content != nil {
			q.Content = strings.TrimSpace(*patch.Content)
		}
		if patch.Options != nil {
			q.Options = patch.Options
		}
		if patch.CorrectAnswer != nil {
			q.CorrectAnswer = strings.TrimSpace(*patch.CorrectAnswer)
		}
		if patch.Difficulty != nil {
			q.Difficulty = *patch.Difficulty
		}
		if patch.Category != nil {
			q.Category = *patch.Category
		}
		if patch.Points != nil {
			q.Points = *patch.Points
		}
		if patch.IsActive != nil {
			q.IsActive = *patch.IsActive
		}
		if err := validateQuestion(q); err != nil {
			return err
		}
		q.UpdatedAt = s.now()
		return repo.UpdateQuestion(ctx, q)
	})
	if err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, questionID string) error {
	return s.store.DeleteQuestion(ctx, questionID)
}

// Toggle flips a question's active flag.
func (s *QuestionService) Toggle(ctx context.Context, questionID string) (domain.Question, error) {
	var q domain.Question
	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if q, err = repo.GetQuestion(ctx, questionID); err != nil {
			return err
		}
		q.IsActive = !q.IsActive
		q.UpdatedAt = s.now()
		return repo.UpdateQuestion(ctx, q)
	})
	if err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *QuestionService) Get(ctx context.Context, questionID string) (domain.Question, error) {
	return s.store.GetQuestion(ctx, questionID)
}

func (s *QuestionService) List(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	return s.store.ListQuestions(ctx, filter)
}

// Available lists active questions not currently PENDING for any team.
func (s *QuestionService) Available(ctx context.Context, difficulty domain.Difficulty) ([]domain.Question, error) {
	active := true
	pool, err := s.store.ListQuestions(ctx, domain.QuestionFilter{Difficulty: difficulty, IsActive: &active})
	if err != nil {
		return nil, err
	}
	pending, err := s.store.PendingQuestionIDs(ctx)
	if err != nil {
		return nil, err
	}
	return withoutIDs(pool, pending), nil
}

// Stats aggregates usage across the whole bank.
func (s *QuestionService) Stats(ctx context.Context) (domain.QuestionStats, error) {
	questions, err := s.store.ListQuestions(ctx, domain.QuestionFilter{})
	if err != nil {
		return domain.QuestionStats{}, err
	}
	stats := domain.QuestionStats{
		Total:        len(questions),
		ByDifficulty: make(map[domain.Difficulty]int),
		ByCategory:   make(map[string]int),
	}
	for _, q := range questions {
		stats.TotalUsed += q.TimesUsed
		stats.TotalCorrect += q.TimesCorrect
		stats.ByDifficulty[q.Difficulty]++
		stats.ByCategory[q.Category]++
	}
	if stats.Total > 0 {
		stats.AverageUsage = float64(stats.TotalUsed) / float64(stats.Total)
	}
	return stats, nil
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

// Store is an in-process implementation of app.Store. Transactions are
// serialised by a single mutex and roll back by restoring a snapshot.
type Store struct {
	*repo
}

var _ app.Store = (*Store)(nil)

type shared struct {
	mu sync.Mutex
	st *state
}

type state struct {
	teams       map[string]domain.Team
	members     map[string][]domain.TeamMember
	checkpoints map[string]domain.Checkpoint
	diceRolls   []domain.DiceRoll
	timeLogs    []domain.TimeLog
	questions   map[string]domain.Question
	assignments map[string]domain.QuestionAssignment
	maps        map[string]domain.BoardMap
	rules       map[string]domain.BoardRule
	accounts    map[string]domain.Account
}

func newState() *state {
	return &state{
		teams:       make(map[string]domain.Team),
		members:     make(map[string][]domain.TeamMember),
		checkpoints: make(map[string]domain.Checkpoint),
		questions:   make(map[string]domain.Question),
		assignments: make(map[string]domain.QuestionAssignment),
		maps:        make(map[string]domain.BoardMap),
		rules:       make(map[string]domain.BoardRule),
		accounts:    make(map[string]domain.Account),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.members {
		c.members[k] = append([]domain.TeamMember(nil), v...)
	}
	for k, v := range s.checkpoints {
		c.checkpoints[k] = v
	}
	c.diceRolls = append([]domain.DiceRoll(nil), s.diceRolls...)
	c.timeLogs = append([]domain.TimeLog(nil), s.timeLogs...)
	for k, v := range s.questions {
		c.questions[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.maps {
		c.maps[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	return c
}

// repo implements app.Repository. Outside a transaction each call takes the
// store mutex itself; inside one the mutex is already held.
type repo struct {
	s      *shared
	locked bool
}

func NewStore() *Store {
	return &Store{repo: &repo{s: &shared{st: newState()}}}
}

// InTx runs fn with exclusive access. Any error restores the state fn saw on
// entry.
func (st *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo app.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	snapshot := st.s.st.clone()
	if err := fn(ctx, &repo{s: st.s, locked: true}); err != nil {
		st.s.st = snapshot
		return err
	}
	return nil
}

func (r *repo) guard() func() {
	if r.locked {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

// Teams.

func (r *repo) CreateTeam(_ context.Context, team *domain.Team, members []domain.TeamMember) error {
	defer r.guard()()
	st := r.s.st
	for _, existing := range st.teams {
		if existing.Code == team.Code {
			return domain.ErrDuplicate
		}
	}
	st.teams[team.ID] = *team
	st.members[team.ID] = append([]domain.TeamMember(nil), members...)
	return nil
}

func (r *repo) GetTeam(_ context.Context, teamID string) (domain.Team, error) {
	defer r.guard()()
	team, ok := r.s.st.teams[teamID]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return team, nil
}

func (r *repo) LockTeam(ctx context.Context, teamID string) (domain.Team, error) {
	return r.GetTeam(ctx, teamID)
}

func (r *repo) ListTeams(_ context.Context) ([]domain.Team, error) {
	defer r.guard()()
	out := make([]domain.Team, 0, len(r.s.st.teams))
	for _, team := range r.s.st.teams {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (r *repo) ListMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	defer r.guard()()
	return append([]domain.TeamMember(nil), r.s.st.members[teamID]...), nil
}

func (r *repo) UpdateTeam(_ context.Context, team domain.Team) error {
	defer r.guard()()
	current, ok := r.s.st.teams[team.ID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	team.TotalTimeSec = current.TotalTimeSec
	team.Score = current.Score
	team.Code = current.Code
	team.CreatedAt = current.CreatedAt
	r.s.st.teams[team.ID] = team
	return nil
}

func (r *repo) AddTeamTime(_ context.Context, teamID string, delta int) (int, error) {
	defer r.guard()()
	team, ok := r.s.st.teams[teamID]
	if !ok {
		return 0, domain.ErrTeamNotFound
	}
	team.TotalTimeSec += delta
	r.s.st.teams[teamID] = team
	return team.TotalTimeSec, nil
}

func (r *repo) AddTeamScore(_ context.Context, teamID string, delta int) error {
	defer r.guard()()
	team, ok := r.s.st.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	team.Score += delta
	r.s.st.teams[teamID] = team
	return nil
}

func (r *repo) CountTeamsOnMap(_ context.Context, mapID string) (int, error) {
	defer r.guard()()
	n := 0
	for _, team := range r.s.st.teams {
		if team.MapID == mapID {
			n++
		}
	}
	return n, nil
}

// Checkpoints and dice rolls.

func (r *repo) CreateCheckpoint(_ context.Context, cp *domain.Checkpoint) error {
	defer r.guard()()
	st := r.s.st
	if _, ok := st.teams[cp.TeamID]; !ok {
		return domain.ErrTeamNotFound
	}
	for _, existing := range st.checkpoints {
		if existing.TeamID == cp.TeamID && existing.CheckpointNumber == cp.CheckpointNumber {
			return domain.ErrDuplicate
		}
	}
	st.checkpoints[cp.ID] = *cp
	return nil
}

func (r *repo) GetCheckpoint(_ context.Context, checkpointID string) (domain.Checkpoint, error) {
	defer r.guard()()
	cp, ok := r.s.st.checkpoints[checkpointID]
	if !ok {
		return domain.Checkpoint{}, domain.ErrCheckpointNotFound
	}
	return cp, nil
}

func (r *repo) LockCheckpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error) {
	return r.GetCheckpoint(ctx, checkpointID)
}

func (r *repo) UpdateCheckpoint(_ context.Context, cp domain.Checkpoint) error {
	defer r.guard()()
	if _, ok := r.s.st.checkpoints[cp.ID]; !ok {
		return domain.ErrCheckpointNotFound
	}
	r.s.st.checkpoints[cp.ID] = cp
	return nil
}

func (r *repo) DeleteCheckpoint(_ context.Context, checkpointID string) error {
	defer r.guard()()
	if _, ok := r.s.st.checkpoints[checkpointID]; !ok {
		return domain.ErrCheckpointNotFound
	}
	delete(r.s.st.checkpoints, checkpointID)
	return nil
}

func (r *repo) ListCheckpoints(_ context.Context, teamID string) ([]domain.Checkpoint, error) {
	defer r.guard()()
	var out []domain.Checkpoint
	for _, cp := range r.s.st.checkpoints {
		if cp.TeamID == teamID {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckpointNumber < out[j].CheckpointNumber })
	return out, nil
}

func (r *repo) ListPendingCheckpoints(_ context.Context) ([]domain.Checkpoint, error) {
	defer r.guard()()
	var out []domain.Checkpoint
	for _, cp := range r.s.st.checkpoints {
		if cp.Status == domain.CheckpointPending {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *repo) FindCheckpointByNumber(_ context.Context, teamID string, number int) (domain.Checkpoint, error) {
	defer r.guard()()
	for _, cp := range r.s.st.checkpoints {
		if cp.TeamID == teamID && cp.CheckpointNumber == number {
			return cp, nil
		}
	}
	return domain.Checkpoint{}, domain.ErrCheckpointNotFound
}

func (r *repo) PreviousCheckpoint(_ context.Context, teamID string, number int) (domain.Checkpoint, error) {
	defer r.guard()()
	var prev domain.Checkpoint
	found := false
	for _, cp := range r.s.st.checkpoints {
		if cp.TeamID != teamID || cp.CheckpointNumber >= number {
			continue
		}
		if !found || cp.CheckpointNumber > prev.CheckpointNumber {
			prev, found = cp, true
		}
	}
	if !found {
		return domain.Checkpoint{}, domain.ErrCheckpointNotFound
	}
	return prev, nil
}

func (r *repo) MaxCheckpointNumber(_ context.Context, teamID string) (int, error) {
	defer r.guard()()
	highest := 0
	for _, cp := range r.s.st.checkpoints {
		if cp.TeamID == teamID && cp.CheckpointNumber > highest {
			highest = cp.CheckpointNumber
		}
	}
	return highest, nil
}

func (r *repo) CountPendingCheckpoints(_ context.Context, teamID string) (int, error) {
	defer r.guard()()
	n := 0
	for _, cp := range r.s.st.checkpoints {
		if cp.TeamID == teamID && cp.Status == domain.CheckpointPending {
			n++
		}
	}
	return n, nil
}

func (r *repo) CreateDiceRoll(_ context.Context, roll *domain.DiceRoll) error {
	defer r.guard()()
	r.s.st.diceRolls = append(r.s.st.diceRolls, *roll)
	return nil
}

func (r *repo) ListDiceRolls(_ context.Context, teamID string) ([]domain.DiceRoll, error) {
	defer r.guard()()
	var out []domain.DiceRoll
	for _, roll := range r.s.st.diceRolls {
		if roll.TeamID == teamID {
			out = append(out, roll)
		}
	}
	return out, nil
}

// Timer ledger.

func (r *repo) CreateTimeLog(_ context.Context, entry *domain.TimeLog) error {
	defer r.guard()()
	r.s.st.timeLogs = append(r.s.st.timeLogs, *entry)
	return nil
}

func (r *repo) ListTimeLogs(_ context.Context, teamID string) ([]domain.TimeLog, error) {
	defer r.guard()()
	var out []domain.TimeLog
	for _, entry := range r.s.st.timeLogs {
		if entry.TeamID == teamID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Questions and assignments.

func (r *repo) CreateQuestion(_ context.Context, q *domain.Question) error {
	defer r.guard()()
	r.s.st.questions[q.ID] = *q
	return nil
}

func (r *repo) UpdateQuestion(_ context.Context, q domain.Question) error {
	defer r.guard()()
	current, ok := r.s.st.questions[q.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.TimesUsed = current.TimesUsed
	q.TimesCorrect = current.TimesCorrect
	r.s.st.questions[q.ID] = q
	return nil
}

func (r *repo) DeleteQuestion(_ context.Context, questionID string) error {
	defer r.guard()()
	if _, ok := r.s.st.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	for _, a := range r.s.st.assignments {
		if a.QuestionID == questionID {
			return domain.ErrQuestionInUse
		}
	}
	delete(r.s.st.questions, questionID)
	return nil
}

func (r *repo) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	defer r.guard()()
	q, ok := r.s.st.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (r *repo) ListQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	defer r.guard()()
	var out []domain.Question
	for _, q := range r.s.st.questions {
		if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.IsActive != nil && q.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *repo) IncrementQuestionUsage(_ context.Context, questionID string, correct bool) error {
	defer r.guard()()
	q, ok := r.s.st.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.TimesUsed++
	if correct {
		q.TimesCorrect++
	}
	r.s.st.questions[questionID] = q
	return nil
}

func (r *repo) CreateAssignment(_ context.Context, a *domain.QuestionAssignment) error {
	defer r.guard()()
	for _, existing := range r.s.st.assignments {
		if existing.CheckpointID == a.CheckpointID {
			return domain.ErrCheckpointHasAssignment
		}
		if existing.QuestionID == a.QuestionID && existing.Status == domain.AssignmentPending {
			return domain.ErrQuestionAlreadyAssigned
		}
	}
	r.s.st.assignments[a.ID] = *a
	return nil
}

func (r *repo) GetAssignment(_ context.Context, assignmentID string) (domain.QuestionAssignment, error) {
	defer r.guard()()
	a, ok := r.s.st.assignments[assignmentID]
	if !ok {
		return domain.QuestionAssignment{}, domain.ErrAssignmentNotFound
	}
	return a, nil
}

func (r *repo) LockAssignment(ctx context.Context, assignmentID string) (domain.QuestionAssignment, error) {
	return r.GetAssignment(ctx, assignmentID)
}

func (r *repo) AssignmentForCheckpoint(_ context.Context, checkpointID string) (domain.QuestionAssignment, error) {
	defer r.guard()()
	for _, a := range r.s.st.assignments {
		if a.CheckpointID == checkpointID {
			return a, nil
		}
	}
	return domain.QuestionAssignment{}, domain.ErrAssignmentNotFound
}

func (r *repo) UpdateAssignment(_ context.Context, a domain.QuestionAssignment) error {
	defer r.guard()()
	if _, ok := r.s.st.assignments[a.ID]; !ok {
		return domain.ErrAssignmentNotFound
	}
	r.s.st.assignments[a.ID] = a
	return nil
}

func (r *repo) DeleteAssignment(_ context.Context, assignmentID string) error {
	defer r.guard()()
	if _, ok := r.s.st.assignments[assignmentID]; !ok {
		return domain.ErrAssignmentNotFound
	}
	delete(r.s.st.assignments, assignmentID)
	return nil
}

func (r *repo) PendingQuestionIDs(_ context.Context) ([]string, error) {
	defer r.guard()()
	var ids []string
	for _, a := range r.s.st.assignments {
		if a.Status == domain.AssignmentPending {
			ids = append(ids, a.QuestionID)
		}
	}
	return ids, nil
}

func (r *repo) RecentQuestionIDs(_ context.Context, teamID string, since time.Time) ([]string, error) {
	defer r.guard()()
	var ids []string
	for _, a := range r.s.st.assignments {
		if a.TeamID == teamID && !a.CreatedAt.Before(since) {
			ids = append(ids, a.QuestionID)
		}
	}
	return ids, nil
}

// Board maps and rules.

func (r *repo) CreateMap(_ context.Context, m *domain.BoardMap) error {
	defer r.guard()()
	for _, existing := range r.s.st.maps {
		if existing.Name == m.Name {
			return domain.ErrDuplicate
		}
	}
	stored := *m
	stored.Rules = nil
	r.s.st.maps[m.ID] = stored
	return nil
}

func (r *repo) GetMap(_ context.Context, mapID string) (domain.BoardMap, error) {
	defer r.guard()()
	m, ok := r.s.st.maps[mapID]
	if !ok {
		return domain.BoardMap{}, domain.ErrMapNotFound
	}
	return m, nil
}

func (r *repo) ListMaps(_ context.Context) ([]domain.BoardMapSummary, error) {
	defer r.guard()()
	st := r.s.st
	out := make([]domain.BoardMapSummary, 0, len(st.maps))
	for _, m := range st.maps {
		summary := domain.BoardMapSummary{BoardMap: m}
		for _, rule := range st.rules {
			if rule.MapID == m.ID {
				summary.RuleCount++
			}
		}
		for _, team := range st.teams {
			if team.MapID == m.ID {
				summary.TeamCount++
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repo) DeleteMap(_ context.Context, mapID string) error {
	defer r.guard()()
	st := r.s.st
	if _, ok := st.maps[mapID]; !ok {
		return domain.ErrMapNotFound
	}
	for _, team := range st.teams {
		if team.MapID == mapID {
			return domain.ErrMapInUse
		}
	}
	for id, rule := range st.rules {
		if rule.MapID == mapID {
			delete(st.rules, id)
		}
	}
	delete(st.maps, mapID)
	return nil
}

func (r *repo) CreateRule(_ context.Context, rule *domain.BoardRule) error {
	defer r.guard()()
	st := r.s.st
	if _, ok := st.maps[rule.MapID]; !ok {
		return domain.ErrMapNotFound
	}
	for _, existing := range st.rules {
		if existing.MapID == rule.MapID && existing.StartPos == rule.StartPos {
			return domain.ErrDuplicate
		}
	}
	st.rules[rule.ID] = *rule
	return nil
}

func (r *repo) GetRule(_ context.Context, ruleID string) (domain.BoardRule, error) {
	defer r.guard()()
	rule, ok := r.s.st.rules[ruleID]
	if !ok {
		return domain.BoardRule{}, domain.ErrRuleNotFound
	}
	return rule, nil
}

func (r *repo) DeleteRule(_ context.Context, ruleID string) error {
	defer r.guard()()
	if _, ok := r.s.st.rules[ruleID]; !ok {
		return domain.ErrRuleNotFound
	}
	delete(r.s.st.rules, ruleID)
	return nil
}

func (r *repo) RulesByMap(_ context.Context, mapID string) ([]domain.BoardRule, error) {
	defer r.guard()()
	var out []domain.BoardRule
	for _, rule := range r.s.st.rules {
		if rule.MapID == mapID {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartPos < out[j].StartPos })
	return out, nil
}

// Accounts.

func (r *repo) CreateAccount(_ context.Context, a *domain.Account) error {
	defer r.guard()()
	for _, existing := range r.s.st.accounts {
		if existing.Username == a.Username {
			return domain.ErrDuplicate
		}
	}
	r.s.st.accounts[a.ID] = *a
	return nil
}

func (r *repo) GetAccountByUsername(_ context.Context, username string) (domain.Account, error) {
	defer r.guard()()
	for _, a := range r.s.st.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (r *repo) GetAccountByTeam(_ context.Context, teamID string) (domain.Account, error) {
	defer r.guard()()
	for _, a := range r.s.st.accounts {
		if a.TeamID == teamID && a.Role == domain.RoleParticipant {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (r *repo) ListAccounts(_ context.Context, role domain.Role) ([]domain.Account, error) {
	defer r.guard()()
	var out []domain.Account
	for _, a := range r.s.st.accounts {
		if role == "" || a.Role == role {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *repo) UpdateAccountPassword(_ context.Context, accountID, hash string) error {
	defer r.guard()()
	a, ok := r.s.st.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = hash
	r.s.st.accounts[accountID] = a
	return nil
}

func (r *repo) DeleteAccount(_ context.Context, accountID string) error {
	defer r.guard()()
	if _, ok := r.s.st.accounts[accountID]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.s.st.accounts, accountID)
	return nil
}

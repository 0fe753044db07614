package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/chess-tournament/brackets"
	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
	"github.com/Dosada05/chess-tournament/storage"
	"github.com/stretchr/testify/require"
)

// memStore backs every fake repository. Records are stored and returned by
// value so callers only change the store through Update.
type memStore struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]models.Tournament
	players     map[int]models.Player
	enrollments map[int]models.TournamentPlayer
	groups      map[int]models.Group
	matches     map[int]models.Match
	admins      map[int]models.Admin
}

func newMemStore() *memStore {
	return &memStore{
		tournaments: map[int]models.Tournament{},
		players:     map[int]models.Player{},
		enrollments: map[int]models.TournamentPlayer{},
		groups:      map[int]models.Group{},
		matches:     map[int]models.Match{},
		admins:      map[int]models.Admin{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func cloneMap[V any](m map[int]V) map[int]V {
	out := make(map[int]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memStore{
		nextID:      s.nextID,
		tournaments: cloneMap(s.tournaments),
		players:     cloneMap(s.players),
		enrollments: cloneMap(s.enrollments),
		groups:      cloneMap(s.groups),
		matches:     cloneMap(s.matches),
		admins:      cloneMap(s.admins),
	}
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.tournaments = snap.tournaments
	s.players = snap.players
	s.enrollments = snap.enrollments
	s.groups = snap.groups
	s.matches = snap.matches
	s.admins = snap.admins
}

// fakeTransactor restores the store snapshot when fn fails.
type fakeTransactor struct {
	store     *memStore
	commits   int
	rollbacks int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// --- tournaments ---

type fakeTournamentRepo struct{ s *memStore }

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	r.s.tournaments[t.ID] = *t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	stored := *t
	stored.Groups, stored.Players, stored.Matches = nil, nil, nil
	r.s.tournaments[t.ID] = stored
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.s.tournaments, id)
	return nil
}

// --- players ---

type fakePlayerRepo struct{ s *memStore }

func (r *fakePlayerRepo) Create(ctx context.Context, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.players {
		if existing.AccessCode == p.AccessCode {
			return repositories.ErrPlayerAccessCodeConflict
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	r.s.players[p.ID] = *p
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id int) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return &p, nil
}

func (r *fakePlayerRepo) GetByAccessCode(ctx context.Context, code string) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.players {
		if p.AccessCode == code {
			p := p
			return &p, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) List(ctx context.Context) ([]*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Player, 0, len(r.s.players))
	for _, p := range r.s.players {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) Update(ctx context.Context, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.players[p.ID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	r.s.players[p.ID] = *p
	return nil
}

func (r *fakePlayerRepo) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.players[id]; !ok {
		return repositories.ErrPlayerNotFound
	}
	for _, tp := range r.s.enrollments {
		if tp.PlayerID != id {
			continue
		}
		switch r.s.tournaments[tp.TournamentID].Status {
		case models.StatusGroupStage, models.StatusKnockoutStage:
			return repositories.ErrPlayerInActiveTournament
		}
	}
	delete(r.s.players, id)
	return nil
}

// --- enrollments ---

type fakeTournamentPlayerRepo struct{ s *memStore }

func (r *fakeTournamentPlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, tp *models.TournamentPlayer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.enrollments {
		if existing.TournamentID == tp.TournamentID && existing.PlayerID == tp.PlayerID {
			return repositories.ErrTournamentPlayerConflict
		}
	}
	tp.ID = r.s.id()
	stored := *tp
	stored.Player = nil
	r.s.enrollments[tp.ID] = stored
	return nil
}

func (r *fakeTournamentPlayerRepo) withPlayer(tp models.TournamentPlayer) *models.TournamentPlayer {
	if p, ok := r.s.players[tp.PlayerID]; ok {
		tp.Player = &p
	}
	return &tp
}

func (r *fakeTournamentPlayerRepo) Get(ctx context.Context, exec repositories.SQLExecutor, tournamentID, playerID int) (*models.TournamentPlayer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tp := range r.s.enrollments {
		if tp.TournamentID == tournamentID && tp.PlayerID == playerID {
			return r.withPlayer(tp), nil
		}
	}
	return nil, repositories.ErrTournamentPlayerNotFound
}

func (r *fakeTournamentPlayerRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, filter repositories.TournamentPlayerFilter) ([]*models.TournamentPlayer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.TournamentPlayer, 0)
	for _, tp := range r.s.enrollments {
		if tp.TournamentID != tournamentID {
			continue
		}
		if filter.GroupID != nil && (tp.GroupID == nil || *tp.GroupID != *filter.GroupID) {
			continue
		}
		if filter.Eliminated != nil && tp.Eliminated != *filter.Eliminated {
			continue
		}
		out = append(out, r.withPlayer(tp))
	}
	if filter.Ranked {
		brackets.SortStandings(out)
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	}
	return out, nil
}

func (r *fakeTournamentPlayerRepo) Update(ctx context.Context, exec repositories.SQLExecutor, tp *models.TournamentPlayer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.enrollments {
		if existing.TournamentID == tp.TournamentID && existing.PlayerID == tp.PlayerID {
			stored := *tp
			stored.ID = id
			stored.Player = nil
			r.s.enrollments[id] = stored
			return nil
		}
	}
	return repositories.ErrTournamentPlayerNotFound
}

func (r *fakeTournamentPlayerRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, tournamentID, playerID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.enrollments {
		if existing.TournamentID == tournamentID && existing.PlayerID == playerID {
			delete(r.s.enrollments, id)
			return nil
		}
	}
	return repositories.ErrTournamentPlayerNotFound
}

// --- groups ---

type fakeGroupRepo struct {
	s *memStore
	// failOnCreate makes the n-th Create call fail (1-based, 0 disables).
	failOnCreate int
	creates      int
}

var errInjected = errors.New("injected failure")

func (r *fakeGroupRepo) Create(ctx context.Context, exec repositories.SQLExecutor, g *models.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.creates++
	if r.failOnCreate > 0 && r.creates == r.failOnCreate {
		return errInjected
	}
	for _, existing := range r.s.groups {
		if existing.TournamentID == g.TournamentID && existing.Name == g.Name {
			return repositories.ErrGroupNameConflict
		}
	}
	g.ID = r.s.id()
	r.s.groups[g.ID] = *g
	return nil
}

func (r *fakeGroupRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Group, 0)
	for _, g := range r.s.groups {
		if g.TournamentID == tournamentID {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- matches ---

type fakeMatchRepo struct{ s *memStore }

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[m.TournamentID]; !ok {
		return repositories.ErrMatchTournamentInvalid
	}
	m.ID = r.s.id()
	m.CreatedAt = time.Now()
	r.s.matches[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func sortMatches(out []*models.Match) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		an, bn := a.KnockoutMatchNum, b.KnockoutMatchNum
		switch {
		case an != nil && bn != nil && *an != *bn:
			return *an < *bn
		case an != nil && bn == nil:
			return true
		case an == nil && bn != nil:
			return false
		}
		return a.ID < b.ID
	})
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		switch filter.Stage {
		case repositories.StageGroup:
			if m.GroupID == nil {
				continue
			}
		case repositories.StageKnockout:
			if !m.IsKnockout() {
				continue
			}
		}
		if filter.GroupID != nil && (m.GroupID == nil || *m.GroupID != *filter.GroupID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			found := false
			for _, st := range filter.Statuses {
				found = found || m.Status == st
			}
			if !found {
				continue
			}
		}
		if filter.KnockoutRound != nil && !m.IsRound(*filter.KnockoutRound) {
			continue
		}
		if filter.PlayerID != nil && !m.HasPlayer(*filter.PlayerID) {
			continue
		}
		m := m
		out = append(out, &m)
	}
	sortMatches(out)
	return out, nil
}

func (r *fakeMatchRepo) ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.HasPlayer(playerID) {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[m.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	r.s.matches[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) CountNonTerminal(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.matches {
		if m.TournamentID == tournamentID && !m.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

func (r *fakeMatchRepo) DeleteByPlayer(ctx context.Context, exec repositories.SQLExecutor, tournamentID, playerID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, m := range r.s.matches {
		if m.TournamentID == tournamentID && m.HasPlayer(playerID) {
			delete(r.s.matches, id)
			n++
		}
	}
	return n, nil
}

// --- admins ---

type fakeAdminRepo struct{ s *memStore }

func (r *fakeAdminRepo) Create(ctx context.Context, a *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.admins {
		if existing.Username == a.Username || existing.Email == a.Email {
			return repositories.ErrAdminConflict
		}
	}
	a.ID = r.s.id()
	r.s.admins[a.ID] = *a
	return nil
}

func (r *fakeAdminRepo) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if a.Username == username {
			a := a
			return &a, nil
		}
	}
	return nil, repositories.ErrAdminNotFound
}

func (r *fakeAdminRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.admins), nil
}

// --- storage ---

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    error
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.fail != nil {
		return nil, u.fail
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// --- fixture ---

type fixture struct {
	store          *memStore
	tx             *fakeTransactor
	tournamentRepo *fakeTournamentRepo
	playerRepo     *fakePlayerRepo
	enrollmentRepo *fakeTournamentPlayerRepo
	groupRepo      *fakeGroupRepo
	matchRepo      *fakeMatchRepo
	adminRepo      *fakeAdminRepo
	uploader       *fakeUploader
	logs           *bytes.Buffer

	progression  *progressionService
	tournaments  TournamentService
	matches      MatchService
	participants ParticipantService
	players      PlayerService
	auth         AuthService
}

var fixedNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := &fixture{
		store:          store,
		tx:             &fakeTransactor{store: store},
		tournamentRepo: &fakeTournamentRepo{s: store},
		playerRepo:     &fakePlayerRepo{s: store},
		enrollmentRepo: &fakeTournamentPlayerRepo{s: store},
		groupRepo:      &fakeGroupRepo{s: store},
		matchRepo:      &fakeMatchRepo{s: store},
		adminRepo:      &fakeAdminRepo{s: store},
		uploader:       &fakeUploader{},
		logs:           logs,
	}

	f.tournaments = NewTournamentService(f.tx, f.tournamentRepo, f.groupRepo, f.enrollmentRepo, f.matchRepo, logger)
	archiver := NewArchiveService(f.tournaments, f.uploader, logger)
	f.progression = NewProgressionService(f.tx, f.tournamentRepo, f.groupRepo, f.enrollmentRepo, f.matchRepo, archiver, logger).(*progressionService)
	f.progression.shuffle = nil
	f.progression.now = func() time.Time { return fixedNow }
	f.matches = NewMatchService(f.tx, f.tournamentRepo, f.matchRepo, f.progression, logger)
	f.participants = NewParticipantService(f.tx, f.tournamentRepo, f.playerRepo, f.enrollmentRepo, f.matchRepo, f.progression, logger)
	f.players = NewPlayerService(f.playerRepo, logger)
	f.auth = NewAuthService(f.adminRepo, f.playerRepo, logger)
	return f
}

var tournamentStart = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

// newTournament creates a Draft tournament with n enrolled players and returns
// the tournament id and the player ids in enrollment order.
func (f *fixture) newTournament(t *testing.T, groupCount, knockoutPlayers, n int) (int, []int) {
	t.Helper()
	ctx := context.Background()
	tournament, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:            "Spring Open",
		StartDate:       tournamentStart,
		EndDate:         tournamentStart.Add(72 * time.Hour),
		GroupCount:      groupCount,
		KnockoutPlayers: knockoutPlayers,
	})
	require.NoError(t, err)

	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		p, err := f.players.CreatePlayer(ctx, CreatePlayerInput{Name: fmt.Sprintf("Player %d", i+1)})
		require.NoError(t, err)
		_, err = f.participants.EnrollPlayer(ctx, tournament.ID, p.ID)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return tournament.ID, ids
}

func (f *fixture) tournament(t *testing.T, id int) *models.Tournament {
	t.Helper()
	tour, err := f.tournamentRepo.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return tour
}

func (f *fixture) enrollment(t *testing.T, tournamentID, playerID int) *models.TournamentPlayer {
	t.Helper()
	tp, err := f.enrollmentRepo.Get(context.Background(), nil, tournamentID, playerID)
	require.NoError(t, err)
	return tp
}

func (f *fixture) listMatches(t *testing.T, tournamentID int, filter repositories.ListMatchesFilter) []*models.Match {
	t.Helper()
	matches, err := f.matchRepo.ListByTournament(context.Background(), nil, tournamentID, filter)
	require.NoError(t, err)
	return matches
}

func (f *fixture) knockoutRound(t *testing.T, tournamentID int, label string) []*models.Match {
	t.Helper()
	return f.listMatches(t, tournamentID, repositories.ListMatchesFilter{Stage: repositories.StageKnockout, KnockoutRound: &label})
}

// setPoints overwrites standings so seeding is predictable; lower index ranks higher.
func (f *fixture) setPoints(t *testing.T, tournamentID int, ranked []int) {
	t.Helper()
	for i, id := range ranked {
		tp := f.enrollment(t, tournamentID, id)
		tp.Points = float64(len(ranked) - i)
		require.NoError(t, f.enrollmentRepo.Update(context.Background(), nil, tp))
	}
}

// toKnockout runs a tournament straight to a built bracket with the given
// qualifiers, seeded in the order given.
func (f *fixture) toKnockout(t *testing.T, groupCount int, qualifiers int, n int) (int, []int) {
	t.Helper()
	ctx := context.Background()
	id, players := f.newTournament(t, groupCount, qualifiers, n)
	require.NoError(t, f.progression.PartitionGroups(ctx, id))
	f.setPoints(t, id, players)
	require.NoError(t, f.progression.SelectQualifiers(ctx, id, players[:qualifiers]))
	require.NoError(t, f.progression.GenerateBracket(ctx, id))
	return id, players[:qualifiers]
}

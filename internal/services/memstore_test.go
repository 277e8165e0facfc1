package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/pairup/internal/models"
)

// memStore is an in-memory stand-in for the Postgres schema. It understands
// exactly the statements the services issue, enforces the same unique
// constraints, and implements pg_advisory_xact_lock with per-key mutexes held
// until the transaction ends. Row locks on matches (UPDATE, FOR SHARE) use the
// same mutexes; share and exclusive modes are not distinguished.
type memStore struct {
	mu    sync.Mutex
	clock time.Time

	users        map[uuid.UUID]*models.User
	interactions map[[2]uuid.UUID]*models.Interaction
	matches      map[uuid.UUID]*models.Match
	history      []models.LikeHistoryEntry
	invitations  map[uuid.UUID]*models.Invitation

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		clock:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:        map[uuid.UUID]*models.User{},
		interactions: map[[2]uuid.UUID]*models.Interaction{},
		matches:      map[uuid.UUID]*models.Match{},
		invitations:  map[uuid.UUID]*models.Invitation{},
		locks:        map[string]*sync.Mutex{},
	}
}

func (s *memStore) addUser(username string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = &models.User{ID: id, Username: username, CreatedAt: s.tick()}
	return id
}

func (s *memStore) likesCount(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].LikesCount
}

func (s *memStore) matchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

func (s *memStore) historyCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.history {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

// tick must be called with mu held.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *memStore) advisoryLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.lockMu.Unlock()
	m.Lock()
	return m
}

func (s *memStore) findMatchByPair(low, high uuid.UUID) *models.Match {
	for _, m := range s.matches {
		if m.UserLowID == low && m.UserHighID == high {
			return m
		}
	}
	return nil
}

func matchValues(m *models.Match) []any {
	return []any{m.ID, m.UserLowID, m.UserHighID, m.IsActive, m.CreatedAt}
}

func invitationValues(inv *models.Invitation) []any {
	return []any{inv.ID, inv.MatchID, inv.FromUserID, inv.ToUserID, inv.Message,
		inv.ProposedDate, inv.Status, inv.CreatedAt, inv.UpdatedAt}
}

type memDB struct {
	store *memStore
}

func (d *memDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return d.store.exec(nil, sql, args)
}

func (d *memDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return d.store.query(sql, args)
}

func (d *memDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return d.store.queryRow(nil, sql, args)
}

func (d *memDB) Begin(ctx context.Context) (Tx, error) {
	return &memTx{store: d.store}, nil
}

type memTx struct {
	store  *memStore
	locks  []*sync.Mutex
	held   map[string]bool
	undo   []func()
	closed bool
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t.store.exec(t, sql, args)
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t.store.query(sql, args)
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if t.closed {
		return errRow(pgx.ErrTxClosed)
	}
	return t.store.queryRow(t, sql, args)
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.end()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.end()
	return nil
}

func (t *memTx) end() {
	t.closed = true
	for _, m := range t.locks {
		m.Unlock()
	}
	t.locks = nil
	t.held = nil
	t.undo = nil
}

// onRollback must be called with the store mutex held.
func (t *memTx) onRollback(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

// lockUntilEnd takes key for the rest of tx. It must be called without mu.
func (s *memStore) lockUntilEnd(tx *memTx, key string) error {
	if tx == nil {
		return fmt.Errorf("memstore: lock %s outside a transaction", key)
	}
	if tx.held[key] {
		return nil
	}
	tx.locks = append(tx.locks, s.advisoryLock(key))
	if tx.held == nil {
		tx.held = map[string]bool{}
	}
	tx.held[key] = true
	return nil
}

func matchRowKey(id uuid.UUID) string {
	return "matches:" + id.String()
}

func (s *memStore) exec(tx *memTx, sql string, args []any) (CommandTag, error) {
	if strings.Contains(sql, "pg_advisory_xact_lock") {
		if err := s.lockUntilEnd(tx, args[0].(string)); err != nil {
			return nil, err
		}
		return fakeCommandTag{rowsAffected: 1}, nil
	}
	if strings.Contains(sql, "UPDATE matches") {
		if err := s.lockUntilEnd(tx, matchRowKey(args[0].(uuid.UUID))); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(sql, "UPDATE users SET likes_count"):
		user, ok := s.users[args[0].(uuid.UUID)]
		if !ok {
			return fakeCommandTag{}, nil
		}
		user.LikesCount++
		tx.onRollback(func() { user.LikesCount-- })
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.Contains(sql, "INSERT INTO like_history"):
		entry := models.LikeHistoryEntry{
			ID:        uuid.New(),
			UserID:    args[0].(uuid.UUID),
			LikedByID: args[1].(uuid.UUID),
			CreatedAt: s.tick(),
		}
		s.history = append(s.history, entry)
		tx.onRollback(func() {
			for i, e := range s.history {
				if e.ID == entry.ID {
					s.history = append(s.history[:i], s.history[i+1:]...)
					return
				}
			}
		})
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.Contains(sql, "UPDATE matches SET is_active = false"):
		m, ok := s.matches[args[0].(uuid.UUID)]
		if !ok {
			return fakeCommandTag{}, nil
		}
		prev := m.IsActive
		m.IsActive = false
		tx.onRollback(func() { m.IsActive = prev })
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.Contains(sql, "SET status = 'cancelled'"):
		matchID := args[0].(uuid.UUID)
		var n int64
		for _, inv := range s.invitations {
			if inv.MatchID != matchID || inv.Status != models.InvitationStatusPending {
				continue
			}
			inv.Status = models.InvitationStatusCancelled
			inv.UpdatedAt = s.tick()
			tx.onRollback(func() { inv.Status = models.InvitationStatusPending })
			n++
		}
		return fakeCommandTag{rowsAffected: n}, nil
	}

	return nil, fmt.Errorf("memstore: unsupported exec: %s", sql)
}

func (s *memStore) queryRow(tx *memTx, sql string, args []any) Row {
	if strings.Contains(sql, "FROM matches WHERE id") && strings.Contains(sql, "FOR SHARE") {
		if err := s.lockUntilEnd(tx, matchRowKey(args[0].(uuid.UUID))); err != nil {
			return errRow(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(sql, "INSERT INTO interactions"):
		from, to := args[0].(uuid.UUID), args[1].(uuid.UUID)
		key := [2]uuid.UUID{from, to}
		if _, exists := s.interactions[key]; exists {
			return errRow(pgx.ErrNoRows)
		}
		i := &models.Interaction{
			ID:         uuid.New(),
			FromUserID: from,
			ToUserID:   to,
			Kind:       args[2].(models.InteractionKind),
			CreatedAt:  s.tick(),
		}
		s.interactions[key] = i
		tx.onRollback(func() { delete(s.interactions, key) })
		return rowFromValues(i.ID, i.FromUserID, i.ToUserID, i.Kind, i.CreatedAt)

	case strings.Contains(sql, "FROM interactions"):
		i, ok := s.interactions[[2]uuid.UUID{args[0].(uuid.UUID), args[1].(uuid.UUID)}]
		return rowFromValues(ok && i.Kind == args[2].(models.InteractionKind))

	case strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM users"):
		_, ok := s.users[args[0].(uuid.UUID)]
		return rowFromValues(ok)

	case strings.Contains(sql, "SELECT likes_count FROM users"):
		user, ok := s.users[args[0].(uuid.UUID)]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(user.LikesCount)

	case strings.Contains(sql, "INSERT INTO matches"):
		low, high := args[0].(uuid.UUID), args[1].(uuid.UUID)
		if bytes.Compare(low[:], high[:]) >= 0 {
			return errRow(errors.New("memstore: violates check constraint matches_ordered_pair"))
		}
		if s.findMatchByPair(low, high) != nil {
			return errRow(pgx.ErrNoRows)
		}
		m := &models.Match{ID: uuid.New(), UserLowID: low, UserHighID: high, IsActive: true, CreatedAt: s.tick()}
		s.matches[m.ID] = m
		tx.onRollback(func() { delete(s.matches, m.ID) })
		return rowFromValues(matchValues(m)...)

	case strings.Contains(sql, "FROM matches WHERE user_low_id"):
		m := s.findMatchByPair(args[0].(uuid.UUID), args[1].(uuid.UUID))
		if m == nil {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(matchValues(m)...)

	case strings.Contains(sql, "INSERT INTO date_invitations"):
		m, ok := s.matches[args[0].(uuid.UUID)]
		if !ok || !m.IsActive {
			return errRow(pgx.ErrNoRows)
		}
		now := s.tick()
		inv := &models.Invitation{
			ID:           uuid.New(),
			MatchID:      m.ID,
			FromUserID:   args[1].(uuid.UUID),
			ToUserID:     args[2].(uuid.UUID),
			Message:      args[3].(string),
			ProposedDate: args[4].(*time.Time),
			Status:       models.InvitationStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.invitations[inv.ID] = inv
		tx.onRollback(func() { delete(s.invitations, inv.ID) })
		return rowFromValues(invitationValues(inv)...)

	case strings.Contains(sql, "UPDATE date_invitations"):
		inv, ok := s.invitations[args[1].(uuid.UUID)]
		if !ok || inv.Status != models.InvitationStatusPending {
			return errRow(pgx.ErrNoRows)
		}
		inv.Status = args[0].(models.InvitationStatus)
		inv.UpdatedAt = s.tick()
		tx.onRollback(func() { inv.Status = models.InvitationStatusPending })
		return rowFromValues(inv.UpdatedAt)

	case strings.Contains(sql, "FROM date_invitations WHERE id"):
		inv, ok := s.invitations[args[0].(uuid.UUID)]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(invitationValues(inv)...)

	case strings.Contains(sql, "FROM matches WHERE id"):
		m, ok := s.matches[args[0].(uuid.UUID)]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(matchValues(m)...)
	}

	return errRow(fmt.Errorf("memstore: unsupported query row: %s", sql))
}

func (s *memStore) query(sql string, args []any) (Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := args[0].(uuid.UUID)
	var rows [][]any

	switch {
	case strings.Contains(sql, "FROM matches"):
		var found []*models.Match
		for _, m := range s.matches {
			if m.IsActive && m.HasUser(userID) {
				found = append(found, m)
			}
		}
		sort.Slice(found, func(i, j int) bool { return newerFirst(found[i].CreatedAt, found[i].ID, found[j].CreatedAt, found[j].ID) })
		if len(args) == 4 {
			afterAt, afterID := args[2].(time.Time), args[3].(uuid.UUID)
			var rest []*models.Match
			for _, m := range found {
				if newerFirst(afterAt, afterID, m.CreatedAt, m.ID) {
					rest = append(rest, m)
				}
			}
			found = rest
		}
		if limit := args[1].(int); len(found) > limit {
			found = found[:limit]
		}
		for _, m := range found {
			rows = append(rows, matchValues(m))
		}

	case strings.Contains(sql, "FROM like_history"):
		for i := len(s.history) - 1; i >= 0; i-- {
			e := s.history[i]
			if e.UserID == userID {
				rows = append(rows, []any{e.ID, e.UserID, e.LikedByID, e.CreatedAt})
			}
		}
		if limit := args[1].(int); len(rows) > limit {
			rows = rows[:limit]
		}

	case strings.Contains(sql, "FROM interactions"):
		var found []*models.Interaction
		for _, i := range s.interactions {
			if i.FromUserID == userID {
				found = append(found, i)
			}
		}
		sort.Slice(found, func(a, b int) bool { return newerFirst(found[a].CreatedAt, found[a].ID, found[b].CreatedAt, found[b].ID) })
		for _, i := range found {
			rows = append(rows, []any{i.ID, i.FromUserID, i.ToUserID, i.Kind, i.CreatedAt})
		}

	case strings.Contains(sql, "FROM date_invitations"):
		var found []*models.Invitation
		for _, inv := range s.invitations {
			if inv.FromUserID == userID || inv.ToUserID == userID {
				found = append(found, inv)
			}
		}
		sort.Slice(found, func(a, b int) bool { return newerFirst(found[a].CreatedAt, found[a].ID, found[b].CreatedAt, found[b].ID) })
		for _, inv := range found {
			rows = append(rows, invitationValues(inv))
		}

	default:
		return nil, fmt.Errorf("memstore: unsupported query: %s", sql)
	}

	return &fakeRows{rows: rows}, nil
}

// newerFirst orders by (created_at, id) descending, the way the listing
// queries do.
func newerFirst(aAt time.Time, aID uuid.UUID, bAt time.Time, bID uuid.UUID) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return bytes.Compare(aID[:], bID[:]) > 0
}

type memServices struct {
	store        *memStore
	interactions *InteractionService
	matches      *MatchService
	invitations  *InvitationService
	likes        *LikeCounter
}

func newMemServices() *memServices {
	store := newMemStore()
	db := &memDB{store: store}
	ledger := NewLedger()
	likes := NewLikeCounter(db)
	matches := NewMatchService(db, ledger, likes)
	return &memServices{
		store:        store,
		interactions: NewInteractionService(db, NewUserService(db), ledger, matches),
		matches:      matches,
		invitations:  NewInvitationService(db, matches),
		likes:        likes,
	}
}

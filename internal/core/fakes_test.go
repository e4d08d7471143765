package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spizarnia-backend-go/internal/db"
	"spizarnia-backend-go/internal/models"
)

// fakeStore is an in-memory stand-in for Firestore. The per-repository views
// below share it behind one mutex, so ConsumeAndGrant is atomic the way the
// real transaction is.
type fakeStore struct {
	mu          sync.Mutex
	codes       map[string]*models.ShareCode
	pantries    map[string]*models.Pantry
	memberships map[string]*models.Membership
	index       map[string]*models.UserPantry
	auditLogs   []models.AuditLog
	nextID      int

	// activeByCodeHook, when set, replaces the GetActiveByCode lookup.
	// Used to force generator collisions.
	activeByCodeHook func(code string) (*models.ShareCode, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		codes:       make(map[string]*models.ShareCode),
		pantries:    make(map[string]*models.Pantry),
		memberships: make(map[string]*models.Membership),
		index:       make(map[string]*models.UserPantry),
	}
}

func (f *fakeStore) shareCodes() db.ShareCodeRepository      { return &fakeShareCodeRepo{f} }
func (f *fakeStore) pantryRepo() db.PantryRepository         { return &fakePantryRepo{f} }
func (f *fakeStore) membershipRepo() db.MembershipRepository { return &fakeMembershipRepo{f} }
func (f *fakeStore) auditRepo() db.AuditRepository           { return &fakeAuditRepo{f} }

func (f *fakeStore) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// --- ShareCodeRepository view ---

type fakeShareCodeRepo struct{ s *fakeStore }

func (r *fakeShareCodeRepo) Create(_ context.Context, code *models.ShareCode) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := r.s.newID("code")
	stored := *code
	stored.ID = id
	r.s.codes[id] = &stored
	return id, nil
}

func (r *fakeShareCodeRepo) GetByID(_ context.Context, codeID string) (*models.ShareCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.codes[codeID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

func (r *fakeShareCodeRepo) GetActiveByCode(_ context.Context, code string) (*models.ShareCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.activeByCodeHook != nil {
		return r.s.activeByCodeHook(code)
	}
	for _, sc := range r.s.codes {
		if sc.Code == code && sc.IsActive {
			cp := *sc
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeShareCodeRepo) GetActiveByPantryID(_ context.Context, pantryID string) ([]*models.ShareCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ShareCode
	for _, sc := range r.s.codes {
		if sc.PantryID == pantryID && sc.IsActive {
			cp := *sc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeShareCodeRepo) Deactivate(_ context.Context, codeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.codes[codeID]
	if !ok {
		return db.ErrNotFound
	}
	sc.IsActive = false
	return nil
}

func (r *fakeShareCodeRepo) DeactivateAll(_ context.Context, codeIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range codeIDs {
		sc, ok := r.s.codes[id]
		if !ok {
			return db.ErrNotFound
		}
		sc.IsActive = false
	}
	return nil
}

func (r *fakeShareCodeRepo) ConsumeAndGrant(_ context.Context, codeID, userID string, membership *models.Membership, index *models.UserPantry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sc, ok := r.s.codes[codeID]
	if !ok {
		return db.ErrNotFound
	}
	if sc.UsedBy != "" {
		return db.ErrAlreadyConsumed
	}
	if !sc.IsActive {
		return db.ErrNoLongerActive
	}
	memID := models.MembershipDocID(membership.PantryID, membership.UserID)
	if _, exists := r.s.memberships[memID]; exists {
		return db.ErrAlreadyMember
	}

	now := time.Now().UTC()
	sc.UsedBy = userID
	sc.UsedAt = &now
	sc.IsActive = false

	mem := *membership
	mem.ID = memID
	r.s.memberships[memID] = &mem

	idx := *index
	idx.ID = models.UserPantryDocID(index.UserID, index.PantryID)
	r.s.index[idx.ID] = &idx
	return nil
}

// --- PantryRepository view ---

type fakePantryRepo struct{ s *fakeStore }

func (r *fakePantryRepo) CreateWithOwner(_ context.Context, pantry *models.Pantry, owner *models.Membership, index *models.UserPantry) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id := r.s.newID("pantry")
	p := *pantry
	p.ID = id
	r.s.pantries[id] = &p

	mem := *owner
	mem.PantryID = id
	mem.ID = models.MembershipDocID(id, mem.UserID)
	r.s.memberships[mem.ID] = &mem

	idx := *index
	idx.PantryID = id
	idx.ID = models.UserPantryDocID(idx.UserID, id)
	r.s.index[idx.ID] = &idx
	return id, nil
}

func (r *fakePantryRepo) GetByID(_ context.Context, pantryID string) (*models.Pantry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pantries[pantryID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePantryRepo) ListIndexForUser(_ context.Context, userID string) ([]*models.UserPantry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.UserPantry
	for _, e := range r.s.index {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- MembershipRepository view ---

type fakeMembershipRepo struct{ s *fakeStore }

func (r *fakeMembershipRepo) Get(_ context.Context, pantryID, userID string) (*models.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	mem, ok := r.s.memberships[models.MembershipDocID(pantryID, userID)]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

// --- AuditRepository view ---

type fakeAuditRepo struct{ s *fakeStore }

func (r *fakeAuditRepo) Create(_ context.Context, logEntry models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.auditLogs = append(r.s.auditLogs, logEntry)
	return nil
}

// --- test-side helpers ---

func (f *fakeStore) setCodeExpiry(codeID string, expiresAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[codeID].ExpiresAt = expiresAt
}

func (f *fakeStore) storedCode(codeID string) models.ShareCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.codes[codeID]
}

func (f *fakeStore) membershipCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.memberships)
}

func (f *fakeStore) auditActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.auditLogs))
	for _, e := range f.auditLogs {
		out = append(out, e.Action)
	}
	return out
}

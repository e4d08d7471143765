package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"spizarnia-backend-go/internal/db"
	"spizarnia-backend-go/internal/models"
	"spizarnia-backend-go/pkg/cache"
	"spizarnia-backend-go/pkg/messagequeue"
)

// Custom errors for the ShareCodeService
var (
	ErrPermissionDenied        = errors.New("user does not have permission for this action on the pantry")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique share code after maximum attempts")
	ErrShareCodeNotFound       = errors.New("share code not found")
	ErrNoActiveCode            = errors.New("no active share code for this pantry")
	ErrPantryNotFound          = errors.New("pantry not found")
)

// User-facing redemption failure messages, rendered verbatim by the client.
// "Not found" and "expired before we ever saw it" are deliberately the same
// message so the API does not leak which codes once existed.
const (
	MsgCodeNotFound  = "Kod nie istnieje lub wygasł"
	MsgCodeExpired   = "Kod wygasł"
	MsgCodeUsed      = "Kod został już użyty"
	MsgAlreadyMember = "Jesteś już członkiem tej spiżarni"
)

const (
	// DefaultExpiryHours is the code lifetime applied when the caller does
	// not specify one.
	DefaultExpiryHours = 24
	// maxGenerationAttempts bounds the collision-retry loop. With 9000
	// possible values exhaustion means nearly the whole space is active.
	maxGenerationAttempts = 10

	pantryNameCacheTTL     = 10 * time.Minute
	shareEventsQueue       = "share-events"
	eventShareCodeCreated  = "share.code.created"
	eventShareCodeRedeemed = "share.code.redeemed"
)

// shareCodeService implements the ShareCodeService interface.
type shareCodeService struct {
	codeRepo           db.ShareCodeRepository
	pantryRepo         db.PantryRepository
	membershipService  MembershipService
	auditService       AuditService
	cache              cache.Cache               // optional; nil disables pantry-name caching
	mq                 messagequeue.MessageQueue // optional; nil disables event publishing
	defaultExpiryHours int
}

// NewShareCodeService creates a new ShareCodeService instance. The cache and
// message queue are optional and may be nil. defaultExpiryHours is applied
// when a caller does not request an explicit lifetime; non-positive values
// fall back to DefaultExpiryHours.
func NewShareCodeService(
	cr db.ShareCodeRepository,
	pr db.PantryRepository,
	ms MembershipService,
	as AuditService,
	c cache.Cache,
	mq messagequeue.MessageQueue,
	defaultExpiryHours int,
) ShareCodeService {
	if defaultExpiryHours <= 0 {
		defaultExpiryHours = DefaultExpiryHours
	}
	return &shareCodeService{
		codeRepo:           cr,
		pantryRepo:         pr,
		membershipService:  ms,
		auditService:       as,
		cache:              c,
		mq:                 mq,
		defaultExpiryHours: defaultExpiryHours,
	}
}

// randomCode draws a uniform 4-digit code. The generator never produces a
// leading zero: values range over [1000, 9999], a 9000-value space.
func randomCode() string {
	return strconv.Itoa(1000 + rand.Intn(9000))
}

// CreateShareCode deactivates every active code for the pantry, then inserts
// a fresh one. Uniqueness is only required among currently-active codes, so
// the generator re-rolls against that set with a bounded retry.
//
// The deactivate+insert pair is two sequential store operations, not one
// transaction: two owners racing CreateShareCode for the same pantry end up
// last-write-wins on which code survives as "the" active one.
func (s *shareCodeService) CreateShareCode(ctx context.Context, pantryID, ownerID string, expiryHours int) (*models.ShareCode, error) {
	if s.codeRepo == nil || s.membershipService == nil || s.auditService == nil {
		return nil, errors.New("shareCodeService: component not initialized")
	}
	if expiryHours <= 0 {
		expiryHours = s.defaultExpiryHours
	}

	allowed, err := s.membershipService.HasPermission(ctx, pantryID, ownerID, ActionInvite)
	if err != nil {
		return nil, fmt.Errorf("failed to check invite permission for user '%s' on pantry '%s': %w", ownerID, pantryID, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: user '%s' cannot invite to pantry '%s'", ErrPermissionDenied, ownerID, pantryID)
	}

	// Supersede any outstanding codes. Holders of a superseded code can no
	// longer redeem it even before it expires.
	active, err := s.codeRepo.GetActiveByPantryID(ctx, pantryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active share codes for pantry '%s': %w", pantryID, err)
	}
	if len(active) > 0 {
		ids := make([]string, 0, len(active))
		for _, sc := range active {
			ids = append(ids, sc.ID)
		}
		if err := s.codeRepo.DeactivateAll(ctx, ids); err != nil {
			return nil, fmt.Errorf("failed to supersede active share codes for pantry '%s': %w", pantryID, err)
		}
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	// Local timestamps are a best-effort stand-in; the insert does not
	// return the server-resolved createdAt synchronously.
	now := time.Now().UTC()
	newCode := &models.ShareCode{
		Code:      code,
		PantryID:  pantryID,
		CreatedBy: ownerID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(expiryHours) * time.Hour),
		IsActive:  true,
	}
	codeID, err := s.codeRepo.Create(ctx, newCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create share code in repository: %w", err)
	}
	newCode.ID = codeID

	auditLogEntry := models.AuditLog{
		UserID:     ownerID,
		Action:     "SHARE_CODE_CREATE",
		TargetType: "SHARE_CODE",
		TargetID:   codeID,
		Timestamp:  now,
		Details: map[string]interface{}{
			"pantryId":    pantryID,
			"expiryHours": expiryHours,
		},
	}
	if auditErr := s.auditService.CreateAuditLog(ctx, auditLogEntry); auditErr != nil {
		fmt.Printf("Warning: failed to create audit log for SHARE_CODE_CREATE (codeID: %s): %v\n", codeID, auditErr)
	}
	s.publishEvent(eventShareCodeCreated, map[string]interface{}{
		"codeId":   codeID,
		"pantryId": pantryID,
		"issuedBy": ownerID,
	})

	return newCode, nil
}

// generateUniqueCode rolls candidate codes until one is free of collisions
// with any currently-active code, store-wide.
func (s *shareCodeService) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		candidate := randomCode()
		_, err := s.codeRepo.GetActiveByCode(ctx, candidate)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return candidate, nil // No active holder, candidate is free.
			}
			return "", fmt.Errorf("failed to check share code candidate for collisions: %w", err)
		}
		// Collision with an active code; re-roll.
	}
	return "", ErrCodeGenerationExhausted
}

// RedeemShareCode validates a submitted code and, on success, grants the
// redeemer a member role on the code's pantry. The validation pipeline
// short-circuits on the first failure and reports it inside the result; only
// store faults surface as errors.
func (s *shareCodeService) RedeemShareCode(ctx context.Context, code, userID string) (*models.RedeemResult, error) {
	if s.codeRepo == nil || s.membershipService == nil || s.auditService == nil {
		return nil, errors.New("shareCodeService: component not initialized")
	}

	sc, err := s.codeRepo.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &models.RedeemResult{Success: false, Error: MsgCodeNotFound}, nil
		}
		return nil, fmt.Errorf("failed to look up share code: %w", err)
	}

	// Lazy expiry runs at lookup time, before any other check. The
	// correction write is best-effort and never changes the outcome.
	if sc.IsExpired(time.Now().UTC()) {
		if derr := s.codeRepo.Deactivate(ctx, sc.ID); derr != nil {
			fmt.Printf("Warning: failed to lazily deactivate expired share code (codeID: %s): %v\n", sc.ID, derr)
		}
		return &models.RedeemResult{Success: false, Error: MsgCodeExpired}, nil
	}

	if sc.UsedBy != "" {
		return &models.RedeemResult{Success: false, Error: MsgCodeUsed}, nil
	}

	isMember, err := s.membershipService.IsMember(ctx, sc.PantryID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership for user '%s' on pantry '%s': %w", userID, sc.PantryID, err)
	}
	if isMember {
		return &models.RedeemResult{Success: false, Error: MsgAlreadyMember}, nil
	}

	now := time.Now().UTC()
	membership := &models.Membership{
		PantryID:    sc.PantryID,
		UserID:      userID,
		Role:        models.RoleMember,
		Permissions: models.MemberPermissions(),
		InvitedBy:   sc.CreatedBy,
		JoinedAt:    now,
	}
	index := &models.UserPantry{
		UserID:   userID,
		PantryID: sc.PantryID,
		Role:     models.RoleMember,
		AddedAt:  now,
	}

	// Membership grant, reverse index, and consumption commit together;
	// a concurrent redeemer loses inside the transaction, not after it.
	if err := s.codeRepo.ConsumeAndGrant(ctx, sc.ID, userID, membership, index); err != nil {
		switch {
		case errors.Is(err, db.ErrAlreadyConsumed):
			return &models.RedeemResult{Success: false, Error: MsgCodeUsed}, nil
		case errors.Is(err, db.ErrAlreadyMember):
			return &models.RedeemResult{Success: false, Error: MsgAlreadyMember}, nil
		case errors.Is(err, db.ErrNoLongerActive), errors.Is(err, db.ErrNotFound):
			return &models.RedeemResult{Success: false, Error: MsgCodeNotFound}, nil
		default:
			return nil, fmt.Errorf("failed to redeem share code '%s': %w", sc.ID, err)
		}
	}

	pantryName := s.pantryName(ctx, sc.PantryID)

	auditLogEntry := models.AuditLog{
		UserID:     userID,
		Action:     "SHARE_CODE_REDEEM",
		TargetType: "SHARE_CODE",
		TargetID:   sc.ID,
		Timestamp:  now,
		Details: map[string]interface{}{
			"pantryId":  sc.PantryID,
			"invitedBy": sc.CreatedBy,
		},
	}
	if auditErr := s.auditService.CreateAuditLog(ctx, auditLogEntry); auditErr != nil {
		fmt.Printf("Warning: failed to create audit log for SHARE_CODE_REDEEM (codeID: %s): %v\n", sc.ID, auditErr)
	}
	s.publishEvent(eventShareCodeRedeemed, map[string]interface{}{
		"codeId":   sc.ID,
		"pantryId": sc.PantryID,
		"usedBy":   userID,
	})

	return &models.RedeemResult{
		Success:    true,
		PantryID:   sc.PantryID,
		PantryName: pantryName,
	}, nil
}

// GetActiveCodeForPantry returns the pantry's active code for the owner's
// display UI. The requester must hold invite permission: possession of the
// code is enough to join, so it is never shown to plain members or outsiders.
// Expired-but-still-flagged codes are corrected (best-effort) and reported
// as absent.
func (s *shareCodeService) GetActiveCodeForPantry(ctx context.Context, pantryID, requesterID string) (*models.ShareCode, error) {
	if s.codeRepo == nil || s.membershipService == nil {
		return nil, errors.New("shareCodeService: component not initialized")
	}

	allowed, err := s.membershipService.HasPermission(ctx, pantryID, requesterID, ActionInvite)
	if err != nil {
		return nil, fmt.Errorf("failed to check invite permission for user '%s' on pantry '%s': %w", requesterID, pantryID, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: user '%s' cannot view share codes for pantry '%s'", ErrPermissionDenied, requesterID, pantryID)
	}

	active, err := s.codeRepo.GetActiveByPantryID(ctx, pantryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active share codes for pantry '%s': %w", pantryID, err)
	}

	now := time.Now().UTC()
	for _, sc := range active {
		if sc.IsExpired(now) {
			if derr := s.codeRepo.Deactivate(ctx, sc.ID); derr != nil {
				fmt.Printf("Warning: failed to lazily deactivate expired share code (codeID: %s): %v\n", sc.ID, derr)
			}
			continue
		}
		return sc, nil
	}
	return nil, fmt.Errorf("%w: pantry '%s'", ErrNoActiveCode, pantryID)
}

// DeactivateCode revokes a code. The requester must be the code's issuer or
// hold invite permission on its pantry. Already-inactive codes are a no-op.
func (s *shareCodeService) DeactivateCode(ctx context.Context, codeID, requesterID string) error {
	if s.codeRepo == nil || s.membershipService == nil || s.auditService == nil {
		return errors.New("shareCodeService: component not initialized")
	}

	sc, err := s.codeRepo.GetByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: ID '%s'", ErrShareCodeNotFound, codeID)
		}
		return fmt.Errorf("failed to get share code '%s' for deactivation: %w", codeID, err)
	}

	if sc.CreatedBy != requesterID {
		allowed, err := s.membershipService.HasPermission(ctx, sc.PantryID, requesterID, ActionInvite)
		if err != nil {
			return fmt.Errorf("failed to check invite permission for user '%s' on pantry '%s': %w", requesterID, sc.PantryID, err)
		}
		if !allowed {
			return fmt.Errorf("%w: user '%s' cannot revoke codes for pantry '%s'", ErrPermissionDenied, requesterID, sc.PantryID)
		}
	}

	if !sc.IsActive {
		return nil // Idempotent: nothing left to revoke.
	}

	if err := s.codeRepo.Deactivate(ctx, codeID); err != nil {
		return fmt.Errorf("failed to deactivate share code '%s': %w", codeID, err)
	}

	auditLogEntry := models.AuditLog{
		UserID:     requesterID,
		Action:     "SHARE_CODE_DEACTIVATE",
		TargetType: "SHARE_CODE",
		TargetID:   codeID,
		Timestamp:  time.Now().UTC(),
		Details: map[string]interface{}{
			"pantryId": sc.PantryID,
		},
	}
	if auditErr := s.auditService.CreateAuditLog(ctx, auditLogEntry); auditErr != nil {
		fmt.Printf("Warning: failed to create audit log for SHARE_CODE_DEACTIVATE (codeID: %s): %v\n", codeID, auditErr)
	}

	return nil
}

// pantryName resolves the pantry's display name through the optional
// read-through cache. Resolution failures degrade to an empty name rather
// than failing a redemption that already committed.
func (s *shareCodeService) pantryName(ctx context.Context, pantryID string) string {
	cacheKey := "pantry-name:" + pantryID
	if s.cache != nil {
		if name, err := s.cache.Get(cacheKey); err == nil && name != "" {
			return name
		}
	}

	if s.pantryRepo == nil {
		return ""
	}
	pantry, err := s.pantryRepo.GetByID(ctx, pantryID)
	if err != nil {
		fmt.Printf("Warning: failed to resolve pantry name (pantryID: %s): %v\n", pantryID, err)
		return ""
	}

	if s.cache != nil {
		if err := s.cache.Set(cacheKey, pantry.Name, pantryNameCacheTTL); err != nil {
			fmt.Printf("Warning: failed to cache pantry name (pantryID: %s): %v\n", pantryID, err)
		}
	}
	return pantry.Name
}

// publishEvent emits a share event to the message queue, best-effort.
func (s *shareCodeService) publishEvent(eventType string, payload map[string]interface{}) {
	if s.mq == nil {
		return
	}
	payload["event"] = eventType
	payload["at"] = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Warning: failed to marshal %s event: %v\n", eventType, err)
		return
	}
	if err := s.mq.Publish(shareEventsQueue, body); err != nil {
		fmt.Printf("Warning: failed to publish %s event: %v\n", eventType, err)
	}
}

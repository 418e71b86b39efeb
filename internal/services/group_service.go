package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

const (
	joinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeAttempts = 10

	MaxGroupNameLength = 80
)

// timeNow is replaced in tests.
var timeNow = func() time.Time { return time.Now().UTC() }

func requireSession(s models.AuthSession) error {
	if !s.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

// GroupService implements the group membership lifecycle.
type GroupService struct {
	store store.Store
}

func NewGroupService(st store.Store) *GroupService {
	return &GroupService{store: st}
}

type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

// Create makes a new group owned by the caller, who becomes its first
// member. Private groups get a fresh join code.
func (s *GroupService) Create(ctx context.Context, session models.AuthSession, in CreateGroupInput) (*models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &utils.ValidationError{Field: "name", Message: "Group name is required"}
	}
	if len([]rune(name)) > MaxGroupNameLength {
		return nil, &utils.ValidationError{Field: "name", Message: fmt.Sprintf("Group name must be at most %d characters", MaxGroupNameLength)}
	}
	if err := CheckContent("name", name); err != nil {
		return nil, err
	}

	g := &models.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsPrivate:   in.IsPrivate,
		Members:     []string{session.UID},
		CreatedBy:   session.UID,
		CreatedAt:   timeNow(),
	}
	if g.IsPrivate {
		code, err := s.GenerateUniqueJoinCode(ctx)
		if err != nil {
			return nil, err
		}
		g.JoinCode = code
	}

	if err := s.store.Insert(ctx, models.CollectionGroups, g.ID, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// GenerateUniqueJoinCode returns a code no existing group uses.
func (s *GroupService) GenerateUniqueJoinCode(ctx context.Context) (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := randomJoinCode()
		if err != nil {
			return "", err
		}
		var existing []models.Group
		q := store.NewQuery(models.CollectionGroups).Where(models.FieldJoinCode, code).Take(1)
		if err := s.store.Find(ctx, q, &existing); err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if len(existing) == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique join code")
}

func randomJoinCode() (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	b := make([]byte, joinCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeJoinCode trims and upper-cases user input.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Join adds the caller to the private group with the given code.
func (s *GroupService) Join(ctx context.Context, session models.AuthSession, code string) (*models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	code = NormalizeJoinCode(code)
	if code == "" {
		return nil, &utils.ValidationError{Field: "join_code", Message: "Join code is required"}
	}

	var matches []models.Group
	q := store.NewQuery(models.CollectionGroups).Where(models.FieldJoinCode, code).Take(1)
	if err := s.store.Find(ctx, q, &matches); err != nil {
		return nil, fmt.Errorf("find group by code: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrJoinCodeNotFound
	}
	g := matches[0]
	if !g.IsPrivate {
		return nil, ErrNotPrivate
	}
	if g.HasMember(session.UID) {
		return nil, ErrAlreadyMember
	}

	if err := s.store.AddToSet(ctx, models.CollectionGroups, g.ID, models.FieldMembers, session.UID); err != nil {
		return nil, fmt.Errorf("join group: %w", err)
	}
	g.Members = append(g.Members, session.UID)

	// The membership change stands even if the notice cannot be written.
	if _, err := AppendSystemMessage(ctx, s.store, g.ID, session.Name()+" joined the group"); err != nil {
		slog.Warn("join system message failed", "group_id", g.ID, "user_id", session.UID, "err", err)
	}
	return &g, nil
}

// Leave removes the caller from a group. The owner cannot leave.
func (s *GroupService) Leave(ctx context.Context, session models.AuthSession, groupID string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if !g.HasMember(session.UID) {
		return ErrNotMember
	}
	if g.IsOwner(session.UID) {
		return ErrOwnerCannotLeave
	}

	if err := s.store.Pull(ctx, models.CollectionGroups, g.ID, models.FieldMembers, session.UID); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	if _, err := AppendSystemMessage(ctx, s.store, g.ID, session.Name()+" left the group"); err != nil {
		slog.Warn("leave system message failed", "group_id", g.ID, "user_id", session.UID, "err", err)
	}
	return nil
}

// Delete removes the group document. Only its creator may delete it.
// Messages are kept.
func (s *GroupService) Delete(ctx context.Context, session models.AuthSession, groupID string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if !g.IsOwner(session.UID) {
		return ErrNotOwner
	}
	if err := s.store.Delete(ctx, models.CollectionGroups, g.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// SetPrivacy switches a group between public and private. Going private
// issues a new join code; going public clears it.
func (s *GroupService) SetPrivacy(ctx context.Context, session models.AuthSession, groupID string, private bool) (*models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.IsOwner(session.UID) {
		return nil, ErrNotOwner
	}
	if g.IsPrivate == private {
		return g, nil
	}

	code := ""
	if private {
		if code, err = s.GenerateUniqueJoinCode(ctx); err != nil {
			return nil, err
		}
	}
	set := map[string]any{models.FieldIsPrivate: private, models.FieldJoinCode: code}
	if err := s.store.Update(ctx, models.CollectionGroups, g.ID, set); err != nil {
		return nil, fmt.Errorf("update group privacy: %w", err)
	}
	g.IsPrivate = private
	g.JoinCode = code
	return g, nil
}

// Get loads a group by id.
func (s *GroupService) Get(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, &utils.ValidationError{Field: "group_id", Message: "Group id is required"}
	}
	var g models.Group
	if err := s.store.Get(ctx, models.CollectionGroups, groupID, &g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

// CanRead reports whether uid may see the group and its messages.
func CanRead(g *models.Group, uid string) bool {
	return !g.IsPrivate || g.HasMember(uid)
}

// Visible filters groups down to what uid may see: public groups and
// private groups uid belongs to. Join codes are hidden from non-owners.
func Visible(groups []models.Group, uid string) []models.Group {
	out := make([]models.Group, 0, len(groups))
	for _, g := range groups {
		if !CanRead(&g, uid) {
			continue
		}
		if !g.IsOwner(uid) {
			g.JoinCode = ""
		}
		out = append(out, g)
	}
	return out
}

// GroupsQuery is the live query behind the group list.
func GroupsQuery() store.Query {
	return store.NewQuery(models.CollectionGroups).Sort(models.FieldCreatedAt, true)
}

// List returns the groups visible to the caller, newest first.
func (s *GroupService) List(ctx context.Context, session models.AuthSession) ([]models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	var groups []models.Group
	if err := s.store.Find(ctx, GroupsQuery(), &groups); err != nil {
		return nil, err
	}
	return Visible(groups, session.UID), nil
}

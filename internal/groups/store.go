// Package groups maintains the membership directory: which members belong
// to which group, and which spreadsheet each group writes to. The store is
// a single JSON file rewritten atomically on every mutation.
package groups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/dates"
	"github.com/moneytalks-bot/moneytalks/internal/model"
)

// storeFile is the on-disk shape of the directory.
type storeFile struct {
	Groups map[string]*model.Group `json:"groups"`
}

// Store is a file-backed group directory. A member id appears in at most
// one group store-wide; the single mutex exists because that invariant
// spans groups and cannot be enforced with per-group locks.
type Store struct {
	groups map[string]*model.Group
	path   string
	mu     sync.RWMutex
}

// NewStore loads the directory at path, or starts empty when the file does
// not exist yet. A file that exists but fails to parse is an error; the
// store never reinitializes over data it cannot read.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: group store path is required", common.ErrInvalidConfig)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create group store directory: %w", err)
		}
	}

	s := &Store{
		path:   path,
		groups: make(map[string]*model.Group),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read group store: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse group store %s: %w", path, err)
	}
	if file.Groups != nil {
		s.groups = file.Groups
	}

	return s, nil
}

// CreateGroup registers a new group owned by ownerID, who becomes its first
// member. Fails with ErrAlreadyInGroup when the owner belongs to any group.
func (s *Store) CreateGroup(ctx context.Context, title, spreadsheetID string, ownerID int64) (*model.Group, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if strings.TrimSpace(title) == "" {
		title = "Family budget"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if g := s.memberGroupLocked(ownerID); g != nil {
		return nil, fmt.Errorf("member %d is in group %q: %w", ownerID, g.Title, common.ErrAlreadyInGroup)
	}

	group := &model.Group{
		CreatedAt:     time.Now().UTC(),
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(title),
		SpreadsheetID: spreadsheetID,
		Members:       []int64{ownerID},
		OwnerID:       ownerID,
	}

	next := s.copyGroupsLocked()
	next[group.ID] = group
	if err := s.commitLocked(next); err != nil {
		return nil, err
	}

	slog.Info("group created", "group_id", group.ID, "title", group.Title, "owner", ownerID)
	return group.Clone(), nil
}

// Group returns the group with the given id.
func (s *Store) Group(ctx context.Context, groupID string) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, common.ErrNotFound)
	}
	return g.Clone(), nil
}

// GroupForMember returns the single group memberID belongs to.
func (s *Store) GroupForMember(ctx context.Context, memberID int64) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g := s.memberGroupLocked(memberID); g != nil {
		return g.Clone(), nil
	}
	return nil, fmt.Errorf("member %d: %w", memberID, common.ErrNotInGroup)
}

// AddMember adds memberID to the group. Members of any existing group are
// rejected with ErrAlreadyInGroup; switching groups requires an explicit
// leave first, never a silent migration.
func (s *Store) AddMember(ctx context.Context, groupID string, memberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMemberLocked(groupID, memberID)
}

func (s *Store) addMemberLocked(groupID string, memberID int64) error {
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, common.ErrNotFound)
	}
	if current := s.memberGroupLocked(memberID); current != nil {
		return fmt.Errorf("member %d is in group %q: %w", memberID, current.Title, common.ErrAlreadyInGroup)
	}

	next := s.copyGroupsLocked()
	updated := g.Clone()
	updated.Members = append(updated.Members, memberID)
	next[groupID] = updated
	if err := s.commitLocked(next); err != nil {
		return err
	}

	slog.Info("member joined group", "group_id", groupID, "member", memberID)
	return nil
}

// RemoveMember removes memberID from the group. When the owner leaves, the
// whole group is deleted; remaining members must create or join a new one.
func (s *Store) RemoveMember(ctx context.Context, groupID string, memberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, common.ErrNotFound)
	}
	if !g.HasMember(memberID) {
		return fmt.Errorf("member %d: %w", memberID, common.ErrNotInGroup)
	}

	next := s.copyGroupsLocked()
	if memberID == g.OwnerID {
		delete(next, groupID)
	} else {
		updated := g.Clone()
		members := make([]int64, 0, len(updated.Members)-1)
		for _, m := range updated.Members {
			if m != memberID {
				members = append(members, m)
			}
		}
		updated.Members = members
		next[groupID] = updated
	}

	if err := s.commitLocked(next); err != nil {
		return err
	}

	if memberID == g.OwnerID {
		slog.Info("group deleted by owner leaving", "group_id", groupID, "owner", memberID)
	} else {
		slog.Info("member left group", "group_id", groupID, "member", memberID)
	}
	return nil
}

// IssueInvite generates a fresh invite code for the group, replacing any
// previous one. Codes stay valid until the next IssueInvite call.
func (s *Store) IssueInvite(ctx context.Context, groupID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return "", fmt.Errorf("group %s: %w", groupID, common.ErrNotFound)
	}

	code, err := s.uniqueCodeLocked()
	if err != nil {
		return "", err
	}

	next := s.copyGroupsLocked()
	updated := g.Clone()
	updated.InviteCode = code
	next[groupID] = updated
	if err := s.commitLocked(next); err != nil {
		return "", err
	}

	return code, nil
}

// JoinByInvite adds memberID to the group holding the given invite code.
func (s *Store) JoinByInvite(ctx context.Context, code string, memberID int64) (*model.Group, error) {
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, common.ErrInvalidInvite
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var target *model.Group
	for _, g := range s.groups {
		if g.InviteCode == code {
			target = g
			break
		}
	}
	if target == nil {
		return nil, common.ErrInvalidInvite
	}

	if err := s.addMemberLocked(target.ID, memberID); err != nil {
		return nil, err
	}
	return s.groups[target.ID].Clone(), nil
}

// SetLanguage sets the group's month-label language.
func (s *Store) SetLanguage(ctx context.Context, groupID, language string) error {
	if _, err := dates.NewResolver(language); err != nil {
		return err
	}
	return s.updateGroup(groupID, func(g *model.Group) {
		g.Language = strings.ToLower(strings.TrimSpace(language))
	})
}

// SetCurrency sets the group's default currency tag.
func (s *Store) SetCurrency(ctx context.Context, groupID, currency string) error {
	tag := strings.ToUpper(strings.TrimSpace(currency))
	if len(tag) != 3 {
		return common.NewValidationError("currency", currency, "must be a 3-letter code")
	}
	return s.updateGroup(groupID, func(g *model.Group) {
		g.Currency = tag
	})
}

func (s *Store) updateGroup(groupID string, mutate func(*model.Group)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, common.ErrNotFound)
	}

	next := s.copyGroupsLocked()
	updated := g.Clone()
	mutate(updated)
	next[groupID] = updated
	return s.commitLocked(next)
}

func (s *Store) memberGroupLocked(memberID int64) *model.Group {
	for _, g := range s.groups {
		if g.HasMember(memberID) {
			return g
		}
	}
	return nil
}

func (s *Store) uniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := NewInviteCode()
		if err != nil {
			return "", err
		}
		if !s.codeInUseLocked(code) {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique invite code")
}

func (s *Store) codeInUseLocked(code string) bool {
	for _, g := range s.groups {
		if g.InviteCode == code {
			return true
		}
	}
	return false
}

func (s *Store) copyGroupsLocked() map[string]*model.Group {
	next := make(map[string]*model.Group, len(s.groups))
	for id, g := range s.groups {
		next[id] = g
	}
	return next
}

// commitLocked persists the candidate state and, only once the file is
// safely on disk, makes it the in-memory state. The write goes to a temp
// file in the store directory and is renamed over the old file, so a crash
// mid-write leaves the previous version intact.
func (s *Store) commitLocked(next map[string]*model.Group) error {
	data, err := json.MarshalIndent(storeFile{Groups: next}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode group store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".groups-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp group store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write group store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync group store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp group store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace group store: %w", err)
	}

	s.groups = next
	return nil
}

package groups

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groups.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	return store, path
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	assert.NotEmpty(t, group.ID)
	assert.Equal(t, "Family", group.Title)
	assert.Equal(t, "sheet-123", group.SpreadsheetID)
	assert.Equal(t, int64(100), group.OwnerID)
	assert.Equal(t, []int64{100}, group.Members)
	assert.False(t, group.CreatedAt.IsZero())
}

func TestCreateGroupRequiresSpreadsheet(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.CreateGroup(ctx, "Family", "  ", 100)
	require.Error(t, err)
}

func TestCreateGroupRejectsSecondGroup(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.CreateGroup(ctx, "First", "sheet-1", 100)
	require.NoError(t, err)

	_, err = store.CreateGroup(ctx, "Second", "sheet-2", 100)
	assert.ErrorIs(t, err, common.ErrAlreadyInGroup)
}

func TestGroupForMember(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	created, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	got, err := store.GroupForMember(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = store.GroupForMember(ctx, 999)
	assert.ErrorIs(t, err, common.ErrNotInGroup)
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	require.NoError(t, store.AddMember(ctx, group.ID, 200))

	got, err := store.Group(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, got.Members)
}

func TestAddMemberEnforcesSingleMembership(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first, err := store.CreateGroup(ctx, "First", "sheet-1", 100)
	require.NoError(t, err)
	second, err := store.CreateGroup(ctx, "Second", "sheet-2", 200)
	require.NoError(t, err)

	// Already a member elsewhere.
	err = store.AddMember(ctx, second.ID, 100)
	assert.ErrorIs(t, err, common.ErrAlreadyInGroup)

	// Already a member of the same group.
	err = store.AddMember(ctx, first.ID, 100)
	assert.ErrorIs(t, err, common.ErrAlreadyInGroup)

	err = store.AddMember(ctx, "no-such-group", 300)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)
	require.NoError(t, store.AddMember(ctx, group.ID, 200))

	require.NoError(t, store.RemoveMember(ctx, group.ID, 200))

	got, err := store.Group(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, got.Members)

	// The departed member can now join another group.
	_, err = store.CreateGroup(ctx, "Solo", "sheet-456", 200)
	require.NoError(t, err)
}

func TestRemoveMemberNotInGroup(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	err = store.RemoveMember(ctx, group.ID, 999)
	assert.ErrorIs(t, err, common.ErrNotInGroup)
}

func TestOwnerLeavingDeletesGroup(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)
	require.NoError(t, store.AddMember(ctx, group.ID, 200))

	require.NoError(t, store.RemoveMember(ctx, group.ID, 100))

	_, err = store.Group(ctx, group.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GroupForMember(ctx, 200)
	assert.ErrorIs(t, err, common.ErrNotInGroup)
}

func TestIssueInviteAndJoin(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	code, err := store.IssueInvite(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, code, inviteLength)

	joined, err := store.JoinByInvite(ctx, code, 200)
	require.NoError(t, err)
	assert.Equal(t, group.ID, joined.ID)
	assert.Contains(t, joined.Members, int64(200))

	// Codes stay valid after use: a second member joins on the same code.
	_, err = store.JoinByInvite(ctx, code, 300)
	require.NoError(t, err)
}

func TestJoinByInviteNormalizesInput(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	code, err := store.IssueInvite(ctx, group.ID)
	require.NoError(t, err)

	_, err = store.JoinByInvite(ctx, "  "+code+" ", 200)
	require.NoError(t, err)
}

func TestJoinByInviteInvalidCode(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.JoinByInvite(ctx, "NOPE", 200)
	assert.ErrorIs(t, err, common.ErrInvalidInvite)

	_, err = store.JoinByInvite(ctx, "", 200)
	assert.ErrorIs(t, err, common.ErrInvalidInvite)
}

func TestReissueInvalidatesOldCode(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	oldCode, err := store.IssueInvite(ctx, group.ID)
	require.NoError(t, err)
	newCode, err := store.IssueInvite(ctx, group.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldCode, newCode)

	_, err = store.JoinByInvite(ctx, oldCode, 200)
	assert.ErrorIs(t, err, common.ErrInvalidInvite)

	_, err = store.JoinByInvite(ctx, newCode, 200)
	require.NoError(t, err)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)
	require.NoError(t, store.AddMember(ctx, group.ID, 200))
	code, err := store.IssueInvite(ctx, group.ID)
	require.NoError(t, err)
	require.NoError(t, store.SetLanguage(ctx, group.ID, "en"))
	require.NoError(t, store.SetCurrency(ctx, group.ID, "eur"))

	reopened, err := NewStore(path)
	require.NoError(t, err)

	got, err := reopened.Group(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Family", got.Title)
	assert.Equal(t, "sheet-123", got.SpreadsheetID)
	assert.Equal(t, []int64{100, 200}, got.Members)
	assert.Equal(t, code, got.InviteCode)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, "EUR", got.Currency)
}

func TestNewStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewStore(path)
	require.Error(t, err)
}

func TestSetLanguageRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	err = store.SetLanguage(ctx, group.ID, "xx")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestSetCurrencyRejectsBadTag(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	err = store.SetCurrency(ctx, group.ID, "dollars")
	require.Error(t, err)

	var vErr *common.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "currency", vErr.Field)
}

func TestConcurrentJoins(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)
	code, err := store.IssueInvite(ctx, group.ID)
	require.NoError(t, err)

	const joiners = 20
	var wg sync.WaitGroup
	errs := make([]error, joiners)

	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.JoinByInvite(ctx, code, int64(1000+i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "joiner %d", i)
	}

	got, err := store.Group(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, joiners+1)
}

func TestReturnedGroupsAreCopies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	group, err := store.CreateGroup(ctx, "Family", "sheet-123", 100)
	require.NoError(t, err)

	got, err := store.Group(ctx, group.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Members[0] = 999

	fresh, err := store.Group(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Family", fresh.Title)
	assert.Equal(t, []int64{100}, fresh.Members)
}

func TestManyGroupsUniqueInvites(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		group, err := store.CreateGroup(ctx, fmt.Sprintf("Group %d", i), "sheet", int64(i+1))
		require.NoError(t, err)

		code, err := store.IssueInvite(ctx, group.ID)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate invite code issued")
		seen[code] = true
	}
}

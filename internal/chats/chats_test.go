package chats

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/keyring"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
	"github.com/dmitrijs2005/chatkeeper/internal/migrate"
)

func openRaw(t *testing.T, dir string) (*docstore.Store, *keyring.Key) {
	t.Helper()
	km := keyring.NewManager(dir, logging.NewNopLogger())
	key, _, err := km.Resolve(context.Background())
	require.NoError(t, err)

	ds, err := docstore.Open(filepath.Join(dir, common.ChatsFileName), key, logging.NewNopLogger())
	require.NoError(t, err)
	return ds, key
}

// newTestStore returns a migrated store with a deterministic clock and id
// sequence.
func newTestStore(t *testing.T) (*Store, string, *keyring.Key) {
	t.Helper()
	dir := t.TempDir()
	ds, key := openRaw(t, dir)
	require.NoError(t, migrate.Run(context.Background(), ds, Migrations(), logging.NewNopLogger()))

	s := New(ds, logging.NewNopLogger())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return s, dir, key
}

func TestEnsureSeed_CreatesFirstChat(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureSeed(ctx))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Chat 1", list[0].Name)
	assert.False(t, list[0].Starred)
	assert.NotNil(t, list[0].Messages)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, cur.ID)
}

func TestEnsureSeed_Idempotent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureSeed(ctx))
	first, err := s.Current(ctx)
	require.NoError(t, err)

	require.NoError(t, s.EnsureSeed(ctx))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cur.ID)
}

func TestCreate_BecomesCurrent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	chat, err := s.Create(ctx, "  Planning  ")
	require.NoError(t, err)
	assert.Equal(t, "Planning", chat.Name, "name is trimmed")

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, cur.ID)
}

func TestCreate_DefaultNames(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	c2, err := s.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Chat 2", c2.Name)

	// a high manual numeral pushes the next default past it
	_, err = s.Create(ctx, "Chat 9")
	require.NoError(t, err)

	c4, err := s.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Chat 10", c4.Name)
}

func TestDelete_LastChatRefused(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	list, err := s.List(ctx)
	require.NoError(t, err)

	err = s.Delete(ctx, list[0].ID)
	assert.ErrorIs(t, err, common.ErrCannotDeleteLastChat)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "chat must survive the refused delete")
}

func TestDelete_CurrentReassigned(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	second, err := s.Create(ctx, "second")
	require.NoError(t, err)

	// second is current; deleting it must fall back to the first chat
	require.NoError(t, s.Delete(ctx, second.ID))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, cur.ID)
}

func TestDelete_UnknownChat(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	err := s.Delete(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrChatNotFound)
}

func TestRename(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	before := cur.UpdatedAt

	require.NoError(t, s.Rename(ctx, cur.ID, "  Research notes  "))

	got, err := s.Get(ctx, cur.ID)
	require.NoError(t, err)
	assert.Equal(t, "Research notes", got.Name)
	assert.True(t, got.UpdatedAt.After(before), "rename bumps UpdatedAt")

	assert.ErrorIs(t, s.Rename(ctx, cur.ID, "   "), common.ErrInvalidName)
	assert.ErrorIs(t, s.Rename(ctx, "ghost", "x"), common.ErrChatNotFound)
}

func TestToggleStar_RoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	cur, err := s.Current(ctx)
	require.NoError(t, err)

	on, err := s.ToggleStar(ctx, cur.ID)
	require.NoError(t, err)
	assert.True(t, on)

	off, err := s.ToggleStar(ctx, cur.ID)
	require.NoError(t, err)
	assert.False(t, off, "second toggle returns to the original state")

	on, err = s.ToggleStar(ctx, cur.ID)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = s.ToggleStar(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrChatNotFound)
}

func TestSetCurrent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	first, err := s.Current(ctx)
	require.NoError(t, err)
	second, err := s.Create(ctx, "second")
	require.NoError(t, err)

	require.NoError(t, s.SetCurrent(ctx, first.ID))
	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cur.ID)

	assert.ErrorIs(t, s.SetCurrent(ctx, "ghost"), common.ErrChatNotFound)

	// the failed switch must not move the pointer
	cur, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cur.ID)
	_ = second
}

func TestCurrent_HealsDanglingPointer(t *testing.T) {
	s, dir, key := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	// corrupt the pointer behind the facade's back
	ds, err := docstore.Open(filepath.Join(dir, common.ChatsFileName), key, logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, ds.Set(currentKey, "ghost"))

	s2 := New(ds, logging.NewNopLogger())
	cur, err := s2.Current(ctx)
	require.NoError(t, err)

	list, err := s2.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, cur.ID)

	id, _ := ds.GetString(currentKey)
	assert.Equal(t, list[0].ID, id, "healed pointer is persisted")
}

func TestAppendMessage(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	before := cur.UpdatedAt

	m1, err := s.AppendMessage(ctx, cur.ID, RoleUser, "hello")
	require.NoError(t, err)
	m2, err := s.AppendMessage(ctx, cur.ID, RoleAssistant, "hi there")
	require.NoError(t, err)

	msgs, err := s.Messages(ctx, cur.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m1.ID, msgs[0].ID)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, m2.ID, msgs[1].ID)

	got, err := s.Get(ctx, cur.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(before), "append bumps UpdatedAt")
}

func TestAppendMessage_InvalidRole(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	cur, err := s.Current(ctx)
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, cur.ID, "narrator", "once upon a time")
	assert.ErrorIs(t, err, common.ErrInvalidRole)

	msgs, err := s.Messages(ctx, cur.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClearMessages(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, cur.ID, RoleUser, "a")
	require.NoError(t, err)

	require.NoError(t, s.ClearMessages(ctx, cur.ID))

	msgs, err := s.Messages(ctx, cur.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = s.Get(ctx, cur.ID)
	assert.NoError(t, err, "chat itself survives")
}

func TestDeleteMessages_Subset(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	cur, err := s.Current(ctx)
	require.NoError(t, err)

	m1, _ := s.AppendMessage(ctx, cur.ID, RoleUser, "one")
	m2, _ := s.AppendMessage(ctx, cur.ID, RoleAssistant, "two")
	m3, _ := s.AppendMessage(ctx, cur.ID, RoleUser, "three")

	removed, err := s.DeleteMessages(ctx, cur.ID, []string{m1.ID, m3.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	msgs, err := s.Messages(ctx, cur.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, m2.ID, msgs[0].ID)
}

func TestDeleteMessages_EdgeCases(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	m1, _ := s.AppendMessage(ctx, cur.ID, RoleUser, "keep me")

	_, err = s.DeleteMessages(ctx, cur.ID, nil)
	assert.ErrorIs(t, err, common.ErrNoIDs)

	removed, err := s.DeleteMessages(ctx, cur.ID, []string{"ghost-1", "ghost-2"})
	require.NoError(t, err, "unknown ids are skipped, not an error")
	assert.Equal(t, 0, removed)

	removed, err = s.DeleteMessages(ctx, cur.ID, []string{"ghost", m1.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "only actual hits are counted")

	_, err = s.DeleteMessages(ctx, "ghost-chat", []string{"x"})
	assert.ErrorIs(t, err, common.ErrChatNotFound)
}

func TestPersistence_AcrossReopen(t *testing.T) {
	s, dir, key := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSeed(ctx))

	chat, err := s.Create(ctx, "travel plans")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, chat.ID, RoleUser, "pack the charger")
	require.NoError(t, err)
	_, err = s.ToggleStar(ctx, chat.ID)
	require.NoError(t, err)

	ds, err := docstore.Open(filepath.Join(dir, common.ChatsFileName), key, logging.NewNopLogger())
	require.NoError(t, err)
	s2 := New(ds, logging.NewNopLogger())

	got, err := s2.Get(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "travel plans", got.Name)
	assert.True(t, got.Starred)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "pack the charger", got.Messages[0].Content)

	cur, err := s2.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, cur.ID)
}

func TestMigration_V2AddsStarredFlag(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ds, key := openRaw(t, dir)

	// shape of a chats store written before the starred flag existed
	legacy := []map[string]any{
		{
			"id": "old-1", "name": "Chat 1",
			"messages":  []any{},
			"createdAt": "2025-11-01T10:00:00Z",
			"updatedAt": "2025-11-01T10:00:00Z",
		},
		{
			"id": "old-2", "name": "Chat 2", "starred": true,
			"messages":  []any{},
			"createdAt": "2025-11-02T10:00:00Z",
			"updatedAt": "2025-11-02T10:00:00Z",
		},
	}
	require.NoError(t, ds.Set(chatsKey, legacy))
	require.NoError(t, ds.Set(currentKey, "old-1"))

	// migrations always run against a freshly loaded document
	require.NoError(t, ds.Reload())
	require.NoError(t, migrate.Run(ctx, ds, Migrations(), logging.NewNopLogger()))

	ds2, err := docstore.Open(filepath.Join(dir, common.ChatsFileName), key, logging.NewNopLogger())
	require.NoError(t, err)
	s := New(ds2, logging.NewNopLogger())

	assert.Equal(t, 2, s.SchemaVersion())

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Starred, "missing flag filled with false")
	assert.True(t, list[1].Starred, "existing flag untouched")
}

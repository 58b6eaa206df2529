// Package chats manages conversations and their messages inside the
// encrypted chats store (chats.json). The store guarantees that at least
// one chat always exists and that the current-chat pointer is never left
// dangling.
package chats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

// Message roles accepted by AppendMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const (
	chatsKey   = "chats"
	currentKey = "currentChatId"
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Chat struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Starred   bool      `json:"starred"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	doc *docstore.Store
	log logging.Logger

	// seams for tests
	now   func() time.Time
	newID func() string
}

func New(doc *docstore.Store, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{doc: doc, log: log, now: time.Now, newID: newID}
}

// newID returns a time-ordered UUID so chat and message IDs sort in
// creation order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) load() ([]Chat, error) {
	var chats []Chat
	err := s.doc.Decode(chatsKey, &chats)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// save writes chats and the current pointer in a single file rewrite.
func (s *Store) save(chats []Chat, currentID string) error {
	s.doc.Doc()[chatsKey] = chats
	s.doc.Doc()[currentKey] = currentID
	return s.doc.SaveNow()
}

func (s *Store) currentID() string {
	id, _ := s.doc.GetString(currentKey)
	return id
}

func indexOf(chats []Chat, id string) int {
	for i := range chats {
		if chats[i].ID == id {
			return i
		}
	}
	return -1
}

// EnsureSeed guarantees the store holds at least one chat and a valid
// current pointer. Called once at startup and again after a restore.
func (s *Store) EnsureSeed(ctx context.Context) error {
	chats, err := s.load()
	if err != nil {
		return err
	}

	if len(chats) == 0 {
		now := s.now()
		chat := Chat{
			ID:        s.newID(),
			Name:      "Chat 1",
			Messages:  []Message{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.log.Info(ctx, "seeding initial chat", "id", chat.ID)
		return s.save([]Chat{chat}, chat.ID)
	}

	if indexOf(chats, s.currentID()) < 0 {
		s.log.Warn(ctx, "current chat pointer dangling, resetting", "to", chats[0].ID)
		return s.save(chats, chats[0].ID)
	}
	return nil
}

// defaultName picks "Chat N" one past the highest numbered default name, so
// deleted chats never cause a name collision.
func defaultName(chats []Chat) string {
	max := 0
	for i := range chats {
		rest, ok := strings.CutPrefix(chats[i].Name, "Chat ")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	return "Chat " + strconv.Itoa(max+1)
}

// Create adds a chat and makes it current. An empty name selects the next
// free "Chat N" default.
func (s *Store) Create(ctx context.Context, name string) (*Chat, error) {
	chats, err := s.load()
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName(chats)
	}

	now := s.now()
	chat := Chat{
		ID:        s.newID(),
		Name:      name,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	chats = append(chats, chat)

	if err := s.save(chats, chat.ID); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "chat created", "id", chat.ID, "name", chat.Name)
	return &chat, nil
}

// Delete removes a chat. The last remaining chat cannot be deleted; if the
// current chat is removed, the pointer moves to the first remaining one.
func (s *Store) Delete(ctx context.Context, id string) error {
	chats, err := s.load()
	if err != nil {
		return err
	}

	idx := indexOf(chats, id)
	if idx < 0 {
		return fmt.Errorf("chat %s: %w", id, common.ErrChatNotFound)
	}
	if len(chats) == 1 {
		return common.ErrCannotDeleteLastChat
	}

	chats = append(chats[:idx], chats[idx+1:]...)

	current := s.currentID()
	if current == id {
		current = chats[0].ID
	}
	if err := s.save(chats, current); err != nil {
		return err
	}
	s.log.Info(ctx, "chat deleted", "id", id)
	return nil
}

// Rename changes a chat's name. The name is trimmed; an empty result is
// rejected.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename: %w", common.ErrInvalidName)
	}

	chats, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(chats, id)
	if idx < 0 {
		return fmt.Errorf("chat %s: %w", id, common.ErrChatNotFound)
	}

	chats[idx].Name = name
	chats[idx].UpdatedAt = s.now()
	return s.save(chats, s.currentID())
}

// ToggleStar flips a chat's starred flag and returns the new state.
func (s *Store) ToggleStar(ctx context.Context, id string) (bool, error) {
	chats, err := s.load()
	if err != nil {
		return false, err
	}
	idx := indexOf(chats, id)
	if idx < 0 {
		return false, fmt.Errorf("chat %s: %w", id, common.ErrChatNotFound)
	}

	chats[idx].Starred = !chats[idx].Starred
	chats[idx].UpdatedAt = s.now()
	if err := s.save(chats, s.currentID()); err != nil {
		return false, err
	}
	return chats[idx].Starred, nil
}

// SetCurrent switches the current chat.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	chats, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(chats, id) < 0 {
		return fmt.Errorf("chat %s: %w", id, common.ErrChatNotFound)
	}
	return s.save(chats, id)
}

// Current returns the current chat, healing a dangling pointer by falling
// back to the first chat.
func (s *Store) Current(ctx context.Context) (*Chat, error) {
	chats, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, fmt.Errorf("no chats: %w", common.ErrChatNotFound)
	}

	idx := indexOf(chats, s.currentID())
	if idx < 0 {
		s.log.Warn(ctx, "current chat pointer dangling, resetting", "to", chats[0].ID)
		if err := s.save(chats, chats[0].ID); err != nil {
			return nil, err
		}
		idx = 0
	}
	chat := chats[idx]
	return &chat, nil
}

// List returns all chats in creation order.
func (s *Store) List(ctx context.Context) ([]Chat, error) {
	return s.load()
}

// Get returns one chat by id.
func (s *Store) Get(ctx context.Context, id string) (*Chat, error) {
	chats, err := s.load()
	if err != nil {
		return nil, err
	}
	idx := indexOf(chats, id)
	if idx < 0 {
		return nil, fmt.Errorf("chat %s: %w", id, common.ErrChatNotFound)
	}
	chat := chats[idx]
	return &chat, nil
}

// AppendMessage adds a message to a chat and bumps its UpdatedAt.
func (s *Store) AppendMessage(ctx context.Context, chatID, role, content string) (*Message, error) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return nil, fmt.Errorf("role %q: %w", role, common.ErrInvalidRole)
	}

	chats, err := s.load()
	if err != nil {
		return nil, err
	}
	idx := indexOf(chats, chatID)
	if idx < 0 {
		return nil, fmt.Errorf("chat %s: %w", chatID, common.ErrChatNotFound)
	}

	now := s.now()
	msg := Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
	chats[idx].Messages = append(chats[idx].Messages, msg)
	chats[idx].UpdatedAt = now

	if err := s.save(chats, s.currentID()); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Messages returns a chat's messages in append order.
func (s *Store) Messages(ctx context.Context, chatID string) ([]Message, error) {
	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return chat.Messages, nil
}

// ClearMessages empties a chat's history but keeps the chat itself.
func (s *Store) ClearMessages(ctx context.Context, chatID string) error {
	chats, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(chats, chatID)
	if idx < 0 {
		return fmt.Errorf("chat %s: %w", chatID, common.ErrChatNotFound)
	}

	chats[idx].Messages = []Message{}
	chats[idx].UpdatedAt = s.now()
	return s.save(chats, s.currentID())
}

// DeleteMessages removes the messages with the given ids from a chat and
// returns how many were actually removed. Unknown ids inside a non-empty
// set are skipped; an empty set is an error.
func (s *Store) DeleteMessages(ctx context.Context, chatID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, common.ErrNoIDs
	}

	chats, err := s.load()
	if err != nil {
		return 0, err
	}
	idx := indexOf(chats, chatID)
	if idx < 0 {
		return 0, fmt.Errorf("chat %s: %w", chatID, common.ErrChatNotFound)
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := chats[idx].Messages[:0]
	removed := 0
	for _, m := range chats[idx].Messages {
		if _, hit := drop[m.ID]; hit {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	if removed == 0 {
		return 0, nil
	}

	chats[idx].Messages = kept
	chats[idx].UpdatedAt = s.now()
	if err := s.save(chats, s.currentID()); err != nil {
		return 0, err
	}
	return removed, nil
}

// SchemaVersion exposes the store's current schema stamp.
func (s *Store) SchemaVersion() int { return s.doc.SchemaVersion() }

// Package agents manages assistant personas inside the encrypted agents
// store (agents.json). Three built-in personas are always present; users
// can add, edit and remove their own, but never the built-ins.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

const (
	agentsKey  = "agents"
	currentKey = "currentAgentId"
)

// DefaultAgentID is the persona selected when nothing else is.
const DefaultAgentID = "builtin-assistant"

type Agent struct {
	ID          string    `json:"id"`
	Emoji       string    `json:"emoji"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Builtin     bool      `json:"builtin"`
	CreatedAt   time.Time `json:"createdAt"`
}

// builtins returns the built-in personas. IDs are fixed so seeding is
// stable across launches and restores.
func builtins(now time.Time) []Agent {
	return []Agent{
		{
			ID: DefaultAgentID, Emoji: "🤖", Name: "Assistant",
			Description: "General-purpose helpful assistant",
			Builtin:     true, CreatedAt: now,
		},
		{
			ID: "builtin-coder", Emoji: "🧑‍💻", Name: "Coder",
			Description: "Focused on writing and reviewing code",
			Builtin:     true, CreatedAt: now,
		},
		{
			ID: "builtin-writer", Emoji: "✍️", Name: "Writer",
			Description: "Drafting, editing and polishing prose",
			Builtin:     true, CreatedAt: now,
		},
	}
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

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) load() ([]Agent, error) {
	var agents []Agent
	err := s.doc.Decode(agentsKey, &agents)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (s *Store) save(agents []Agent, currentID string) error {
	s.doc.Doc()[agentsKey] = agents
	s.doc.Doc()[currentKey] = currentID
	return s.doc.SaveNow()
}

func (s *Store) currentID() string {
	id, _ := s.doc.GetString(currentKey)
	return id
}

func indexOf(agents []Agent, id string) int {
	for i := range agents {
		if agents[i].ID == id {
			return i
		}
	}
	return -1
}

// EnsureSeed populates an empty store with the built-in personas and a
// valid selection. Idempotent.
func (s *Store) EnsureSeed(ctx context.Context) error {
	agents, err := s.load()
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		s.log.Info(ctx, "seeding builtin agents")
		return s.save(builtins(s.now()), DefaultAgentID)
	}

	if indexOf(agents, s.currentID()) < 0 {
		s.log.Warn(ctx, "current agent pointer dangling, resetting", "to", DefaultAgentID)
		return s.save(agents, DefaultAgentID)
	}
	return nil
}

// Create adds a custom persona. It does not change the current selection.
func (s *Store) Create(ctx context.Context, emoji, name, description string) (*Agent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("agent name: %w", common.ErrInvalidName)
	}

	agents, err := s.load()
	if err != nil {
		return nil, err
	}

	agent := Agent{
		ID:          s.newID(),
		Emoji:       emoji,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now(),
	}
	agents = append(agents, agent)

	if err := s.save(agents, s.currentID()); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "agent created", "id", agent.ID, "name", agent.Name)
	return &agent, nil
}

// Update edits a custom persona. Built-ins are read-only.
func (s *Store) Update(ctx context.Context, id, emoji, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("agent name: %w", common.ErrInvalidName)
	}

	agents, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(agents, id)
	if idx < 0 {
		return fmt.Errorf("agent %s: %w", id, common.ErrAgentNotFound)
	}
	if agents[idx].Builtin {
		return fmt.Errorf("agent %s: %w", id, common.ErrBuiltinAgent)
	}

	agents[idx].Emoji = emoji
	agents[idx].Name = name
	agents[idx].Description = strings.TrimSpace(description)
	return s.save(agents, s.currentID())
}

// Delete removes a custom persona. Deleting the currently selected one
// falls the selection back to the default built-in.
func (s *Store) Delete(ctx context.Context, id string) error {
	agents, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(agents, id)
	if idx < 0 {
		return fmt.Errorf("agent %s: %w", id, common.ErrAgentNotFound)
	}
	if agents[idx].Builtin {
		return fmt.Errorf("agent %s: %w", id, common.ErrBuiltinAgent)
	}

	agents = append(agents[:idx], agents[idx+1:]...)

	current := s.currentID()
	if current == id {
		current = DefaultAgentID
	}
	if err := s.save(agents, current); err != nil {
		return err
	}
	s.log.Info(ctx, "agent deleted", "id", id)
	return nil
}

// SetCurrent selects a persona.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	agents, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(agents, id) < 0 {
		return fmt.Errorf("agent %s: %w", id, common.ErrAgentNotFound)
	}
	return s.save(agents, id)
}

// Current returns the selected persona, healing a dangling pointer by
// falling back to the default built-in.
func (s *Store) Current(ctx context.Context) (*Agent, error) {
	agents, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agents: %w", common.ErrAgentNotFound)
	}

	idx := indexOf(agents, s.currentID())
	if idx < 0 {
		s.log.Warn(ctx, "current agent pointer dangling, resetting", "to", DefaultAgentID)
		if err := s.save(agents, DefaultAgentID); err != nil {
			return nil, err
		}
		idx = indexOf(agents, DefaultAgentID)
		if idx < 0 {
			return nil, fmt.Errorf("agent %s: %w", DefaultAgentID, common.ErrAgentNotFound)
		}
	}
	agent := agents[idx]
	return &agent, nil
}

// List returns all personas, built-ins first in seed order.
func (s *Store) List(ctx context.Context) ([]Agent, error) {
	return s.load()
}

// Get returns one persona by id.
func (s *Store) Get(ctx context.Context, id string) (*Agent, error) {
	agents, err := s.load()
	if err != nil {
		return nil, err
	}
	idx := indexOf(agents, id)
	if idx < 0 {
		return nil, fmt.Errorf("agent %s: %w", id, common.ErrAgentNotFound)
	}
	agent := agents[idx]
	return &agent, nil
}

// SchemaVersion exposes the store's current schema stamp.
func (s *Store) SchemaVersion() int { return s.doc.SchemaVersion() }

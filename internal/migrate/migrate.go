// Package migrate runs ordered schema migrations over an encrypted document
// store. The schema version lives inside the document itself under
// docstore.VersionKey, so it is covered by the same encryption and the same
// atomic rewrite as the data it describes.
package migrate

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

// Migration is one schema step. Versions start at 1 and must be registered
// consecutively; shipped steps are never renumbered or reordered.
type Migration struct {
	Version int
	Name    string
	Apply   func(doc docstore.Document) error
}

// StepError reports which migration step failed. It matches
// common.ErrMigrationFailed via errors.Is and exposes the step through
// errors.As.
type StepError struct {
	Version int
	Name    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration %d (%s): %v", e.Version, e.Name, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{common.ErrMigrationFailed, e.Err}
}

// Run brings the store up to the latest registered version.
//
// Rules:
//   - The registered set must be consecutive from 1; otherwise Run fails
//     with common.ErrMigrationGap before any step executes.
//   - A fresh store (no file yet) is stamped with the latest version and
//     persisted; no steps run against it.
//   - A store stamped newer than the latest registered version fails with
//     common.ErrFutureVersion; its data is left untouched.
//   - Pending steps run in order. After each step the new version stamp and
//     the transformed document are persisted together, so a crash between
//     steps resumes exactly where it stopped and no step ever runs twice.
//   - A failing step aborts the run with a StepError; the document keeps
//     the last successfully persisted state.
func Run(ctx context.Context, store *docstore.Store, migrations []Migration, log logging.Logger) error {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if len(migrations) == 0 {
		return nil
	}

	for i, m := range migrations {
		if m.Version != i+1 {
			return fmt.Errorf("%w: position %d holds version %d, want %d",
				common.ErrMigrationGap, i, m.Version, i+1)
		}
		if m.Apply == nil {
			return fmt.Errorf("%w: version %d has no apply func", common.ErrMigrationGap, m.Version)
		}
	}
	latest := migrations[len(migrations)-1].Version

	if store.Fresh() {
		store.Doc()[docstore.VersionKey] = latest
		if err := store.SaveNow(); err != nil {
			return fmt.Errorf("stamp fresh store: %w", err)
		}
		log.Info(ctx, "initialized fresh store", "file", store.Path(), "version", latest)
		return nil
	}

	current := store.SchemaVersion()
	if current > latest {
		return fmt.Errorf("%w: store %s is at version %d, latest known is %d",
			common.ErrFutureVersion, store.Path(), current, latest)
	}
	if current == latest {
		log.Debug(ctx, "store up to date", "file", store.Path(), "version", current)
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.Apply(store.Doc()); err != nil {
			return &StepError{Version: m.Version, Name: m.Name, Err: err}
		}
		store.Doc()[docstore.VersionKey] = m.Version
		if err := store.SaveNow(); err != nil {
			return &StepError{Version: m.Version, Name: m.Name, Err: err}
		}
		log.Info(ctx, "migration applied", "file", store.Path(), "version", m.Version, "name", m.Name)
	}

	return nil
}

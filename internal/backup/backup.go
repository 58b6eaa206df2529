// Package backup creates, lists, restores and prunes snapshots of the
// encrypted store files. A snapshot is a timestamped directory of exact
// byte copies; the timestamp format is fixed width, so sorting names
// lexicographically sorts snapshots chronologically.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/filex"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

const (
	namePrefix = "backup-"
	// nameTimeFormat keeps nanoseconds so rapid successive snapshots get
	// distinct, still sortable names.
	nameTimeFormat = "20060102T150405.000000000"
)

// DefaultRetention is how many snapshots are kept when nothing else is
// configured.
const DefaultRetention = 7

// Info describes one snapshot.
type Info struct {
	Name      string
	CreatedAt time.Time
	Files     int
	Size      int64
}

type Manager struct {
	baseDir   string
	dir       string
	retention int
	log       logging.Logger

	// seam for tests
	now func() time.Time
}

// NewManager creates a manager over <baseDir>/backups. retention <= 0
// disables pruning.
func NewManager(baseDir string, retention int, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Manager{
		baseDir:   baseDir,
		dir:       filepath.Join(baseDir, common.BackupDirName),
		retention: retention,
		log:       log,
		now:       time.Now,
	}
}

// Dir returns the snapshot root directory.
func (m *Manager) Dir() string { return m.dir }

// snapshotFiles is everything a snapshot covers: the three stores plus the
// key file, so a restored snapshot stays decryptable.
func snapshotFiles() []string {
	return append(append([]string{}, common.StoreFileNames...), common.KeyFileName)
}

// Create takes a new snapshot. Store files missing from the base directory
// are skipped with a warning; an entirely empty base directory is an error.
// After a successful snapshot, retention pruning runs; prune failures are
// logged but never fail the backup.
func (m *Manager) Create(ctx context.Context) (*Info, error) {
	if err := filex.EnsureDir(m.dir); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBackupFailed, err)
	}

	createdAt := m.now().UTC()
	name := namePrefix + createdAt.Format(nameTimeFormat)
	snapDir := filepath.Join(m.dir, name)

	if err := os.Mkdir(snapDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBackupFailed, err)
	}

	info := &Info{Name: name, CreatedAt: createdAt}
	for _, f := range snapshotFiles() {
		src := filepath.Join(m.baseDir, f)
		fi, err := os.Stat(src)
		if os.IsNotExist(err) {
			m.log.Warn(ctx, "file missing, skipping in backup", "file", f)
			continue
		}
		if err == nil {
			err = filex.CopyFile(src, filepath.Join(snapDir, f))
		}
		if err != nil {
			// leave no half-written snapshot behind
			if rmErr := os.RemoveAll(snapDir); rmErr != nil {
				m.log.Warn(ctx, "could not remove partial snapshot", "name", name, "error", rmErr)
			}
			return nil, fmt.Errorf("%w: %s: %v", common.ErrBackupFailed, f, err)
		}
		info.Files++
		info.Size += fi.Size()
	}

	if info.Files == 0 {
		_ = os.Remove(snapDir)
		return nil, fmt.Errorf("%w: nothing to back up", common.ErrBackupFailed)
	}

	m.log.Info(ctx, "backup created", "name", name, "files", info.Files, "bytes", info.Size)

	if removed, err := m.Prune(); err != nil {
		m.log.Warn(ctx, "retention pruning failed", "error", err)
	} else if removed > 0 {
		m.log.Info(ctx, "old backups pruned", "removed", removed)
	}

	return info, nil
}

// List returns all snapshots, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		createdAt, err := time.Parse(nameTimeFormat, strings.TrimPrefix(e.Name(), namePrefix))
		if err != nil {
			continue
		}

		info := Info{Name: e.Name(), CreatedAt: createdAt}
		if files, err := os.ReadDir(filepath.Join(m.dir, e.Name())); err == nil {
			for _, f := range files {
				if fi, err := f.Info(); err == nil && fi.Mode().IsRegular() {
					info.Files++
					info.Size += fi.Size()
				}
			}
		}
		infos = append(infos, info)
	}

	// fixed-width timestamps: newer names sort later
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name > infos[j].Name })
	return infos, nil
}

// validateName rejects anything that could escape the snapshot root.
func validateName(name string) error {
	if !strings.HasPrefix(name, namePrefix) ||
		strings.ContainsAny(name, `/\`) ||
		strings.Contains(name, "..") {
		return fmt.Errorf("%w: invalid backup name %q", common.ErrRestoreFailed, name)
	}
	return nil
}

// Restore copies every file of the named snapshot over the live files.
// Each file is replaced atomically, whole-file; nothing is merged. Callers
// must reload any open stores afterwards.
func (m *Manager) Restore(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	snapDir := filepath.Join(m.dir, name)
	entries, err := os.ReadDir(snapDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("backup %s: %w", name, common.ErrBackupNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRestoreFailed, err)
	}

	restored := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(snapDir, e.Name()))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", common.ErrRestoreFailed, e.Name(), err)
		}
		if err := filex.WriteFileAtomic(filepath.Join(m.baseDir, e.Name()), data, 0o600); err != nil {
			return fmt.Errorf("%w: %s: %v", common.ErrRestoreFailed, e.Name(), err)
		}
		restored++
	}
	if restored == 0 {
		return fmt.Errorf("%w: snapshot %s is empty", common.ErrRestoreFailed, name)
	}

	m.log.Info(ctx, "backup restored", "name", name, "files", restored)
	return nil
}

// Delete removes one snapshot.
func (m *Manager) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	snapDir := filepath.Join(m.dir, name)
	if _, err := os.Stat(snapDir); os.IsNotExist(err) {
		return fmt.Errorf("backup %s: %w", name, common.ErrBackupNotFound)
	}
	return os.RemoveAll(snapDir)
}

// Prune removes the oldest snapshots beyond the retention limit and
// returns how many were removed.
func (m *Manager) Prune() (int, error) {
	if m.retention <= 0 {
		return 0, nil
	}

	infos, err := m.List()
	if err != nil {
		return 0, err
	}
	if len(infos) <= m.retention {
		return 0, nil
	}

	removed := 0
	var errs []error
	for _, victim := range infos[m.retention:] {
		if err := os.RemoveAll(filepath.Join(m.dir, victim.Name)); err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", victim.Name, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

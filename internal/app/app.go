// Package app wires the persistence stack together: base directory, single
// instance lock, encryption key, the three encrypted stores with their
// migrations, and the backup manager. The CLI talks to an App; packages
// below this one never see each other.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/dmitrijs2005/chatkeeper/internal/agents"
	"github.com/dmitrijs2005/chatkeeper/internal/backup"
	"github.com/dmitrijs2005/chatkeeper/internal/chats"
	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/config"
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/filex"
	"github.com/dmitrijs2005/chatkeeper/internal/keyring"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
	"github.com/dmitrijs2005/chatkeeper/internal/migrate"
	"github.com/dmitrijs2005/chatkeeper/internal/settings"
)

type App struct {
	cfg *config.Config
	log logging.Logger

	lock         *flock.Flock
	key          *keyring.Key
	keyPersisted bool

	settingsDoc *docstore.Store
	chatsDoc    *docstore.Store
	agentsDoc   *docstore.Store

	settingStore *settings.Store
	chatStore    *chats.Store
	agentStore   *agents.Store
	backupMgr    *backup.Manager

	cancelScheduler context.CancelFunc
	wg              sync.WaitGroup
	closeOnce       sync.Once
}

// New brings the whole stack up. Order matters: the directory must exist
// before the lock, the lock before the key, the key before the stores.
// A second instance on the same base dir fails with ErrAlreadyRunning.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	if err := filex.EnsureDir(cfg.BaseDir); err != nil {
		return nil, fmt.Errorf("base dir init error: %w", err)
	}

	a := &App{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	a.lock = flock.New(filepath.Join(cfg.BaseDir, common.LockFileName))
	locked, err := a.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock error: %w", err)
	}
	if !locked {
		a.lock = nil
		return nil, fmt.Errorf("base dir %s: %w", cfg.BaseDir, common.ErrAlreadyRunning)
	}

	a.key, a.keyPersisted, err = keyring.NewManager(cfg.BaseDir, log).Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("key init error: %w", err)
	}

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}

	a.backupMgr = backup.NewManager(cfg.BaseDir, cfg.BackupRetention, log)

	log.Info(ctx, "app initialized",
		"baseDir", cfg.BaseDir,
		"keyFingerprint", a.key.Fingerprint(),
		"keyPersisted", a.keyPersisted)

	ok = true
	return a, nil
}

// openStores opens the three encrypted documents, migrates each to its
// current schema and seeds the stores that must never be empty.
func (a *App) openStores(ctx context.Context) error {
	var err error
	a.settingsDoc, err = a.openStore(ctx, common.SettingsFileName, settings.Migrations())
	if err != nil {
		return err
	}
	a.chatsDoc, err = a.openStore(ctx, common.ChatsFileName, chats.Migrations())
	if err != nil {
		return err
	}
	a.agentsDoc, err = a.openStore(ctx, common.AgentsFileName, agents.Migrations())
	if err != nil {
		return err
	}

	a.settingStore = settings.New(a.settingsDoc, a.log)
	a.chatStore = chats.New(a.chatsDoc, a.log)
	a.agentStore = agents.New(a.agentsDoc, a.log)

	if err := a.chatStore.EnsureSeed(ctx); err != nil {
		return fmt.Errorf("seed chats: %w", err)
	}
	if err := a.agentStore.EnsureSeed(ctx); err != nil {
		return fmt.Errorf("seed agents: %w", err)
	}
	return nil
}

func (a *App) openStore(ctx context.Context, name string, migrations []migrate.Migration) (*docstore.Store, error) {
	ds, err := docstore.Open(filepath.Join(a.cfg.BaseDir, name), a.key, a.log)
	if err != nil {
		return nil, err
	}
	if err := migrate.Run(ctx, ds, migrations, a.log); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", name, err)
	}
	return ds, nil
}

func (a *App) Settings() *settings.Store { return a.settingStore }
func (a *App) Chats() *chats.Store       { return a.chatStore }
func (a *App) Agents() *agents.Store     { return a.agentStore }
func (a *App) Backups() *backup.Manager  { return a.backupMgr }

func (a *App) BaseDir() string { return a.cfg.BaseDir }

// KeyFingerprint identifies the active encryption key without exposing it.
func (a *App) KeyFingerprint() string { return a.key.Fingerprint() }

// KeyPersisted reports whether the key file exists on disk. False means the
// app runs on the legacy fallback secret and data is obfuscated rather than
// individually keyed.
func (a *App) KeyPersisted() bool { return a.keyPersisted }

// StartBackupScheduler spawns the periodic snapshot goroutine. A
// non-positive interval disables scheduling. Close stops the goroutine.
func (a *App) StartBackupScheduler(ctx context.Context) {
	if a.cfg.BackupInterval <= 0 {
		a.log.Debug(ctx, "backup scheduler disabled")
		return
	}

	ctx, a.cancelScheduler = context.WithCancel(ctx)
	s := backup.NewScheduler(a.backupMgr, a.cfg.BackupInterval, a.log)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		s.Run(ctx)
	}()
}

// RestoreBackup replaces the live store files with the named snapshot, then
// reloads every open store in place, so wrappers handed out earlier keep
// working. A snapshot taken on an older schema comes up migrated, and the
// seed guarantees hold again afterwards.
func (a *App) RestoreBackup(ctx context.Context, name string) error {
	if err := a.backupMgr.Restore(ctx, name); err != nil {
		return err
	}

	reload := []struct {
		ds         *docstore.Store
		migrations []migrate.Migration
	}{
		{a.settingsDoc, settings.Migrations()},
		{a.chatsDoc, chats.Migrations()},
		{a.agentsDoc, agents.Migrations()},
	}
	for _, r := range reload {
		if err := r.ds.Reload(); err != nil {
			return fmt.Errorf("reload after restore: %w", err)
		}
		if err := migrate.Run(ctx, r.ds, r.migrations, a.log); err != nil {
			return fmt.Errorf("migrate after restore: %w", err)
		}
	}

	if err := a.chatStore.EnsureSeed(ctx); err != nil {
		return fmt.Errorf("seed chats: %w", err)
	}
	if err := a.agentStore.EnsureSeed(ctx); err != nil {
		return fmt.Errorf("seed agents: %w", err)
	}

	a.log.Info(ctx, "restore complete", "name", name)
	return nil
}

// Close stops the scheduler, wipes the key and releases the instance lock.
// Safe to call more than once and on a partially initialized App.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.cancelScheduler != nil {
			a.cancelScheduler()
		}
		a.wg.Wait()

		if a.key != nil {
			a.key.Destroy()
		}
		if a.lock != nil {
			err = a.lock.Unlock()
		}
	})
	return err
}

// Package common defines shared constants and sentinel errors used across
// ChatKeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Key lifecycle errors.
	ErrKeyWriteFailed = errors.New("key file write failed")

	// Store-level errors.
	ErrStoreCorrupt = errors.New("store corrupt or wrong key")
	ErrNotFound     = errors.New("not found")

	// Migration errors.
	ErrMigrationGap    = errors.New("migration sequence gap")
	ErrMigrationFailed = errors.New("migration step failed")
	ErrFutureVersion   = errors.New("schema version newer than supported")

	// Chat-specific errors.
	ErrCannotDeleteLastChat = errors.New("cannot delete the last chat")
	ErrChatNotFound         = errors.New("chat not found")
	ErrInvalidName          = errors.New("invalid name")
	ErrInvalidRole          = errors.New("invalid message role")
	ErrNoIDs                = errors.New("no ids specified")

	// Agent-specific errors.
	ErrAgentNotFound = errors.New("agent not found")
	ErrBuiltinAgent  = errors.New("builtin agents cannot be modified")

	// Backup errors.
	ErrBackupFailed   = errors.New("backup failed")
	ErrRestoreFailed  = errors.New("restore failed")
	ErrBackupNotFound = errors.New("backup not found")

	// Lifecycle errors.
	ErrAlreadyRunning = errors.New("another instance is already running")
)

package common

// AppDirName is the directory under the user config dir that holds all
// application state.
const AppDirName = "chatkeeper"

// File and directory names inside the base directory. Components resolve
// paths against these so the on-disk layout is defined in one place.
const (
	KeyFileName      = "encryption.key"
	SettingsFileName = "config.json"
	ChatsFileName    = "chats.json"
	AgentsFileName   = "agents.json"
	LockFileName     = ".lock"
	BackupDirName    = "backups"
)

// StoreFileNames lists every encrypted store file, in backup order.
var StoreFileNames = []string{SettingsFileName, ChatsFileName, AgentsFileName}

package cli

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
)

func init() {
	color.NoColor = true
}

// execute runs one chatkeeper invocation against dir and returns everything
// it printed. Logs are pushed down to error level so output assertions see
// only command output.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	for _, name := range []string{"CHATKEEPER_BASE_DIR", "CHATKEEPER_BACKUP_RETENTION", "CHATKEEPER_BACKUP_INTERVAL", "CHATKEEPER_LOG_LEVEL"} {
		t.Setenv(name, "")
	}

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--base-dir", dir, "--log-level", "error"}, args...))

	err := root.Execute()
	return buf.String(), err
}

// mustExecute is execute for invocations the test requires to succeed.
func mustExecute(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := execute(t, dir, args...)
	require.NoError(t, err, "output: %s", out)
	return out
}

var idInParens = regexp.MustCompile(`\(([0-9a-f-]+)\)`)

// createdID pulls the generated id out of "Created ... (<id>)" output.
func createdID(t *testing.T, out string) string {
	t.Helper()
	m := idInParens.FindStringSubmatch(out)
	require.NotNil(t, m, "no id in output: %s", out)
	return m[1]
}

func TestStatusCommand(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "status")

	assert.Contains(t, out, "ChatKeeper")
	assert.Contains(t, out, "(key file)")
	assert.Contains(t, out, "settings v3, chats v2, agents v1")
	assert.Contains(t, out, "Chats:     1")
	assert.Contains(t, out, "Agents:    3")
	assert.Contains(t, out, "Backups:   none")
}

func TestChatsCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "chats", "create", "Project", "X")
	assert.Contains(t, out, `Created "Project X"`)
	id := createdID(t, out)

	out = mustExecute(t, dir, "chats", "list")
	assert.Contains(t, out, "Chat 1")
	assert.Contains(t, out, "*   Project X", "new chat becomes current")

	out = mustExecute(t, dir, "chats", "rename", id, "Project", "Y")
	assert.Contains(t, out, `Renamed to "Project Y"`)

	out = mustExecute(t, dir, "chats", "star", id)
	assert.Contains(t, out, "Starred")
	out = mustExecute(t, dir, "chats", "list")
	assert.Contains(t, out, "★")

	mustExecute(t, dir, "chats", "delete", id)
	out = mustExecute(t, dir, "chats", "list")
	assert.NotContains(t, out, "Project Y")

	// the last chat is protected
	m := regexp.MustCompile(`Chat 1  (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	_, err := execute(t, dir, "chats", "delete", m[1])
	require.ErrorIs(t, err, common.ErrCannotDeleteLastChat)
}

func TestMsgCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "msg", "add", "user", "hello", "world")
	m := regexp.MustCompile(`Added (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	msgID := m[1]

	mustExecute(t, dir, "msg", "add", "assistant", "hi there")

	out = mustExecute(t, dir, "chats", "show")
	assert.Contains(t, out, "[user] hello world")
	assert.Contains(t, out, "[assistant] hi there")

	out = mustExecute(t, dir, "msg", "rm", msgID)
	assert.Contains(t, out, "Removed 1 of 1")

	out = mustExecute(t, dir, "chats", "show")
	assert.NotContains(t, out, "hello world")
	assert.Contains(t, out, "hi there")

	_, err := execute(t, dir, "msg", "add", "robot", "bad role")
	require.ErrorIs(t, err, common.ErrInvalidRole)

	out = mustExecute(t, dir, "chats", "clear")
	assert.Contains(t, out, "Cleared")
	out = mustExecute(t, dir, "chats", "show")
	assert.NotContains(t, out, "hi there")
}

func TestAgentsCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "agents", "list")
	assert.Contains(t, out, "(builtin)")
	assert.Contains(t, out, "* 🤖 Assistant")

	out = mustExecute(t, dir, "agents", "create", "Pirate", "--emoji", "🏴", "--desc", "talks like a pirate")
	assert.Contains(t, out, "Created 🏴 Pirate")
	id := createdID(t, out)

	mustExecute(t, dir, "agents", "use", id)
	out = mustExecute(t, dir, "agents", "list")
	assert.Contains(t, out, "* 🏴 Pirate")
	assert.Contains(t, out, "talks like a pirate")

	// deleting the selected custom persona falls back to the default
	mustExecute(t, dir, "agents", "delete", id)
	out = mustExecute(t, dir, "agents", "list")
	assert.Contains(t, out, "* 🤖 Assistant")
	assert.NotContains(t, out, "Pirate")

	_, err := execute(t, dir, "agents", "delete", "builtin-coder")
	require.ErrorIs(t, err, common.ErrBuiltinAgent)
}

func TestSettingsCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "settings", "get")
	assert.Contains(t, out, "Provider:   local")
	assert.Contains(t, out, "Model:      (not set)")
	assert.Contains(t, out, "First run:  true")
	assert.Contains(t, out, "API keys:   (none)")

	mustExecute(t, dir, "settings", "set", "model", "llama3")
	mustExecute(t, dir, "settings", "set", "window.width", "1200")
	mustExecute(t, dir, "settings", "complete-setup")

	out = mustExecute(t, dir, "settings", "get")
	assert.Contains(t, out, "Model:      llama3")
	assert.Contains(t, out, "First run:  false")

	out = mustExecute(t, dir, "settings", "get", "window.width")
	assert.Equal(t, "1200\n", out)

	_, err := execute(t, dir, "settings", "get", "window.height")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSettingsSetKey(t *testing.T) {
	dir := t.TempDir()

	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte("sk-test-123"), nil }
	t.Cleanup(func() { readPassword = orig })

	out := mustExecute(t, dir, "settings", "set-key", "openai")
	assert.Contains(t, out, "Stored key for openai")
	assert.NotContains(t, out, "sk-test-123")

	out = mustExecute(t, dir, "settings", "get")
	assert.Contains(t, out, "API keys:   openai")

	out = mustExecute(t, dir, "settings", "set-key", "openai", "--delete")
	assert.Contains(t, out, "Removed key for openai")

	out = mustExecute(t, dir, "settings", "get")
	assert.Contains(t, out, "API keys:   (none)")
}

func TestBackupCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "backup", "create")
	assert.Contains(t, out, "Created backup-")
	name := regexp.MustCompile(`backup-\S+`).FindString(out)

	out = mustExecute(t, dir, "backup", "list")
	assert.Contains(t, out, name)

	// mutate, then roll back
	mustExecute(t, dir, "chats", "create", "Doomed")
	out = mustExecute(t, dir, "backup", "restore", name, "--yes")
	assert.Contains(t, out, "Restored "+name)
	out = mustExecute(t, dir, "chats", "list")
	assert.NotContains(t, out, "Doomed")

	mustExecute(t, dir, "backup", "delete", name)
	out = mustExecute(t, dir, "backup", "list")
	assert.Contains(t, out, "No backups yet")
}

func TestBackupRestore_ConfirmationDeclined(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "backup", "create")
	name := regexp.MustCompile(`backup-\S+`).FindString(out)

	// declining at the prompt leaves the stores untouched
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(bytes.NewBufferString("n\n"))
	root.SetArgs([]string{"--base-dir", dir, "--log-level", "error", "backup", "restore", name})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Aborted")
}

func TestKeyShowCommand(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "key", "show")
	assert.Contains(t, out, "Fingerprint:")
	assert.Contains(t, out, common.KeyFileName)
	assert.Contains(t, out, "per-installation key file")
}

func TestVersionCommand(t *testing.T) {
	out := mustExecute(t, t.TempDir(), "version")
	assert.Contains(t, out, "Build version:")
}

func TestUnknownChat(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "chats", "delete", "no-such-id")
	require.ErrorIs(t, err, common.ErrChatNotFound)
}

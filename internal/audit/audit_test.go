package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLine(t *testing.T) {
	dir := t.TempDir()
	errPath := filepath.Join(dir, "errors.log")
	l := New(errPath, "", nil)

	l.Error("login", "challenge token mismatch")
	l.Error("store", "insert failed")

	b, err := os.ReadFile(errPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\]\[login\] challenge token mismatch$`, lines[0])
	assert.Contains(t, lines[1], "[store] insert failed")
}

func TestUserEventLine(t *testing.T) {
	dir := t.TempDir()
	eventPath := filepath.Join(dir, "users.log")
	l := New("", eventPath, nil)

	l.UserEvent(EventConnect, Snapshot{ID: 7, Surname: "Rossi", GivenName: "Mario", Email: "mario.rossi@example.com", Level: 5})

	b, err := os.ReadFile(eventPath)
	require.NoError(t, err)
	line := strings.TrimRight(string(b), "\n")
	assert.Regexp(t, `^CONNECT \| ID:7 \| Rossi \| Mario \| mario\.rossi@example\.com \| LV:5 \| \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, line)
}

func TestEmptyPathsAreNoop(t *testing.T) {
	l := New("", "", nil)
	l.Error("x", "y")
	l.UserEvent(EventDisconnect, Snapshot{})
}

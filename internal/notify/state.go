// Package notify watches the filesystem state inputs at ~/.spc/... (§6) and
// keeps an in-memory cache of their contents current, so tool handlers can
// read role/project/session context without a disk round-trip on every call
// while still reflecting edits made by other processes without a restart.
package notify

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
)

// StateCache holds the latest-known values of the ~/.spc state inputs.
// The zero value is empty and safe to read; Refresh performs one synchronous
// read of all three inputs, and a StateWatcher can keep it current
// thereafter. Reading before any Refresh/watcher update simply returns "",
// matching the best-effort, missing-file-is-empty-string contract (§6).
type StateCache struct {
	mu        sync.RWMutex
	role      string
	project   string
	sessionID string
}

// NewStateCache creates an empty cache and performs one synchronous read so
// the first tool call already sees current values even before a watcher (if
// any) is started.
func NewStateCache() *StateCache {
	c := &StateCache{}
	c.Refresh()
	return c
}

// CurrentRole returns the cached ~/.spc/projects/state/current_role value.
func (c *StateCache) CurrentRole() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// ActiveProject returns the cached ~/.spc/active_project "name" field.
func (c *StateCache) ActiveProject() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.project
}

// SessionID returns the cached ~/.spc/projects/state/session_id value.
func (c *StateCache) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Refresh re-reads all three state inputs from disk, best-effort. A missing
// or unparsable file yields the empty string for that field rather than an
// error (§6).
func (c *StateCache) Refresh() {
	role := readTrimmedFile(spcStatePath(rolePath))
	sessionID := readTrimmedFile(spcStatePath(sessionIDPath))
	project := readActiveProject(spcStatePath(activeProjectPath))

	c.mu.Lock()
	c.role = role
	c.sessionID = sessionID
	c.project = project
	c.mu.Unlock()
}

const (
	rolePath          = "projects/state/current_role"
	sessionIDPath     = "projects/state/session_id"
	activeProjectPath = "active_project"
)

func spcStatePath(rel string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.spc/" + rel
}

func readTrimmedFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readActiveProject(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Name
}

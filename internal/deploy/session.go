package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagebridge/pagebridge/internal/pages"
)

// Session holds all mutable state for one deployment invocation: the resolved
// API endpoint, the installation identifier, the run-scoped scratch project
// name, the cached temporary credentials, and the run log. It is passed
// explicitly through the call chain; nothing here lives at package level.
type Session struct {
	Token       string
	ProjectName string
	Environment string
	Endpoint    string
	InstallID   string
	Debug       bool

	ScratchProject string
	Log            *RunLog

	creds *pages.TempCredentials
}

// NewSession creates a session and immediately begins a fresh run.
func NewSession(token, projectName, environment string, debug bool) *Session {
	s := &Session{
		Token:       token,
		ProjectName: projectName,
		Environment: environment,
		InstallID:   installationID(),
		Debug:       debug,
		Log:         NewRunLog(),
	}
	s.BeginRun()
	return s
}

// BeginRun resets the per-run state: cached credentials, scratch project name,
// and log buffer. The credential cache is cleared at run start rather than run
// end so a crash mid-run cannot leave credentials assumed valid for the next
// run.
func (s *Session) BeginRun() {
	s.creds = nil
	s.ScratchProject = fmt.Sprintf("mcp%d", time.Now().Unix())
	s.Log.Reset()
}

// TargetProjectName returns the configured project name, or the run's scratch
// project name when none is configured.
func (s *Session) TargetProjectName() string {
	if s.ProjectName != "" {
		return s.ProjectName
	}
	return s.ScratchProject
}

// installationID reads the persistent installation identifier from its
// temp-directory marker file, regenerating it when the file is unreadable.
// A failed write is best-effort and never escalates.
func installationID() string {
	dir := filepath.Join(os.TempDir(), "pagebridge")
	marker := filepath.Join(dir, "install-id")

	if content, err := os.ReadFile(marker); err == nil {
		if id := strings.TrimSpace(string(content)); id != "" {
			return id
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0o755); err == nil {
		_ = os.WriteFile(marker, []byte(id+"\n"), 0o644)
	}
	return id
}

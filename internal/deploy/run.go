package deploy

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pagebridge/pagebridge/internal/errkind"
	"github.com/pagebridge/pagebridge/internal/pages"
)

// RunOptions configure one end-to-end deployment run as invoked from a tool
// handler or the CLI.
type RunOptions struct {
	// Path is the local directory or zip archive to deploy. Exactly one of
	// Path and HTML must be set.
	Path string
	// HTML is raw HTML (or plain text) to publish; it is materialized as
	// index.html in a scratch directory and deployed like any folder.
	HTML string

	Token       string
	ProjectName string
	Environment string
	BaseURL     string // skips endpoint probing when set
	Timeout     time.Duration
	Debug       bool
}

// Run performs one deployment: endpoint resolution, session setup, and the
// full orchestration. The returned session carries the run transcript even
// when the run fails.
func Run(ctx context.Context, opts RunOptions) (*Result, *Session, error) {
	session := NewSession(opts.Token, opts.ProjectName, opts.Environment, opts.Debug)

	if opts.Token == "" {
		return nil, session, errkind.New(errkind.Configuration, "missing API token: set --token or PAGEBRIDGE_API_TOKEN")
	}

	path := opts.Path
	if opts.HTML != "" {
		dir, err := materializeHTML(opts.HTML)
		if err != nil {
			return nil, session, err
		}
		defer os.RemoveAll(dir)
		path = dir
	}

	endpoint := opts.BaseURL
	if endpoint == "" {
		resolved, err := pages.ResolveEndpoint(ctx, opts.Token, opts.Debug)
		if err != nil {
			return nil, session, errkind.Wrap(errkind.Configuration, err, "failed to resolve API endpoint")
		}
		endpoint = resolved
	}
	session.Endpoint = endpoint
	session.Log.Infof("using endpoint %s", endpoint)

	client := pages.NewClient(opts.Token, endpoint, session.InstallID, opts.Debug)
	orchestrator := NewOrchestrator(client, session)

	result, err := orchestrator.Run(ctx, Options{
		Path:        path,
		Environment: opts.Environment,
		Deadline:    opts.Timeout,
	})
	if err != nil {
		session.Log.Errorf("deployment failed: %v", err)
		return nil, session, err
	}

	return result, session, nil
}

// materializeHTML writes content as index.html in a fresh scratch directory.
func materializeHTML(content string) (string, error) {
	dir, err := os.MkdirTemp("", "pagebridge-html-*")
	if err != nil {
		return "", errkind.Wrap(errkind.Validation, err, "failed to create scratch directory")
	}

	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(content), 0o644); err != nil {
		os.RemoveAll(dir)
		return "", errkind.Wrap(errkind.Validation, err, "failed to write index.html")
	}

	return dir, nil
}

package deploy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pagebridge/pagebridge/internal/errkind"
	"github.com/pagebridge/pagebridge/internal/pages"
	"github.com/pagebridge/pagebridge/internal/storage"
)

// Default pacing for the deployment status poll. The remote apply step is
// asynchronous with no push notification; polling is the only observability
// channel.
const (
	defaultInitialDelay = 3 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultPollDeadline = 10 * time.Minute
)

// Options configure one orchestration run.
type Options struct {
	// Path is the local artifact: a directory or a .zip archive.
	Path string
	// Environment is Production or Preview; empty defaults to Production.
	Environment string
	// InitialDelay is the grace period before the first status poll.
	InitialDelay time.Duration
	// PollInterval is the fixed wait between polls. No backoff.
	PollInterval time.Duration
	// Deadline bounds the whole poll phase; expiry is a timeout error.
	Deadline time.Duration
}

func (o *Options) applyDefaults() {
	if o.Environment == "" {
		o.Environment = pages.EnvProduction
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = defaultInitialDelay
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.Deadline <= 0 {
		o.Deadline = defaultPollDeadline
	}
}

// Result is the structured outcome of a successful run.
type Result struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	ConsoleURL  string `json:"consoleUrl"`
}

// URL types.
const (
	URLTypeCustom    = "custom"
	URLTypeTemporary = "temporary"
)

// Orchestrator runs the deployment state machine: upload, project
// resolution, deployment creation, status polling, and URL resolution. Each
// stage depends on the previous stage's output; no stage retries, and any
// failure aborts the run.
type Orchestrator struct {
	client  *pages.Client
	session *Session
	broker  *Broker

	// uploadFn is replaceable in tests to avoid real storage traffic.
	uploadFn func(ctx context.Context, creds storage.Credentials, localPath string) (string, error)
}

// NewOrchestrator creates an orchestrator bound to a session.
func NewOrchestrator(client *pages.Client, session *Session) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		session: session,
		broker:  NewBroker(client, session),
	}
	o.uploadFn = func(ctx context.Context, creds storage.Credentials, localPath string) (string, error) {
		uploader, err := storage.NewUploader(ctx, creds, session.Debug)
		if err != nil {
			return "", err
		}
		return uploader.Upload(ctx, localPath)
	}
	return o
}

// Run executes one end-to-end deployment and returns the structured result.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	opts.applyDefaults()
	log := o.session.Log

	if _, err := storage.ValidateArtifact(opts.Path); err != nil {
		return nil, err
	}
	isZip := storage.IsZipPath(opts.Path)

	// Uploading
	log.Infof("uploading %s", opts.Path)
	creds, err := o.broker.TempCredentials(ctx)
	if err != nil {
		return nil, err
	}
	remotePath, err := o.uploadFn(ctx, storage.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SecurityToken:   creds.SecurityToken,
		Bucket:          creds.Bucket,
		Region:          creds.Region,
		Prefix:          creds.Prefix,
	}, opts.Path)
	if err != nil {
		return nil, err
	}
	log.Infof("uploaded to %s", remotePath)

	// ProjectResolving
	project, err := o.broker.GetOrCreateProject(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("using project %s (%s)", project.Name, project.ProjectID)

	// DeploymentCreating
	distType := pages.DistTypeFolder
	if isZip {
		distType = pages.DistTypeZip
	}
	deploymentID, err := o.client.CreateDeployment(ctx, pages.CreateDeploymentOptions{
		ProjectID:   project.ProjectID,
		RemotePath:  remotePath,
		DistType:    distType,
		Environment: opts.Environment,
	})
	if err != nil {
		return nil, wrapPagesError(err, "failed to create deployment")
	}
	log.Infof("created deployment %s (%s, %s)", deploymentID, distType, opts.Environment)

	// Polling
	deployment, err := o.pollDeployment(ctx, project.ProjectID, deploymentID, opts)
	if err != nil {
		return nil, err
	}
	log.Infof("deployment %s finished with status %s", deploymentID, deployment.Status)

	// Resolving
	return o.resolveResult(ctx, project.ProjectID, deployment)
}

// pollDeployment waits out the initial grace delay, then lists deployments at
// a fixed interval until the captured id leaves the in-flight status. The id
// disappearing from the listing is fatal, not transient.
func (o *Orchestrator) pollDeployment(ctx context.Context, projectID, deploymentID string, opts Options) (*pages.Deployment, error) {
	deadline := time.Now().Add(opts.Deadline)

	if err := sleepCtx(ctx, opts.InitialDelay); err != nil {
		return nil, err
	}

	for {
		deployments, err := o.client.DescribeDeployments(ctx, projectID)
		if err != nil {
			// Cancellation surfaces as a transport error when it lands
			// mid-request; report it as a timeout, not a remote failure.
			if ctx.Err() != nil {
				return nil, errkind.Wrap(errkind.Timeout, ctx.Err(), "deployment cancelled")
			}
			return nil, wrapPagesError(err, "failed to list deployments")
		}

		var found *pages.Deployment
		for i := range deployments {
			if deployments[i].DeploymentID == deploymentID {
				found = &deployments[i]
				break
			}
		}
		if found == nil {
			return nil, errkind.New(errkind.NotFound, "deployment %s disappeared from project %s", deploymentID, projectID)
		}

		if found.Status != pages.DeploymentStatusProcess {
			return found, nil
		}

		o.session.Log.Infof("deployment %s in progress", deploymentID)

		if time.Now().After(deadline) {
			return nil, errkind.New(errkind.Timeout, "deployment %s did not finish within %s", deploymentID, opts.Deadline)
		}
		if err := sleepCtx(ctx, opts.PollInterval); err != nil {
			return nil, err
		}
	}
}

// resolveResult re-fetches the project for current domain fields and derives
// the public URL. An active custom domain yields a permanent URL; otherwise a
// preview domain is gated behind a freshly fetched encipher token.
func (o *Orchestrator) resolveResult(ctx context.Context, projectID string, deployment *pages.Deployment) (*Result, error) {
	if deployment.Status != pages.DeploymentStatusSuccess {
		return nil, errkind.New(errkind.Upstream, "deployment failed with remote status %q", deployment.Status)
	}

	projects, err := o.client.DescribeProjects(ctx, "")
	if err != nil {
		return nil, wrapPagesError(err, "failed to re-fetch project")
	}
	var project *pages.Project
	for i := range projects {
		if projects[i].ProjectID == projectID {
			project = &projects[i]
			break
		}
	}
	if project == nil {
		return nil, errkind.New(errkind.NotFound, "project %s disappeared after deployment", projectID)
	}

	result := &Result{
		ProjectID:   project.ProjectID,
		ProjectName: project.Name,
		ConsoleURL:  pages.ConsoleURL(o.session.Endpoint),
	}

	for _, cd := range project.CustomDomains {
		if cd.Status == pages.DomainStatusPass {
			result.Type = URLTypeCustom
			result.URL = "https://" + cd.Domain
			return result, nil
		}
	}

	domain := stripScheme(deployment.PreviewURL)
	if domain == "" {
		domain = project.PresetDomain
	}
	if domain == "" {
		return nil, errkind.New(errkind.Upstream, "project %s has no domain to resolve", projectID)
	}

	token, err := o.client.DescribeEncipherToken(ctx, domain)
	if err != nil {
		return nil, wrapPagesError(err, "failed to fetch preview token")
	}

	result.Type = URLTypeTemporary
	result.URL = fmt.Sprintf("https://%s?token=%s&t=%d", domain, url.QueryEscape(token.Token), token.CreateTime)
	return result, nil
}

func stripScheme(rawURL string) string {
	s := strings.TrimPrefix(rawURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimSuffix(s, "/")
}

// sleepCtx sleeps for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errkind.Wrap(errkind.Timeout, ctx.Err(), "deployment cancelled")
	case <-timer.C:
		return nil
	}
}

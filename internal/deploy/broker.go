package deploy

import (
	"context"

	"github.com/pagebridge/pagebridge/internal/errkind"
	"github.com/pagebridge/pagebridge/internal/pages"
)

// Broker obtains short-lived storage credentials and resolves the target
// project for one run. Credentials are cached on the session so repeated
// calls within a run cost one remote round trip.
type Broker struct {
	client  *pages.Client
	session *Session
}

// NewBroker creates a broker bound to a session.
func NewBroker(client *pages.Client, session *Session) *Broker {
	return &Broker{client: client, session: session}
}

// TempCredentials returns temporary object storage credentials scoped to the
// run's target project. When a project name is configured the project must
// already exist and credentials are scoped to its id; otherwise credentials
// are requested for the scratch project name and the service provisions a
// project implicitly.
func (b *Broker) TempCredentials(ctx context.Context) (*pages.TempCredentials, error) {
	if b.session.creds != nil {
		return b.session.creds, nil
	}

	scope := pages.TempTokenScope{ProjectName: b.session.ScratchProject}
	if b.session.ProjectName != "" {
		project, err := b.findProjectByName(ctx, b.session.ProjectName)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, errkind.New(errkind.NotFound, "project %q does not exist", b.session.ProjectName)
		}
		scope = pages.TempTokenScope{ProjectID: project.ProjectID}
	}

	creds, err := b.client.DescribeCosTempToken(ctx, scope)
	if err != nil {
		return nil, errkind.Wrap(errkind.Upstream, err, "failed to get temporary credentials")
	}

	if creds.Bucket == "" || creds.Region == "" || creds.Prefix == "" {
		return nil, errkind.New(errkind.Upstream, "temporary credentials response is missing bucket, region, or prefix")
	}

	b.session.creds = creds
	return creds, nil
}

// GetOrCreateProject returns the run's target project, creating it when no
// project with the target name exists. Existing projects are returned
// unchanged. Creation re-fetches the project by the id returned from the
// create call, since the create response is not trusted for canonical status
// and domain fields.
func (b *Broker) GetOrCreateProject(ctx context.Context) (*pages.Project, error) {
	name := b.session.TargetProjectName()

	project, err := b.findProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if project != nil {
		return project, nil
	}

	b.session.Log.Infof("creating project %s", name)

	projectID, err := b.client.CreateProject(ctx, name)
	if err != nil {
		return nil, errkind.Wrap(errkind.Upstream, err, "failed to create project %q", name)
	}

	project, err = b.findProjectByID(ctx, name, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errkind.New(errkind.Upstream, "created project %s not found on re-fetch", projectID)
	}

	return project, nil
}

func (b *Broker) findProjectByName(ctx context.Context, name string) (*pages.Project, error) {
	projects, err := b.client.DescribeProjects(ctx, name)
	if err != nil {
		return nil, wrapPagesError(err, "failed to list projects")
	}

	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}
	return nil, nil
}

func (b *Broker) findProjectByID(ctx context.Context, name, projectID string) (*pages.Project, error) {
	projects, err := b.client.DescribeProjects(ctx, name)
	if err != nil {
		return nil, wrapPagesError(err, "failed to list projects")
	}

	for i := range projects {
		if projects[i].ProjectID == projectID {
			return &projects[i], nil
		}
	}
	return nil, nil
}

// wrapPagesError maps a Pages client error to the upstream kind, preserving
// an already-kinded error unchanged.
func wrapPagesError(err error, msg string) error {
	if errkind.KindOf(err) != "" {
		return err
	}
	return errkind.Wrap(errkind.Upstream, err, "%s", msg)
}

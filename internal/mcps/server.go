// Package mcps exposes the two deployment operations over the Model Context
// Protocol on stdio. Tool results are always text payloads; native errors
// never cross the protocol boundary.
package mcps

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/viper"

	"github.com/pagebridge/pagebridge/internal/deploy"
	"github.com/pagebridge/pagebridge/internal/pages"
)

// New builds the MCP server with both deployment tools registered.
func New(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pagebridge",
		version,
		server.WithToolCapabilities(false),
	)

	deployHTMLTool := mcp.NewTool("deploy_html",
		mcp.WithDescription("Publish raw HTML (or plain text) to Pages and return the public URL."),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("The HTML or text content to publish."),
		),
	)
	s.AddTool(deployHTMLTool, handleDeployHTML)

	deployFolderTool := mcp.NewTool("deploy_folder_or_zip",
		mcp.WithDescription("Deploy a pre-built local folder or zip archive to Pages and return the deployment result."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path to the built folder or zip archive."),
		),
	)
	s.AddTool(deployFolderTool, handleDeployFolderOrZip)

	return s
}

// Serve runs the server on stdio until the client disconnects.
func Serve(version string) error {
	return server.ServeStdio(New(version))
}

func handleDeployHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, session, runErr := deploy.Run(ctx, deploy.RunOptions{
		HTML:        value,
		Token:       pages.ResolveAPIToken(""),
		ProjectName: pages.ResolveProjectName(""),
		Environment: htmlEnvironment(),
		BaseURL:     pages.ResolveBaseURL(),
		Debug:       viper.GetBool("debug"),
	})
	if runErr != nil {
		return errorResult(runErr, session), nil
	}

	return mcp.NewToolResultText(result.URL), nil
}

func handleDeployFolderOrZip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, session, runErr := deploy.Run(ctx, deploy.RunOptions{
		Path:        path,
		Token:       pages.ResolveAPIToken(""),
		ProjectName: pages.ResolveProjectName(""),
		Environment: pages.ResolveEnvironment(""),
		BaseURL:     pages.ResolveBaseURL(),
		Debug:       viper.GetBool("debug"),
	})
	if runErr != nil {
		return errorResult(runErr, session), nil
	}

	text := deploy.NewFormatter().Render(ctx, result, session.Log)
	return mcp.NewToolResultText(text), nil
}

// htmlEnvironment returns the environment for HTML deploys. A configured
// environment wins; otherwise HTML snippets default to Preview rather than
// the Production default that folder deploys use.
func htmlEnvironment() string {
	return pages.ResolveEnvironmentOr("", pages.EnvPreview)
}

// errorResult renders a failed run as an error-flagged text payload carrying
// the captured transcript plus the failure message.
func errorResult(err error, session *deploy.Session) *mcp.CallToolResult {
	msg := err.Error()
	if session != nil {
		if transcript := session.Log.Transcript(); transcript != "" {
			msg = msg + "\n\n" + transcript
		}
	}
	return mcp.NewToolResultError(msg)
}

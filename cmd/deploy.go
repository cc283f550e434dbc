package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pagebridge/pagebridge/internal/deploy"
	"github.com/pagebridge/pagebridge/internal/pages"
)

var (
	deployPath    string
	deployTimeout time.Duration
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a built folder or zip archive to Pages",
	Long: `Deploy a pre-built local folder or zip archive to Pages without going
through an MCP client.

Examples:
  pagebridge deploy --path ./dist
  pagebridge deploy --path ./site.zip --environment Preview
  pagebridge deploy --path ./dist --project my-site --timeout 15m`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployPath, "path", "", "path to the built folder or zip archive (required)")
	deployCmd.Flags().DurationVar(&deployTimeout, "timeout", 10*time.Minute, "maximum time to wait for the deployment to finish")
	deployCmd.MarkFlagRequired("path")

	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	token := pages.ResolveAPIToken("")
	if token == "" {
		return fmt.Errorf("pages API token is required (set via --token, PAGEBRIDGE_API_TOKEN, or pages.token in config)")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	fmt.Printf("Deploying '%s'...\n", deployPath)

	result, session, err := deploy.Run(ctx, deploy.RunOptions{
		Path:        deployPath,
		Token:       token,
		ProjectName: pages.ResolveProjectName(""),
		Environment: pages.ResolveEnvironment(""),
		BaseURL:     pages.ResolveBaseURL(),
		Timeout:     deployTimeout,
		Debug:       viper.GetBool("debug"),
	})
	if err != nil {
		if transcript := session.Log.Transcript(); transcript != "" {
			fmt.Println(transcript)
		}
		return fmt.Errorf("failed to deploy: %w", err)
	}

	fmt.Printf("Deployed successfully!\n")
	fmt.Printf("URL: %s\n", result.URL)
	fmt.Printf("Project: %s (%s)\n", result.ProjectName, result.ProjectID)
	fmt.Printf("Console: %s\n", result.ConsoleURL)

	return nil
}

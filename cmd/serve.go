package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pagebridge/pagebridge/internal/mcps"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Run the MCP server exposing the deploy_html and deploy_folder_or_zip
tools over stdio. Configure it in an MCP client like:

  {
    "command": "pagebridge",
    "args": ["serve"],
    "env": { "PAGEBRIDGE_API_TOKEN": "..." }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcps.Serve(version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

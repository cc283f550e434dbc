package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "pagebridge",
	Version: version,
	Short:   "Deploy static sites to Pages from the terminal or an MCP client",
	Long: `Pagebridge publishes pre-built static artifacts to the Pages hosting
platform. It can run as an MCP server exposing deploy tools on stdio, or
deploy a folder or zip archive directly from the command line.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pagebridge.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output (shows API request lines)")
	rootCmd.PersistentFlags().String("token", "", "Pages API token (or set PAGEBRIDGE_API_TOKEN)")
	rootCmd.PersistentFlags().String("project", "", "fixed Pages project name (or set PAGEBRIDGE_PROJECT_NAME)")
	rootCmd.PersistentFlags().String("environment", "", "deploy environment: Production or Preview (or set PAGEBRIDGE_ENVIRONMENT)")

	// TODO: add error return here
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("pages.token", rootCmd.PersistentFlags().Lookup("token"))
	viper.BindPFlag("pages.project", rootCmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("pages.environment", rootCmd.PersistentFlags().Lookup("environment"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pagebridge")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

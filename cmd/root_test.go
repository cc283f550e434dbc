package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootHelpListsCommands(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	help := out.String()
	for _, want := range []string{"serve", "deploy"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q command", want)
		}
	}
}

func TestDeployRequiresPath(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"deploy"})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error when --path is missing")
	}
}

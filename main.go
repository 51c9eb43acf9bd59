package main

import (
	"os"

	"github.com/mrlokans/learncard/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	rootCmd := cli.NewRootCommand(Version + " (" + Commit + ")")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/sourcebook-ai/sourcebook/internal/cli"
	"github.com/sourcebook-ai/sourcebook/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sourcebookd",
		Short: "Sourcebook daemon",
		Long:  "Sourcebook daemon for ingesting content and answering questions over it",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

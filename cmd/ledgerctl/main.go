package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Content ledger CLI",
		Long: `Command line interface for a content ledger store.

Registers, forks and merges content directly against a store,
acting as the account given by --as.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("store", getEnv("LEDGER_STORE_URL", "sqlite://ledger.db"), "store url (memory://, badger://, sqlite://, postgres://, s3://)")
	rootCmd.PersistentFlags().String("as", getEnv("LEDGER_CALLER", os.Getenv("USER")), "account to act as")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log service activity to stderr")

	rootCmd.AddCommand(NewCreateCommand())
	rootCmd.AddCommand(NewForkCommand())
	rootCmd.AddCommand(NewMergeCommand())
	rootCmd.AddCommand(NewGetCommand())
	rootCmd.AddCommand(NewForksCommand())
	rootCmd.AddCommand(NewLineageCommand())

	return rootCmd
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

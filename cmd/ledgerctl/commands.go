package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tendant/content-ledger/pkg/contentledger"
	"github.com/tendant/content-ledger/pkg/contentledger/config"
)

type contentFlags struct {
	title       string
	description string
	metadataURI string
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "content title")
	cmd.Flags().StringVar(&f.description, "description", "", "content description")
	cmd.Flags().StringVar(&f.metadataURI, "metadata-uri", "", "metadata URI")
}

// NewCreateCommand creates the create command
func NewCreateCommand() *cobra.Command {
	var flags contentFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register new content owned by --as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, caller, err := serviceFromFlags(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			key, err := svc.Create(cmd.Context(), caller, contentledger.CreateContentRequest{
				Title:       flags.title,
				Description: flags.description,
				MetadataURI: flags.metadataURI,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// NewForkCommand creates the fork command
func NewForkCommand() *cobra.Command {
	var flags contentFlags

	cmd := &cobra.Command{
		Use:   "fork <source-key>",
		Short: "Derive new content from an existing entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := contentledger.ParseKey(args[0])
			if err != nil {
				return err
			}
			svc, caller, err := serviceFromFlags(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			key, err := svc.Fork(cmd.Context(), caller, contentledger.ForkContentRequest{
				SourceKey:   source,
				Title:       flags.title,
				Description: flags.description,
				MetadataURI: flags.metadataURI,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// NewMergeCommand creates the merge command
func NewMergeCommand() *cobra.Command {
	var flags contentFlags
	var shareArgs []string

	cmd := &cobra.Command{
		Use:   "merge <key>",
		Short: "Update an entry and replace its contribution split",
		Example: `  ledgerctl merge <key> --as alice --title "v2" \
    --share alice=60 --share bob=40`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := contentledger.ParseKey(args[0])
			if err != nil {
				return err
			}
			shares, err := parseShares(shareArgs)
			if err != nil {
				return err
			}
			svc, caller, err := serviceFromFlags(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			err = svc.Merge(cmd.Context(), caller, contentledger.MergeContentRequest{
				Key:         key,
				Title:       flags.title,
				Description: flags.description,
				MetadataURI: flags.metadataURI,
				Shares:      shares,
			})
			if err != nil {
				return err
			}
			entry, err := svc.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&shareArgs, "share", nil, "contribution share as holder=percentage (repeatable)")
	return cmd
}

// NewGetCommand creates the get command
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Show an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := contentledger.ParseKey(args[0])
			if err != nil {
				return err
			}
			svc, _, err := serviceFromFlags(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			entry, err := svc.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
}

// NewForksCommand creates the forks command
func NewForksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forks <key>",
		Short: "List direct forks of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listKeys(cmd, args[0], contentledger.Service.ListForks)
		},
	}
}

// NewLineageCommand creates the lineage command
func NewLineageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lineage <key>",
		Short: "Show an entry followed by its fork ancestors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listKeys(cmd, args[0], contentledger.Service.Lineage)
		},
	}
}

func listKeys(cmd *cobra.Command, raw string, list func(contentledger.Service, context.Context, contentledger.Key) ([]contentledger.Key, error)) error {
	key, err := contentledger.ParseKey(raw)
	if err != nil {
		return err
	}
	svc, _, err := serviceFromFlags(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	keys, err := list(svc, cmd.Context(), key)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}

// serviceFromFlags builds a service on the store named by --store
func serviceFromFlags(cmd *cobra.Command) (contentledger.Service, contentledger.AccountID, error) {
	storeURL, _ := cmd.Flags().GetString("store")
	caller, _ := cmd.Flags().GetString("as")
	verbose, _ := cmd.Flags().GetBool("verbose")

	var out io.Writer = io.Discard
	if verbose {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, nil))

	cfg, err := config.Load(
		config.WithStoreURL(storeURL),
		config.WithEventLogging(verbose),
		config.WithLogger(logger),
	)
	if err != nil {
		return nil, "", err
	}
	svc, err := cfg.BuildService(cmd.Context())
	if err != nil {
		return nil, "", err
	}
	return svc, contentledger.AccountID(caller), nil
}

// parseShares parses holder=percentage pairs
func parseShares(args []string) ([]contentledger.ContributionShare, error) {
	shares := make([]contentledger.ContributionShare, 0, len(args))
	for _, arg := range args {
		holder, rawPercentage, ok := strings.Cut(arg, "=")
		if !ok || holder == "" {
			return nil, fmt.Errorf("invalid share %q: expected holder=percentage", arg)
		}
		percentage, err := strconv.ParseUint(rawPercentage, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid share %q: %w", arg, err)
		}
		shares = append(shares, contentledger.ContributionShare{
			Holder:     contentledger.AccountID(holder),
			Percentage: uint8(percentage),
		})
	}
	return shares, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jose-valero/dynvoice-bot/internal/infra/config"
	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
)

func storeOptions() (storage.Options, error) {
	sc, err := config.ParseStore(os.Getenv)
	if err != nil {
		return storage.Options{}, err
	}
	return storage.Options{
		Driver:      sc.Driver,
		DataDir:     sc.DataDir,
		DatabaseURL: sc.DatabaseURL,
		SQLitePath:  sc.SQLitePath,
	}, nil
}

func storesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the stores and how many entries each one has",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := storeOptions()
			if err != nil {
				return err
			}
			st, err := storage.Open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver: %s\n\n", color.New(color.FgCyan).Sprint(opts.Driver))
			counts := map[string]int{
				storage.StorePrefixes:       st.Prefixes.Len(),
				storage.StoreBadWords:       st.BadWords.Len(),
				storage.StoreConfigs:        len(st.VoiceConfigIDs()),
				storage.StoreChannels:       st.Channels.Len(),
				storage.StoreBlacklist:      st.Blacklist.Len(),
				storage.StoreChannelIndexes: st.ChannelIndexes.Len(),
			}
			for _, name := range storage.AllStores {
				n := counts[name]
				c := color.New(color.FgGreen)
				if n == 0 {
					c = color.New(color.FgYellow)
				}
				fmt.Fprintf(out, "  %-16s %s\n", name, c.Sprint(n))
			}
			return nil
		},
	}
}

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <store>",
		Short: "Print a store as indented JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !slices.Contains(storage.AllStores, name) {
				return fmt.Errorf("unknown store %q (want one of %v)", name, storage.AllStores)
			}
			opts, err := storeOptions()
			if err != nil {
				return err
			}
			b, err := storage.OpenBackend(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer b.Close()

			raw, err := b.Load(cmd.Context(), name)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgYellow).Sprint("(empty)"))
				return nil
			}
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var importDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the SQL migrations and optionally import the JSON files",
		Long: `Opens the configured backend, which applies the goose migrations for
postgres and sqlite. With --import, every <dir>/<store>.json file is copied into it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := storeOptions()
			if err != nil {
				return err
			}
			dst, err := storage.OpenBackend(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer dst.Close()

			out := cmd.OutOrStdout()
			ok := color.New(color.FgGreen).Sprint("✓")
			fmt.Fprintf(out, "%s backend %s listo\n", ok, opts.Driver)
			if importDir == "" {
				return nil
			}

			src, err := storage.OpenFile(importDir)
			if err != nil {
				return err
			}
			for _, name := range storage.AllStores {
				raw, err := src.Load(cmd.Context(), name)
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Fprintf(out, "  %s %s (no file)\n", color.New(color.FgYellow).Sprint("-"), name)
					continue
				}
				if err != nil {
					return err
				}
				if !json.Valid(raw) {
					return fmt.Errorf("%s: invalid JSON", name)
				}
				if err := dst.Save(cmd.Context(), name, raw); err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s %s\n", ok, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&importDir, "import", "", "directory with <store>.json files to copy into the backend")
	return cmd
}

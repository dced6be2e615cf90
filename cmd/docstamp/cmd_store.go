package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsawler/docstamp/format"
	"github.com/tsawler/docstamp/internal/config"
	"github.com/tsawler/docstamp/storage"
	"github.com/tsawler/docstamp/storage/filesystem"
	"github.com/tsawler/docstamp/storage/memory"
	"github.com/tsawler/docstamp/storage/sqlite"
)

var getOutput string

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Write a stored document to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents, newest first",
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "Output file (default <id>.docx)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

// openStore builds the store the configuration selects. The returned
// function releases it.
func openStore(c *config.Config) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Storage.Backend {
	case config.BackendFilesystem:
		s, err := filesystem.New(c.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.BackendSQLite:
		s, err := sqlite.New(c.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendMemory:
		return memory.New(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	id := args[0]

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	data, err := store.Load(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("loading %s: %w", id, err)
	}

	out := getOutput
	if out == "" {
		out = id + format.DOCX.Extension()
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	cmd.Printf("Wrote %s (%d bytes)\n", out, len(data))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No stored documents.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIZE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\n", e.ID, e.Size, e.Created.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runDelete(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	for _, id := range args {
		if err := store.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		cmd.Printf("Deleted %s\n", id)
	}
	return nil
}

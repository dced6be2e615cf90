package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/docstamp"
)

var (
	mergeOutput   string
	mergeStore    bool
	mergeNoCheck  bool
	mergePageSize []int
	mergeMargins  []int
)

var mergeCmd = &cobra.Command{
	Use:   "merge <file.docx>...",
	Short: "Merge documents into one, each starting on a new page",
	Long: `Merges the given documents in order. The first document supplies styles,
theme, headers and footers; every document keeps its own body and images.

Examples:
  docstamp merge -o all.docx a.docx b.docx c.docx
  docstamp merge --store a.docx b.docx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Output file")
	mergeCmd.Flags().BoolVar(&mergeStore, "store", false, "Save the result in the configured store and print its id")
	mergeCmd.Flags().BoolVar(&mergeNoCheck, "no-format-check", false, "Accept inputs that do not look like Word documents")
	mergeCmd.Flags().IntSliceVar(&mergePageSize, "page-size", nil, "Page width,height in twentieths of a point")
	mergeCmd.Flags().IntSliceVar(&mergeMargins, "margins", nil, "Margins top,right,bottom,left in twentieths of a point")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	if mergeOutput == "" && !mergeStore {
		return errors.New("nothing to do: give --output or --store")
	}

	m := docstamp.Open(args...).Logger(logger)
	if mergeNoCheck {
		m = m.SkipFormatCheck()
	}
	if len(mergePageSize) > 0 {
		if len(mergePageSize) != 2 {
			return fmt.Errorf("--page-size wants 2 values, got %d", len(mergePageSize))
		}
		m = m.PageSize(mergePageSize[0], mergePageSize[1])
	}
	if len(mergeMargins) > 0 {
		if len(mergeMargins) != 4 {
			return fmt.Errorf("--margins wants 4 values, got %d", len(mergeMargins))
		}
		m = m.Margins(mergeMargins[0], mergeMargins[1], mergeMargins[2], mergeMargins[3])
	}

	data, err := m.Bytes()
	if err != nil {
		return err
	}

	if mergeOutput != "" {
		if err := os.WriteFile(mergeOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", mergeOutput, err)
		}
		cmd.Printf("Merged %d documents into %s\n", len(args), mergeOutput)
	}

	if mergeStore {
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := store.Save(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("storing result: %w", err)
		}
		cmd.Println(id)
	}
	return nil
}

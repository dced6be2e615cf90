package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/docstamp"
	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/format"
	"github.com/tsawler/docstamp/opc"
)

var inspectText bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.docx>",
	Short: "Show the properties, outline, parts, media, header/footer scheme and placeholders of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectText, "text", false, "Also print the body text")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	f, err := format.DetectBytes(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if f != format.Unknown && !f.WordProcessing() {
		return fmt.Errorf("%s: %w: %s", path, docstamp.ErrUnsupportedFormat, f)
	}
	pkg, err := opc.Open(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	cmd.Printf("File:   %s\n", path)
	cmd.Printf("Format: %s\n", f)

	cmd.Printf("\nParts (%d):\n", pkg.Len())
	for _, name := range pkg.Paths() {
		part, _ := pkg.Part(name)
		cmd.Printf("  %-40s %8d\n", name, len(part))
	}

	media := docx.ListMedia(pkg)
	cmd.Printf("\nMedia (%d):\n", len(media))
	for _, m := range media {
		cmd.Printf("  %s\n", m.Name)
	}

	refs, err := docx.ExtractSectionRefs(pkg)
	if err != nil {
		return err
	}
	cmd.Printf("\nHeaders and footers (title page: %t):\n", refs.TitlePage)
	if len(refs.Refs) == 0 {
		cmd.Println("  none")
	}
	for _, ref := range refs.Refs {
		cmd.Printf("  %-6s %-7s %s\n", ref.Kind, ref.Slot, ref.RelID)
	}

	r, err := docx.NewReader(pkg)
	if err != nil {
		return err
	}

	if meta := r.Metadata(); !meta.Empty() {
		cmd.Println("\nProperties:")
		for _, p := range []struct{ label, value string }{
			{"Title", meta.Title},
			{"Author", meta.Author},
			{"Subject", meta.Subject},
			{"Keywords", strings.Join(meta.Keywords, ", ")},
			{"Description", meta.Description},
			{"Application", meta.Creator},
		} {
			if p.value != "" {
				cmd.Printf("  %-12s %s\n", p.label+":", p.value)
			}
		}
	}

	headings := r.Headings()
	cmd.Printf("\nOutline (%d headings, %d paragraphs):\n", len(headings), len(r.Paragraphs()))
	for _, h := range headings {
		style := h.StyleName
		if style == "" {
			style = h.StyleID
		}
		cmd.Printf("  %s%s", strings.Repeat("  ", h.Level-1), h.Text)
		if style != "" {
			cmd.Printf("  [%s]", style)
		}
		cmd.Println()
	}

	placeholders := r.Placeholders()
	cmd.Printf("\nPlaceholders (%d):\n", len(placeholders))
	if len(placeholders) > 0 {
		cmd.Printf("  %s\n", strings.Join(placeholders, " "))
	}

	if inspectText {
		text, err := r.Text()
		if err != nil {
			return err
		}
		cmd.Printf("\nText:\n%s\n", text)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dgallion1/paperchat/internal/pipeline"
	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/spf13/cobra"
)

// sectionsCmd prints how a document was segmented.
func sectionsCmd() *cobra.Command {
	var (
		only       string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "sections FILE",
		Short: "Show the sections found in a document",
		Long: `Extract FILE's text and split it into sections.

Examples:
  paperchat sections paper.pdf                     # Summary table
  paperchat sections paper.pdf --section results   # Print one section
  paperchat sections paper.md --json               # Full map as JSON`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ingestFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if only != "" {
				sec, ok := sections.Parse(only)
				if !ok {
					return fmt.Errorf("unknown section %q (want one of %v)", only, sections.All)
				}
				fmt.Fprint(out, doc.Sections[sec])
				return nil
			}
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"document": doc,
					"sections": doc.Sections,
				})
			}
			return printSections(out, doc)
		},
	}

	cmd.Flags().StringVarP(&only, "section", "s", "", "Print only this section's text")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	return cmd
}

func printSections(out io.Writer, doc *session.Document) error {
	fmt.Fprintf(out, "%s (%d chars)\n\n", doc.Filename, len(doc.FullText))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tLINES\tCHARS")
	for _, sec := range sections.All {
		fmt.Fprintf(w, "%s\t%d\t%d\n", sec, doc.Sections.Lines(sec), len(doc.Sections[sec]))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(doc.Sections.Found()) == 0 {
		fmt.Fprintln(out, "\nNo section headings found; unprefixed questions use the full text, section prefixes send an empty context.")
	}
	return nil
}

func ingestFile(path string) (*session.Document, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pipeline.Ingest(data, filepath.Base(path), cfg.Parser())
}

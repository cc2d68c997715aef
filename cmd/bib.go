package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarly-tools/pinmap/bibtex"
	"github.com/scholarly-tools/pinmap/content"
)

var (
	bibInputFile  string
	bibOutputFile string

	mergeBibFile       string
	mergeContentFile   string
	mergeOutputFile    string
	mergeNormalizedOut string
)

var bibCmd = &cobra.Command{
	Use:   "bib",
	Short: "Normalize a BibTeX export and merge it into the dataset",
}

var bibNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite a BibTeX export with one brace pair per field",
	Long: `Normalize rewrites every entry of a BibTeX export so each field holds
exactly one {…} value: repeated wrappers unwrapped, LaTeX macros like
\emph{…} flattened to their contents, and all inner braces removed.

Input defaults to stdin, output to stdout.

Examples:
  pinmap bib normalize -i citations.bib -o citations.normalized.bib
  cat citations.bib | pinmap bib normalize`,
	Args: cobra.NoArgs,
	RunE: runBibNormalize,
}

var bibMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a BibTeX export into the dataset's publication list",
	Long: `Merge normalizes the BibTeX export, builds a publication record per
entry, and folds the records into the dataset document. Records match by
canonical DOI first, then by normalized title; on a match, non-empty
existing fields win except year (always refreshed) and summary (kept only
when the existing one is non-empty). Unmatched bibliography records are
appended. The result is sorted year-descending.

Examples:
  pinmap bib merge --bib citations.bib --content content.json
  pinmap bib merge --bib citations.bib --normalized-out citations.normalized.bib`,
	Args: cobra.NoArgs,
	RunE: runBibMerge,
}

func init() {
	bibNormalizeCmd.Flags().StringVarP(&bibInputFile, "input", "i", "", "BibTeX input file (default: stdin)")
	bibNormalizeCmd.Flags().StringVarP(&bibOutputFile, "output", "o", "", "Normalized output file (default: stdout)")

	bibMergeCmd.Flags().StringVar(&mergeBibFile, "bib", "citations.bib", "BibTeX input file")
	bibMergeCmd.Flags().StringVar(&mergeContentFile, "content", "content.json", "Dataset document to merge into")
	bibMergeCmd.Flags().StringVar(&mergeOutputFile, "output", "content.updated.json", "Merged dataset output file")
	bibMergeCmd.Flags().StringVar(&mergeNormalizedOut, "normalized-out", "", "Also write the normalized BibTeX here")

	bibCmd.AddCommand(bibNormalizeCmd)
	bibCmd.AddCommand(bibMergeCmd)
}

func runBibNormalize(cmd *cobra.Command, args []string) (err error) {
	var input io.Reader = os.Stdin
	if bibInputFile != "" {
		f, err := os.Open(bibInputFile)
		if err != nil {
			return fmt.Errorf("opening bibliography: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing bibliography: %w", cerr)
			}
		}()
		input = f
	}

	src, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("reading bibliography: %w", err)
	}
	if strings.TrimSpace(string(src)) == "" {
		return fmt.Errorf("bibliography input is missing or empty")
	}

	normalized := bibtex.Normalize(string(src))

	if bibOutputFile == "" {
		_, err := os.Stdout.WriteString(normalized)
		return err
	}
	return os.WriteFile(bibOutputFile, []byte(normalized), 0o644)
}

func runBibMerge(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(mergeBibFile)
	if err != nil {
		return fmt.Errorf("reading bibliography: %w", err)
	}
	if strings.TrimSpace(string(src)) == "" {
		return fmt.Errorf("bibliography %s is missing or empty", mergeBibFile)
	}

	normalized := bibtex.Normalize(string(src))
	if mergeNormalizedOut != "" {
		if err := os.WriteFile(mergeNormalizedOut, []byte(normalized), 0o644); err != nil {
			return fmt.Errorf("writing normalized bibliography: %w", err)
		}
		slog.Info("normalized bibliography written", "path", mergeNormalizedOut)
	}

	entries := bibtex.Parse(normalized)
	fresh := make([]content.Publication, 0, len(entries))
	for _, e := range entries {
		fresh = append(fresh, bibtex.BuildPublication(e))
	}

	doc := content.LoadOrSkeleton(mergeContentFile)
	doc.Publications = content.MergePublications(doc.Publications, fresh)

	if err := content.Write(mergeOutputFile, doc); err != nil {
		return err
	}
	slog.Info("merged dataset written", "publications", len(doc.Publications), "path", mergeOutputFile)
	return nil
}

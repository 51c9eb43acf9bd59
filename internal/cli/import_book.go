package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/database"
	"github.com/mrlokans/learncard/internal/database/books"
	"github.com/mrlokans/learncard/internal/entities"
	"github.com/mrlokans/learncard/internal/importers"
)

// ImportBookCommand loads one word book file into the catalog.
type ImportBookCommand struct {
	File        string
	BookID      string
	Title       string
	Description string
	Tags        []string
	Sheet       string
	DryRun      bool
	Verbose     bool
}

func newImportBookCmd() *cobra.Command {
	c := &ImportBookCommand{}
	cmd := &cobra.Command{
		Use:   "import-book",
		Short: "Import a word book from a JSON-lines dump, CSV or XLSX file",
		Long: `Import a word book into the catalog.

The format follows the file extension:
  .jsonl, .json, .ndjson  dictionary dump, one word record per line
  .csv                    word sheet with a header row
  .xlsx                   word sheet, first sheet unless --sheet is given

Importing a book again replaces its words. A running server keeps serving
the word lists it already cached until it is restarted.`,
		Example: `  learncard import-book --file CET4_1.jsonl --book-id cet4 --title "CET-4"
  learncard import-book --file words.xlsx --book-id ielts --sheet Core --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context(), config.NewConfig(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&c.File, "file", "", "path to the word book file (required)")
	cmd.Flags().StringVar(&c.BookID, "book-id", "", "catalog id of the book, overrides ids in the dump")
	cmd.Flags().StringVar(&c.Title, "title", "", "book title (default: the book id)")
	cmd.Flags().StringVar(&c.Description, "description", "", "book description")
	cmd.Flags().StringSliceVar(&c.Tags, "tag", nil, "book tag, repeatable")
	cmd.Flags().StringVar(&c.Sheet, "sheet", "", "sheet name for xlsx files")
	cmd.Flags().BoolVar(&c.DryRun, "dry-run", false, "show what would be imported without making changes")
	cmd.Flags().BoolVar(&c.Verbose, "verbose", false, "list skipped dump lines")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

type fileFormat string

const (
	formatDump fileFormat = "dump"
	formatCSV  fileFormat = "csv"
	formatXLSX fileFormat = "xlsx"
)

func formatOf(path string) (fileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json", ".ndjson":
		return formatDump, nil
	case ".csv":
		return formatCSV, nil
	case ".xlsx":
		return formatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q, want .jsonl, .csv or .xlsx", filepath.Ext(path))
	}
}

// Validate checks the flags before any file is opened.
func (c *ImportBookCommand) Validate() error {
	if c.File == "" {
		return fmt.Errorf("required flag --file not provided")
	}
	format, err := formatOf(c.File)
	if err != nil {
		return err
	}
	if format != formatDump && c.BookID == "" {
		return fmt.Errorf("--book-id is required for %s files", format)
	}
	return nil
}

// Converter reads the file and returns the converter for its format.
// Problems are dump lines that were skipped.
func (c *ImportBookCommand) Converter() (importers.Converter, []string, error) {
	format, err := formatOf(c.File)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(c.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", c.File, err)
	}
	defer f.Close()

	switch format {
	case formatDump:
		records, problems, err := importers.ParseDump(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read dump: %w", err)
		}
		return importers.NewDumpConverter(records).WithPath(c.File), problems, nil
	case formatCSV:
		rows, err := importers.ParseSheetCSV(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		return importers.NewSheetConverter(rows, c.BookID, "csv"), nil, nil
	default:
		rows, err := importers.ParseSheetXLSX(f, c.Sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read xlsx: %w", err)
		}
		return importers.NewSheetConverter(rows, c.BookID, "xlsx"), nil, nil
	}
}

func (c *ImportBookCommand) Run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Word Book Import")
	fmt.Fprintln(out, "================")
	if c.DryRun {
		fmt.Fprintln(out, "DRY RUN MODE - No changes will be made")
	}
	fmt.Fprintf(out, "File: %s\n", c.File)

	converter, problems, err := c.Converter()
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		fmt.Fprintf(out, "Skipped %d unreadable lines\n", len(problems))
		if c.Verbose {
			for _, p := range problems {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
	}

	var store importers.BookStore
	if c.DryRun {
		store = &dryRunStore{}
	} else {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		store = books.NewRepository(db.DB)
	}

	meta := importers.BookMeta{
		BookID:      c.BookID,
		Title:       c.Title,
		Description: c.Description,
		Tags:        c.Tags,
	}
	results, err := importers.NewPipeline(store, nil).Import(ctx, converter, meta)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No words found")
		return nil
	}

	for _, r := range results {
		fmt.Fprintf(out, "  %s: %d words (%d skipped)\n", r.BookID, r.Words, r.Skipped)
	}
	return nil
}

// dryRunStore counts what would be written.
type dryRunStore struct{}

func (dryRunStore) SaveBook(*entities.Book) error { return nil }

func (dryRunStore) ReplaceWords(_ string, words []entities.Word) (int, error) {
	return len(words), nil
}

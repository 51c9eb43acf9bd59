// Package importers loads word books into the catalog.
//
// # Architecture
//
// Every source is read by a Converter that turns it into RawWords:
//
//	Source file → Converter → RawWord → Pipeline → entities.Book + entities.Word → BookStore
//
// The Pipeline groups words by book, fills in missing ranks, drops
// duplicate ranks and replaces each book's word list in one transaction.
//
// # Converters
//
//   - DumpConverter (dump.go): JSON-lines dictionary dumps, one record per
//     line, as produced by the youdao word book exports
//   - SheetConverter (sheet.go): xlsx workbooks and CSV files with one word
//     per row
//
// # Example Usage
//
//	records, problems, err := importers.ParseDump(file)
//	pipeline := importers.NewPipeline(booksRepo, provider)
//	results, err := pipeline.Import(ctx, importers.NewDumpConverter(records), importers.BookMeta{
//		BookID: "cet4",
//		Title:  "CET-4",
//	})
package importers

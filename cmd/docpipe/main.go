// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/poiesic/docpipe"
	"github.com/poiesic/docpipe/search"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docpipe",
		Usage: "Document ingestion pipeline with semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to yaml configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config file)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the pipeline worker until interrupted",
				Action: serveCommand,
			},
			{
				Name:      "upload",
				Usage:     "Upload files for ingestion and print the document id",
				ArgsUsage: "FILE [FILE...]",
				Action:    uploadCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "index",
						Usage: "Index to ingest into",
						Value: "default",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag in key:value form, repeatable",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Process the pipeline before returning",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show the processing state of a document",
				ArgsUsage: "DOCUMENT_ID",
				Action:    statusCommand,
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a document's pipeline",
				ArgsUsage: "DOCUMENT_ID",
				Action:    cancelCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document's records and artifacts",
				ArgsUsage: "DOCUMENT_ID",
				Action:    deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "index",
						Usage: "Index the document was ingested into",
						Value: "default",
					},
				},
			},
			{
				Name:      "delete-index",
				Usage:     "Delete every record in an index",
				ArgsUsage: "INDEX",
				Action:    deleteIndexCommand,
			},
			{
				Name:      "query",
				Usage:     "Search an index",
				ArgsUsage: "QUERY_TEXT",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "index",
						Usage: "Index to search",
						Value: "default",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Drop results scoring below this",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag filter in key:value form, repeatable",
					},
				},
			},
			{
				Name:   "poisoned",
				Usage:  "List operations parked in the poison queue",
				Action: poisonedCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openService builds a Service from the config file and the --db override.
func openService(c *cli.Context) (*docpipe.Service, error) {
	cfg, err := docpipe.LoadConfigFile(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	svc, err := docpipe.NewService(cfg.DBPath, cfg.ServiceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

func serveCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker failed: %w", err)
	}
	return nil
}

func uploadCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}
	tags, err := parseTags(c.StringSlice("tag"))
	if err != nil {
		return err
	}

	files := make([]docpipe.UploadFile, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, docpipe.UploadFile{
			Name:     filepath.Base(path),
			MimeType: mimeTypeFor(path),
			Content:  content,
		})
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	id, err := svc.Upload(ctx, c.String("index"), files, tags)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	if c.Bool("wait") {
		if err := svc.Drain(ctx); err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
	}

	fmt.Println(id)
	return nil
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("document id is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	status, err := svc.Status(context.Background(), c.Args().First())
	if err != nil {
		return err
	}

	fmt.Printf("Document:  %s\n", status.PipelineID)
	fmt.Printf("Index:     %s\n", status.Index)
	fmt.Printf("Completed: %v\n", status.Completed)
	fmt.Printf("Failed:    %v\n", status.Failed)
	if len(status.CompletedSteps) > 0 {
		fmt.Printf("Done:      %s\n", strings.Join(status.CompletedSteps, ", "))
	}
	if len(status.RemainingSteps) > 0 {
		fmt.Printf("Remaining: %s\n", strings.Join(status.RemainingSteps, ", "))
	}
	if status.LastFailureReason != "" {
		fmt.Printf("Failure:   %s\n", status.LastFailureReason)
	}
	return nil
}

func cancelCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("document id is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	withdrawn, err := svc.Cancel(context.Background(), c.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("Cancelled, %d queued operation(s) withdrawn\n", withdrawn)
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("document id is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	if err := svc.DeleteDocument(ctx, c.String("index"), c.Args().First()); err != nil {
		return err
	}
	if err := svc.Drain(ctx); err != nil {
		return fmt.Errorf("deletion failed: %w", err)
	}
	return nil
}

func deleteIndexCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("index name is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.DeleteIndex(ctx, c.Args().First()); err != nil {
		return err
	}
	if err := svc.Drain(ctx); err != nil {
		return fmt.Errorf("deletion failed: %w", err)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("query text is required")
	}
	tags, err := parseTags(c.StringSlice("tag"))
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	searcher, err := svc.NewSearcher()
	if err != nil {
		return err
	}

	results, err := searcher.Search(context.Background(), search.Query{
		Index:    c.String("index"),
		Text:     strings.Join(c.Args().Slice(), " "),
		MinScore: float32(c.Float64("min-score")),
		Limit:    c.Int("limit"),
		Tags:     tags,
	})
	if err != nil {
		return err
	}

	for i, result := range results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", i+1, result.Score, result.Record.SourceFile, result.Record.PipelineID)
		fmt.Printf("    %s\n", snippet(result.Record.Text, 160))
	}
	if len(results) == 0 {
		fmt.Println("No results")
	}
	return nil
}

func poisonedCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ops, err := svc.Poisoned(context.Background())
	if err != nil {
		return err
	}
	for _, op := range ops {
		fmt.Printf("%s  pipeline=%s  failures=%d  reason=%s\n",
			op.ID, op.ContentID, op.FailureCount, op.LastFailureReason)
	}
	if len(ops) == 0 {
		fmt.Println("Poison queue is empty")
	}
	return nil
}

// parseTags converts repeated key:value flags into the tag map.
func parseTags(raw []string) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tags := make(map[string][]string)
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, ":")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid tag %q: expected key:value", pair)
		}
		tags[key] = append(tags[key], value)
	}
	return tags, nil
}

// snippet trims text to a single line of at most maxLen runes.
func snippet(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "…"
}

// mimeTypeFor guesses a file's content type from its extension, defaulting to
// plain text.
func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "text/plain"
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

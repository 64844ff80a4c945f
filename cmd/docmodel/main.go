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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/docmodel"
	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/migrate"
	"github.com/poiesic/docmodel/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func filterFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "filter",
		Aliases:  []string{"f"},
		Usage:    "Query document as JSON, e.g. '{\"age\":{\"$gt\":30}}'",
		Value:    "{}",
		Required: required,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docmodel",
		Usage: "Inspect and maintain a docmodel document store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "count",
				Usage:  "Count documents matching a filter",
				Action: countCommand,
				Flags:  []cli.Flag{dbFlag(), filterFlag(false)},
			},
			{
				Name:   "find",
				Usage:  "Print documents matching a filter as JSON lines",
				Action: findCommand,
				Flags: []cli.Flag{
					dbFlag(),
					filterFlag(false),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of documents to print (0 for all)",
					},
					&cli.IntFlag{
						Name:  "skip",
						Usage: "Number of leading documents to skip",
					},
					&cli.StringSliceFlag{
						Name:  "sort",
						Usage: "Sort by field, optionally descending: field[:desc]",
					},
				},
			},
			{
				Name:   "indexes",
				Usage:  "List declared indexes",
				Action: indexesCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
			{
				Name:   "ensure-index",
				Usage:  "Create an index on a field",
				Action: ensureIndexCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "field",
						Usage:    "Field to index (dot paths allowed)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "unique",
						Usage: "Reject documents sharing a value of the field",
					},
				},
			},
			{
				Name:   "remove-index",
				Usage:  "Drop the index on a field",
				Action: removeIndexCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "field",
						Usage:    "Indexed field",
						Required: true,
					},
				},
			},
			{
				Name:   "remove",
				Usage:  "Remove documents matching a filter",
				Action: removeCommand,
				Flags: []cli.Flag{
					dbFlag(),
					filterFlag(true),
					&cli.BoolFlag{
						Name:  "multi",
						Usage: "Remove every matching document instead of the first",
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Apply an update to every document matching a filter, in batches",
				Action: migrateCommand,
				Flags: []cli.Flag{
					dbFlag(),
					filterFlag(false),
					&cli.StringFlag{
						Name:     "update",
						Aliases:  []string{"u"},
						Usage:    "Update document as JSON, e.g. '{\"$set\":{\"active\":true}}'",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "batch-size",
						Aliases: []string{"b"},
						Usage:   "Number of documents to read per batch",
						Value:   migrate.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Log progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per document update",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff between attempts",
						Value: time.Second,
					},
				},
			},
		},
	}
}

// openDatabase opens the on-disk store named by --db.
func openDatabase(ctx context.Context, c *cli.Context) (*docmodel.Database, error) {
	cfg := docmodel.NewConfig(
		docmodel.WithInMemory(false),
		docmodel.WithPath(c.String("db")),
	)
	db, err := docmodel.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseFilter(raw string) (core.Document, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Document{}, nil
	}
	var filter core.Document
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return filter, nil
}

func parseSort(specs []string) ([]storage.SortField, error) {
	fields := make([]storage.SortField, 0, len(specs))
	for _, spec := range specs {
		field, dir, _ := strings.Cut(spec, ":")
		if field == "" {
			return nil, fmt.Errorf("invalid sort %q", spec)
		}
		switch strings.ToLower(dir) {
		case "", "asc":
			fields = append(fields, storage.SortField{Field: field})
		case "desc":
			fields = append(fields, storage.SortField{Field: field, Desc: true})
		default:
			return nil, fmt.Errorf("invalid sort direction %q: must be asc or desc", dir)
		}
	}
	return fields, nil
}

func countCommand(c *cli.Context) error {
	ctx := context.Background()

	filter, err := parseFilter(c.String("filter"))
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Store().Count(ctx, filter)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}

func findCommand(c *cli.Context) error {
	ctx := context.Background()

	filter, err := parseFilter(c.String("filter"))
	if err != nil {
		return err
	}
	sort, err := parseSort(c.StringSlice("sort"))
	if err != nil {
		return err
	}
	if c.Int("limit") < 0 || c.Int("skip") < 0 {
		return fmt.Errorf("limit and skip must not be negative")
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := storage.NewCursor(db.Store(), filter).
		Sort(sort...).
		Skip(c.Int("skip")).
		Limit(c.Int("limit")).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("find failed: %w", err)
	}

	enc := json.NewEncoder(c.App.Writer)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	slog.Debug("find complete", "documents", len(docs))
	return nil
}

func indexesCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	indexes, err := db.Store().Indexes(ctx)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		kind := "index"
		if idx.Unique {
			kind = "unique"
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", idx.FieldName, kind)
	}
	return nil
}

func ensureIndexCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := storage.IndexOptions{FieldName: c.String("field"), Unique: c.Bool("unique")}
	if err := db.Store().EnsureIndex(ctx, opts); err != nil {
		return fmt.Errorf("ensure index failed: %w", err)
	}
	slog.Info("index ready", "field", opts.FieldName, "unique", opts.Unique)
	return nil
}

func removeIndexCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Store().RemoveIndex(ctx, c.String("field")); err != nil {
		return fmt.Errorf("remove index failed: %w", err)
	}
	return nil
}

func removeCommand(c *cli.Context) error {
	ctx := context.Background()

	filter, err := parseFilter(c.String("filter"))
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Store().Remove(ctx, filter, storage.RemoveOptions{Multi: c.Bool("multi")})
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}

func migrateCommand(c *cli.Context) error {
	ctx := context.Background()

	filter, err := parseFilter(c.String("filter"))
	if err != nil {
		return err
	}
	var update core.Document
	if err := json.Unmarshal([]byte(c.String("update")), &update); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	config := &migrate.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	// Progress is reported regardless of --log-level.
	progress := slog.New(slog.NewTextHandler(c.App.ErrWriter, nil))
	migrator, err := migrate.NewMigrator(db.Store(), filter, update, config, progress)
	if err != nil {
		return err
	}

	stats, err := migrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed after %d documents: %w", stats.Updated, err)
	}
	fmt.Fprintln(c.App.Writer, stats.Updated)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

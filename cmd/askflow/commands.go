package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/markdave123-py/askflow/internal/app"
	"github.com/markdave123-py/askflow/internal/config"
	"github.com/markdave123-py/askflow/internal/logger"
)

// ingestSummary is printed per file, one JSON object per line.
type ingestSummary struct {
	File            string `json:"file"`
	ID              int64  `json:"id,omitempty"`
	ChunksProcessed int    `json:"chunks_processed"`
	Error           string `json:"error,omitempty"`
}

func newApp(ctx context.Context, cmd *cli.Command) (*app.App, error) {
	cfg, err := config.LoadConfig(cmd.String("env"))
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: "text",
		Output: os.Stderr,
	})
	return app.NewApp(ctx, cfg, log)
}

// ingestAction keeps going after a failed file and reports the failure count at the end.
func ingestAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("no files given")
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, path := range files {
		summary := ingestSummary{File: path}
		res, err := a.Ingestor.IngestFile(ctx, path)
		if err != nil {
			failed++
			summary.Error = err.Error()
		} else {
			summary.ID = res.Document.ID
			summary.ChunksProcessed = res.ChunksProcessed
		}
		if err := enc.Encode(summary); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.Documents.List(ctx)
	if err != nil {
		return err
	}
	return printJSON(docs)
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.Documents.Get(ctx, cmd.Int64("id"))
	if err != nil {
		return err
	}
	return printJSON(doc)
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id := cmd.Int64("id")
	if err := a.Documents.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("deleted document %d\n", id)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

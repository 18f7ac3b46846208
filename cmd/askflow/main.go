package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "askflow",
		Usage: "ingest PDFs and inspect indexed documents without the HTTP server",
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "extract, chunk, embed and store one or more PDF files",
				ArgsUsage: "FILE...",
				Flags:     []cli.Flag{envFlag()},
				Action:    ingestAction,
			},
			{
				Name:   "list",
				Usage:  "list indexed documents, newest first",
				Flags:  []cli.Flag{envFlag()},
				Action: listAction,
			},
			{
				Name:   "show",
				Usage:  "show one document and its chunks",
				Flags:  []cli.Flag{envFlag(), idFlag()},
				Action: showAction,
			},
			{
				Name:   "delete",
				Usage:  "delete a document, its chunks and its stored file",
				Flags:  []cli.Flag{envFlag(), idFlag()},
				Action: deleteAction,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to the .env file",
		Value: ".env",
	}
}

func idFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:     "id",
		Usage:    "document id",
		Required: true,
	}
}

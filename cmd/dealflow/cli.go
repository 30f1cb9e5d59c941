package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/inbox"
	"github.com/hpungsan/dealflow/internal/ops"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

const metricsFileFlag = "metrics-file"

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, p *pipeline.Pipeline) *cli.App {
	app := &cli.App{
		Name:    "dealflow",
		Usage:   "Deal flow extraction, scoring and memo synthesis",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: metricsFileFlag, Usage: "Write Prometheus metrics to this file on exit"},
		},
		Commands: []*cli.Command{
			extractCmd(db, p),
			ingestCmd(db, cfg, p),
			watchCmd(db, p),
			scoreCmd(db, p),
			memoCmd(db, p),
			rankCmd(db, p),
			fetchCmd(db),
			listCmd(db),
			exportCmd(db, cfg),
		},
		After: func(c *cli.Context) error {
			path := c.String(metricsFileFlag)
			if path == "" || p == nil {
				return nil
			}
			if err := p.Metrics().WriteTextfile(path); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

var modeFlag = &cli.StringFlag{
	Name:    "mode",
	Aliases: []string{"m"},
	Value:   string(ops.IngestModeError),
	Usage:   "Duplicate source handling: error|skip|reextract",
}

// extractCmd creates the extract command.
func extractCmd(db *sql.DB, p *pipeline.Pipeline) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract a deal candidate from one document (reads raw text from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source-id", Aliases: []string{"s"}, Required: true, Usage: "Upstream document id"},
			&cli.StringFlag{Name: "origin", Aliases: []string{"o"}, Value: string(deal.OriginEmail), Usage: "Document origin: email|crawl|feed"},
			&cli.StringFlag{Name: "sender", Usage: "Sender email address"},
			&cli.TimestampFlag{Name: "received-at", Layout: time.RFC3339, Usage: "Receive time (RFC 3339, default: now)"},
			modeFlag,
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("raw text must be piped via stdin"))
			}
			text, err := readStdin(inbox.MaxFileSize)
			if err != nil {
				return outputError(err)
			}

			doc := deal.RawDocument{
				SourceID: c.String("source-id"),
				Origin:   deal.Origin(c.String("origin")),
				RawText:  text,
			}
			if sender := c.String("sender"); sender != "" {
				doc.SenderAddress = &sender
			}
			if ts := c.Timestamp("received-at"); ts != nil {
				doc.ReceivedAt = *ts
			}

			output, err := ops.Ingest(c.Context, db, p, ops.IngestInput{
				Document: doc,
				Mode:     ops.IngestMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// ingestOutput is a batch result plus the files that could not be read.
type ingestOutput struct {
	*ops.BatchOutput
	FileErrors []inbox.FileError `json:"file_errors,omitempty"`
}

// ingestCmd creates the ingest command.
func ingestCmd(db *sql.DB, cfg *config.Config, p *pipeline.Pipeline) *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Extract candidates from .eml, .txt and .json files or directories",
		ArgsUsage: "<path>...",
		Flags: []cli.Flag{
			modeFlag,
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent extractions (default: batch.workers)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("at least one file or directory is required"))
			}

			var (
				docs     []deal.RawDocument
				fileErrs []inbox.FileError
			)
			for _, path := range c.Args().Slice() {
				info, err := os.Stat(path)
				if err != nil {
					fileErrs = append(fileErrs, inbox.FileError{Path: path, Error: errors.NewNotFound("file", path)})
					continue
				}
				if info.IsDir() {
					d, fe, err := inbox.ReadDir(path)
					if err != nil {
						return outputError(err)
					}
					docs = append(docs, d...)
					fileErrs = append(fileErrs, fe...)
					continue
				}
				doc, err := inbox.ReadFile(path)
				if err != nil {
					fileErrs = append(fileErrs, inbox.FileError{Path: path, Error: errors.As(err)})
					continue
				}
				docs = append(docs, doc)
			}

			mode := ops.IngestMode(c.String("mode"))
			inputs := make([]ops.IngestInput, len(docs))
			for i, doc := range docs {
				inputs[i] = ops.IngestInput{Document: doc, Mode: mode}
			}

			workers := c.Int("workers")
			if workers <= 0 && cfg != nil {
				workers = cfg.Batch.Workers
			}

			return outputJSON(ingestOutput{
				BatchOutput: ops.IngestBatch(c.Context, db, p, workers, inputs),
				FileErrors:  fileErrs,
			})
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(db *sql.DB, p *pipeline.Pipeline) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Extract candidates from files as they arrive in a directory",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			modeFlag,
			&cli.DurationFlag{Name: "settle", Value: inbox.DefaultSettle, Usage: "Quiet period before a changed file is read"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one directory is required"))
			}
			mode := ops.IngestMode(c.String("mode"))

			w, err := inbox.NewWatcher(c.Args().First(),
				inbox.WithSettle(c.Duration("settle")),
				inbox.WithLogger(p.Logger()))
			if err != nil {
				return outputError(err)
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = w.Run(ctx, func(ctx context.Context, doc deal.RawDocument) error {
				output, err := ops.Ingest(ctx, db, p, ops.IngestInput{Document: doc, Mode: mode})
				if err != nil {
					return err
				}
				return outputJSON(output)
			})
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// scoreCmd creates the score command.
func scoreCmd(db *sql.DB, p *pipeline.Pipeline) *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score a company (reads a JSON profile from stdin, merged with --candidate)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "candidate", Aliases: []string{"c"}, Usage: "Stored candidate id to merge into the profile"},
			&cli.StringFlag{Name: "thesis", Aliases: []string{"t"}, Usage: "Investment thesis for relevance"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ScoreInput{
				CandidateID: c.String("candidate"),
				Thesis:      c.String("thesis"),
			}

			if stdinHasData() {
				data, err := readStdin(inbox.MaxFileSize)
				if err != nil {
					return outputError(err)
				}
				if data != "" {
					var profile deal.CompanyProfile
					if err := json.Unmarshal([]byte(data), &profile); err != nil {
						return outputError(errors.NewInvalidRequest("invalid profile JSON: " + err.Error()))
					}
					input.Profile = &profile
				}
			}

			output, err := ops.Score(c.Context, db, p, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// memoCmd creates the memo command.
func memoCmd(db *sql.DB, p *pipeline.Pipeline) *cli.Command {
	return &cli.Command{
		Name:      "memo",
		Usage:     "Synthesize an investment memo for a scoring run",
		ArgsUsage: "<score-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "html", Usage: "Include HTML in the JSON output"},
			&cli.BoolFlag{Name: "markdown", Usage: "Print only the markdown memo"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.RenderMemo(c.Context, db, p, ops.RenderMemoInput{
				ScoreID: c.Args().First(),
				HTML:    c.Bool("html"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("markdown") {
				_, err := fmt.Fprint(os.Stdout, output.Markdown)
				return err
			}
			return outputJSON(output)
		},
	}
}

// rankCmd creates the rank command.
func rankCmd(db *sql.DB, p *pipeline.Pipeline) *cli.Command {
	return &cli.Command{
		Name:  "rank",
		Usage: "Rank the latest score of every company by sourcing priority",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "thesis", Aliases: []string{"t"}, Usage: "Recompute thesis relevance against this thesis"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultRankLimit, Usage: "Maximum entries"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Rank(c.Context, db, p, ops.RankInput{
				Thesis: c.String("thesis"),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch a stored candidate, score or memo",
		Subcommands: []*cli.Command{
			{
				Name:      "candidate",
				Usage:     "Fetch a candidate by id or source document",
				ArgsUsage: "[id]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source-id", Aliases: []string{"s"}, Usage: "Source document id"},
					&cli.BoolFlag{Name: "document", Aliases: []string{"d"}, Usage: "Include the raw document"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.FetchCandidate(db, ops.FetchCandidateInput{
						ID:              c.Args().First(),
						SourceID:        c.String("source-id"),
						IncludeDocument: c.Bool("document"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "score",
				Usage:     "Fetch a scoring run",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.FetchScore(db, ops.FetchScoreInput{ID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "memo",
				Usage:     "Fetch a memo by id, or the latest memo of a scoring run",
				ArgsUsage: "[id]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "score", Usage: "Score id"},
					&cli.StringFlag{Name: "section", Usage: "Only this section (e.g. risks, esg)"},
					&cli.BoolFlag{Name: "html", Usage: "Include HTML"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.FetchMemo(db, ops.FetchMemoInput{
						ID:      c.Args().First(),
						ScoreID: c.String("score"),
						Section: c.String("section"),
						HTML:    c.Bool("html"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	pageFlags := []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
		&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
	}
	return &cli.Command{
		Name:  "list",
		Usage: "List candidates or scores, newest first",
		Subcommands: []*cli.Command{
			{
				Name:  "candidates",
				Usage: "List current candidates",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "sector", Usage: "Filter by sector"},
					&cli.StringFlag{Name: "stage", Usage: "Filter by funding stage"},
					&cli.BoolFlag{Name: "warm-intro", Usage: "Filter by warm introduction (true|false)"},
					&cli.StringFlag{Name: "company", Usage: "Filter by company name"},
				}, pageFlags...),
				Action: func(c *cli.Context) error {
					input := ops.ListCandidatesInput{
						Sector:  c.String("sector"),
						Stage:   c.String("stage"),
						Company: c.String("company"),
						Limit:   c.Int("limit"),
						Offset:  c.Int("offset"),
					}
					if c.IsSet("warm-intro") {
						warm := c.Bool("warm-intro")
						input.WarmIntro = &warm
					}

					output, err := ops.ListCandidates(c.Context, db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "scores",
				Usage: "List scoring runs",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "company", Usage: "Filter by company name"},
					&cli.Float64Flag{Name: "min-composite", Usage: "Minimum composite score"},
				}, pageFlags...),
				Action: func(c *cli.Context) error {
					input := ops.ListScoresInput{
						Company: c.String("company"),
						Limit:   c.Int("limit"),
						Offset:  c.Int("offset"),
					}
					if c.IsSet("min-composite") {
						v := c.Float64("min-composite")
						input.MinComposite = &v
					}

					output, err := ops.ListScores(c.Context, db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every scoring run to JSONL or CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (default: ~/.dealflow/exports/scores-<timestamp>.<format>)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(ops.ExportJSONL), Usage: "File format: jsonl|csv"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, ops.ExportInput{
				Path:   c.String("path"),
				Format: ops.ExportFormat(c.String("format")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	dErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}

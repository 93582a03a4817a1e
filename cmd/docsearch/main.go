package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"docsearch/internal/config"
	"docsearch/internal/logger"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("docsearch failed", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docsearch",
		Usage: "Semantic and keyword search over a folder of text documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default ./config.yaml or ~/.config/docsearch/config.yaml)",
			},
			&cli.StringFlag{
				Name:    "docs",
				Aliases: []string{"d"},
				Usage:   "Documents directory (overrides documents.dir)",
			},
			&cli.StringSliceFlag{
				Name:    "files",
				Aliases: []string{"f"},
				Usage:   "Glob of *.txt files to ingest instead of the documents directory (repeatable)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Before: setup,
		Action: tuiCommand,
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "Interactive search (default)",
				Action: tuiCommand,
			},
			{
				Name:      "search",
				Usage:     "Semantic search with optional metadata filters",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(resultFlags(),
					&cli.StringFlag{Name: "author", Usage: "Case-insensitive author substring"},
					&cli.StringFlag{Name: "date", Usage: "Case-sensitive date substring"},
					&cli.StringFlag{Name: "location", Usage: "Case-insensitive location substring"},
					&cli.StringFlag{Name: "title", Usage: "Exact document title"},
				),
			},
			{
				Name:      "keyword",
				Usage:     "Literal keyword search",
				ArgsUsage: "KEYWORD[,KEYWORD...]",
				Action:    keywordCommand,
				Flags:     resultFlags(),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the top search results",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Results to retrieve (0 uses search.default_top_k)"},
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
			},
			{
				Name:   "docs",
				Usage:  "List ingested documents and their metadata",
				Action: docsCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the JSON HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides server.addr)"},
				},
			},
		},
	}
}

func resultFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Maximum results (0 uses search.default_top_k)"},
		&cli.StringFlag{Name: "sort", Usage: "Sort by relevance, date, author or title", Value: "relevance"},
		&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
	}
}

// setup loads .env and the config, then installs the logger.
func setup(c *cli.Context) error {
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if dir := c.String("docs"); dir != "" {
		cfg.Documents.Dir = dir
	}
	if files := c.StringSlice("files"); len(files) > 0 {
		cfg.Documents.Paths = files
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, c.App.ErrWriter)
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func configFrom(c *cli.Context) *config.AppConfig {
	return c.App.Metadata[configKey].(*config.AppConfig)
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
)

var (
	version = "0.1.0"
	commit  = "unknown"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "quantaeval"
	app.Usage = "evaluate scalar SQL expressions over columnar batches"
	app.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to a JSON configuration file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "eval",
			Usage:     "Evaluate expressions over every batch of an input",
			ArgsUsage: " ",
			Flags: append(inputFlags(),
				cli.StringSliceFlag{
					Name:  "expr, e",
					Usage: "Expression to evaluate, optionally followed by AS name (repeatable)",
				},
				cli.StringFlag{
					Name:  "output, o",
					Usage: "Write result batches as encoded frames to this file instead of printing them",
				},
				cli.StringFlag{
					Name:  "compression",
					Usage: "Frame compression for --output (none, lz4, snappy, zstd)",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Usage: "Number of batches evaluated in parallel",
				},
			),
			Action: evalCommand,
		},
		{
			Name:   "explain",
			Usage:  "Print the compiled evaluator of each expression",
			Flags:  append(inputFlags(), cli.StringSliceFlag{Name: "expr, e", Usage: "Expression to compile (repeatable)"}),
			Action: explainCommand,
		},
		{
			Name:   "schema",
			Usage:  "Print the schema of an input",
			Flags:  inputFlags(),
			Action: schemaCommand,
		},
		{
			Name:   "functions",
			Usage:  "List the available functions",
			Action: functionsCommand,
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("no-color") {
			disableColor()
		}
		return nil
	}
	return app
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "input, i",
			Usage: "Parquet file, http(s) Parquet URL or .qeb frame file to read",
		},
		cli.StringFlag{
			Name:  "query, q",
			Usage: "SQL query whose result set is the input",
		},
		cli.StringFlag{
			Name:  "driver",
			Usage: "Database driver for --query (postgres, sqlite3)",
		},
		cli.StringFlag{
			Name:  "dsn",
			Usage: "Database connection string for --query",
		},
		cli.IntFlag{
			Name:  "batch-size",
			Usage: "Rows per input batch",
		},
	}
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

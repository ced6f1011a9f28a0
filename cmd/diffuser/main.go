package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/siherrmann/diffuser"
	"github.com/siherrmann/diffuser/core/graph"
	"github.com/siherrmann/diffuser/core/post"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "diffuser",
		Usage: "build pairwise diffusion features for social graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log verbosity level (eg: warn, info, debug)",
				Value:   "info",
				EnvVars: []string{"DIFFUSER_LOG_LEVEL", "LOG_LEVEL"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "env files with DIFFUSER_DB_* settings, loaded in order",
				Value: cli.NewStringSlice(".env"),
			},
		},
		Before: loadEnv,
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:      "import-posts",
			Usage:     "store posts from a file with one JSON record per line",
			ArgsUsage: "<path>",
			Action:    runImportPosts,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "posts stored per transaction",
					Value: 1000,
				},
			},
		},
		&cli.Command{
			Name:      "import-graph",
			Usage:     "store a directed graph from an adjacency list",
			ArgsUsage: "<path>",
			Action:    runImportGraph,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Usage:    "name of the stored graph",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "delimiter",
					Usage: "node delimiter, whitespace if empty",
				},
			},
		},
		&cli.Command{
			Name:      "import-connections",
			Usage:     "store follower or friend ids from an adjacency list (account followed by connected ids)",
			ArgsUsage: "<path>",
			Action:    runImportConnections,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "type",
					Usage: "connection type: follower or friend",
					Value: string(model.ConnectionTypeFollower),
				},
				&cli.StringFlag{
					Name:  "delimiter",
					Usage: "id delimiter, whitespace if empty",
				},
			},
		},
		&cli.Command{
			Name:   "build",
			Usage:  "aggregate accounts of a stored graph and write the feature table",
			Action: runBuild,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "graph",
					Usage:    "name of the stored graph",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "keywords",
					Usage: "file with one topic keyword per line",
				},
				&cli.StringFlag{
					Name:  "topic",
					Usage: "topic name stored with the run",
				},
				&cli.StringSliceFlag{
					Name:  "seed",
					Usage: "restrict the graph to the neighborhood of these accounts",
				},
				&cli.IntFlag{
					Name:  "hops",
					Usage: "neighborhood radius around the seeds",
					Value: 1,
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "parallel tasks per stage, GOMAXPROCS if 0",
				},
				&cli.IntFlag{
					Name:  "lookup-cache-size",
					Usage: "cached referenced post authors, 0 disables the cache",
					Value: model.DefaultRunConfig().LookupCacheSize,
				},
				&cli.StringFlag{
					Name:  "sentiment",
					Usage: "sentiment classifier: lexicon or model",
					Value: "lexicon",
				},
				&cli.StringFlag{
					Name:  "csv",
					Usage: "also write the feature table to this CSV file",
				},
				&cli.BoolFlag{
					Name:  "progress",
					Usage: "show progress bars on stderr",
					Value: true,
				},
			},
		},
		&cli.Command{
			Name:   "runs",
			Usage:  "list stored feature runs",
			Action: runRuns,
		},
		&cli.Command{
			Name:      "export",
			Usage:     "write a stored feature run as CSV",
			ArgsUsage: "<run-id>",
			Action:    runExport,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "out",
					Usage: "output file, stdout if empty",
				},
			},
		},
		&cli.Command{
			Name:      "similar",
			Usage:     "list accounts with the most similar attention vector",
			ArgsUsage: "<account-id>",
			Action:    runSimilar,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Value: 10,
				},
			},
		},
	}
	app.RunAndExitOnError()
}

func loadEnv(cctx *cli.Context) error {
	for _, file := range cctx.StringSlice("env-file") {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := helper.NewLogger(writer, level)
	slog.SetDefault(logger)
	return logger
}

func openDiffuser(cctx *cli.Context) (*diffuser.Diffuser, error) {
	config, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}
	return diffuser.NewDiffuserWithLogger(config, configLogger(cctx, os.Stderr))
}

func signalContext(cctx *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
}

func parseDelimiter(value string) (rune, error) {
	switch value {
	case "":
		return 0, nil
	case `\t`:
		return '\t', nil
	}
	runes := []rune(value)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", value)
	}
	return runes[0], nil
}

func runImportPosts(cctx *cli.Context) error {
	p := cctx.Args().First()
	if p == "" {
		return fmt.Errorf("need to provide path to posts file")
	}

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	d, err := openDiffuser(cctx)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext(cctx)
	defer cancel()

	imported, replaced, err := d.ImportPostsJSONL(ctx, f, cctx.Int("batch-size"))
	if err != nil {
		return err
	}
	fmt.Printf("imported %d posts (%d replaced)\n", imported, replaced)
	return nil
}

func runImportGraph(cctx *cli.Context) error {
	p := cctx.Args().First()
	if p == "" {
		return fmt.Errorf("need to provide path to adjacency list")
	}
	delimiter, err := parseDelimiter(cctx.String("delimiter"))
	if err != nil {
		return err
	}

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	g, err := graph.ReadAdjacencyList(f, cctx.String("name"), delimiter)
	if err != nil {
		return err
	}

	d, err := openDiffuser(cctx)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext(cctx)
	defer cancel()

	if err := d.ImportGraph(ctx, g); err != nil {
		return err
	}
	fmt.Printf("imported graph %s with %d nodes and %d edges\n", g.Name(), g.NodeCount(), g.EdgeCount())
	return nil
}

func runImportConnections(cctx *cli.Context) error {
	p := cctx.Args().First()
	if p == "" {
		return fmt.Errorf("need to provide path to connections file")
	}
	connectionType := model.ConnectionType(cctx.String("type"))
	delimiter, err := parseDelimiter(cctx.String("delimiter"))
	if err != nil {
		return err
	}

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	connections, err := graph.ReadAdjacencyList(f, string(connectionType), delimiter)
	if err != nil {
		return err
	}

	d, err := openDiffuser(cctx)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext(cctx)
	defer cancel()

	total := 0
	for _, accountID := range connections.Nodes() {
		connected := connections.Successors(accountID)
		if len(connected) == 0 {
			continue
		}
		inserted, err := d.ImportConnections(ctx, accountID, connectionType, connected)
		if err != nil {
			return err
		}
		total += inserted
	}
	fmt.Printf("imported %d %s connections\n", total, connectionType)
	return nil
}

func runBuild(cctx *cli.Context) error {
	cfg := model.DefaultRunConfig()
	if workers := cctx.Int("workers"); workers > 0 {
		cfg.Workers = workers
	}
	cfg.LookupCacheSize = cctx.Int("lookup-cache-size")

	metadata := model.Metadata{"graph": cctx.String("graph")}
	if topic := cctx.String("topic"); topic != "" {
		metadata["topic"] = topic
	}

	if p := cctx.String("keywords"); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		cfg.Keywords, err = post.ReadKeywords(f)
		f.Close()
		if err != nil {
			return err
		}
		metadata["keywords_file"] = p
	}

	d, err := openDiffuser(cctx)
	if err != nil {
		return err
	}
	defer d.Close()

	switch cctx.String("sentiment") {
	case "lexicon":
	case "model":
		if err := d.UseDefaultSentiment(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown sentiment classifier %q", cctx.String("sentiment"))
	}
	metadata["sentiment"] = cctx.String("sentiment")

	if cctx.Bool("progress") {
		d.SetObserver(NewProgressObserver(os.Stderr, slog.Default()))
	}

	ctx, cancel := signalContext(cctx)
	defer cancel()

	g, err := d.LoadGraph(ctx, cctx.String("graph"))
	if err != nil {
		return err
	}
	if g.NodeCount() == 0 {
		return fmt.Errorf("graph %s is empty or does not exist", cctx.String("graph"))
	}

	if seeds := cctx.StringSlice("seed"); len(seeds) > 0 {
		g = graph.Neighborhood(g, seeds, cctx.Int("hops"))
		metadata["seeds"] = seeds
		metadata["hops"] = cctx.Int("hops")
	}

	run, skipped, err := d.BuildFeatures(ctx, g, cfg, metadata)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %d rows, %d edges skipped\n", run.ID, run.RowCount, skipped)

	if p := cctx.String("csv"); p != "" {
		return exportRun(ctx, d, run.ID, p)
	}
	return nil
}

func runRuns(cctx *cli.Context) error {
	d, err := openDiffuser(cctx)
	if err != nil {
		return err
	}
	defer d.Close()

	runs, err := d.FeatureRuns(cctx.Context)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s\t%s\t%d rows\t%d keywords\t%v\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.RowCount, len(run.Keywords), map[string]interface{}(run.Metadata))
	}
	return nil
}

func runExport(cctx *cli.Context) error {
	runID, err := uuid.Parse(cctx.Args().First())
	if err != nil {
		return fmt.Errorf("need to provide a valid run id: %w", err)
	}

	d, err := openDiffuser(cctx)
	if err != nil {
		return err
	}
	defer d.Close()

	return exportRun(cctx.Context, d, runID, cctx.String("out"))
}

func exportRun(ctx context.Context, d *diffuser.Diffuser, runID uuid.UUID, path string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	written, err := d.ExportFeatures(ctx, runID, w)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Printf("wrote %d rows to %s\n", written, path)
	}
	return nil
}

func runSimilar(cctx *cli.Context) error {
	accountID := cctx.Args().First()
	if accountID == "" {
		return fmt.Errorf("need to provide an account id")
	}

	d, err := openDiffuser(cctx)
	if err != nil {
		return err
	}
	defer d.Close()

	matches, err := d.SimilarAttention(cctx.Context, accountID, cctx.Int("limit"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		fmt.Printf("%s\t%.4f\n", match.AccountID, match.Distance)
	}
	return nil
}

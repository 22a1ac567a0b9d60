package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"probekit/internal/dataset"
	"probekit/internal/probe"
	"probekit/internal/storage"
	probeapi "probekit/pkg/probekit"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "fit":
		return runFit(ctx, args[1:])
	case "inspect":
		return runInspect(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "probes":
		return runProbes(ctx, args[1:])
	case "put":
		return runPut(ctx, args[1:])
	case "get":
		return runGet(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runFit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	configPath := fs.String("config", "", "fit config YAML path")
	dataPath := fs.String("data", "", "dataset path (csv or json)")
	kind := fs.String("kind", "", "probe kind override (linear|logistic|kmeans|pca|meandiff|logreg)")
	outPath := fs.String("out", "", "binary probe output path")
	jsonOutPath := fs.String("json-out", "", "portable JSON output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return usageError("fit requires -data")
	}

	cfg, err := loadFitConfig(*configPath)
	if err != nil {
		return err
	}
	if *kind != "" {
		cfg.Kind = *kind
	}

	ds, err := dataset.Load(*dataPath)
	if err != nil {
		return err
	}
	cfg.DatasetPath = *dataPath

	p, err := cfg.buildProbe(ds.Dim())
	if err != nil {
		return err
	}

	client, err := probeapi.New(probeapi.Options{})
	if err != nil {
		return err
	}
	if err := client.Init(ctx); err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Fit(ctx, probeapi.FitRequest{
		Probe:        p,
		Activations:  ds.Activations,
		Labels:       ds.Labels,
		LearningRate: cfg.LearningRate,
		Epochs:       cfg.Epochs,
		MinDelta:     cfg.MinDelta,
	})
	if err != nil {
		return err
	}

	if *outPath != "" {
		if err := p.Save(*outPath); err != nil {
			return err
		}
	}
	if *jsonOutPath != "" {
		if err := p.SaveJSON(*jsonOutPath); err != nil {
			return err
		}
	}

	if summary.Epochs > 0 {
		fmt.Printf("fitted kind=%s rows=%d dim=%d epochs=%d loss=%.6f\n",
			summary.Kind, ds.Len(), ds.Dim(), summary.Epochs, summary.FinalLoss)
	} else {
		fmt.Printf("fitted kind=%s rows=%d dim=%d\n", summary.Kind, ds.Len(), ds.Dim())
	}
	return nil
}

func runInspect(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	path := fs.String("path", "", "probe file path (binary or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return usageError("inspect requires -path")
	}

	p, err := probe.LoadProbe(*path)
	if err != nil {
		return err
	}
	base := p.BaseConfig()
	dir, err := p.Direction()
	if err != nil {
		return err
	}

	fmt.Printf("name=%s kind=%s dim=%d\n", base.Name, p.Kind(), len(dir))
	fmt.Printf("model=%s hook=%s layer=%d\n", base.ModelName, base.HookPoint, base.HookLayer)
	if base.DatasetPath != "" {
		fmt.Printf("dataset=%s\n", base.DatasetPath)
	}
	return nil
}

func runExport(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	inPath := fs.String("in", "", "binary probe input path")
	outPath := fs.String("out", "", "portable JSON output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return usageError("export requires -in and -out")
	}

	p, err := probe.LoadProbe(*inPath)
	if err != nil {
		return err
	}
	if err := p.SaveJSON(*outPath); err != nil {
		return err
	}
	fmt.Printf("exported %s -> %s\n", *inPath, *outPath)
	return nil
}

func runProbes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("probes", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "probekit.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := probeapi.New(probeapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	if err := client.Init(ctx); err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.ListProbes(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("%s kind=%s model=%s hook=%s layer=%d created=%s\n",
			item.Name, item.ProbeType, item.ModelName, item.HookPoint, item.HookLayer,
			item.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func runPut(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	path := fs.String("path", "", "probe file path (binary or json)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "probekit.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return usageError("put requires -path")
	}

	p, err := probe.LoadProbe(*path)
	if err != nil {
		return err
	}

	client, err := probeapi.New(probeapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	if err := client.Init(ctx); err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	id, err := client.StoreProbe(ctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("stored name=%s id=%s\n", p.BaseConfig().Name, id)
	return nil
}

func runGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	name := fs.String("name", "", "stored probe name")
	outPath := fs.String("out", "", "portable JSON output path")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "probekit.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *outPath == "" {
		return usageError("get requires -name and -out")
	}

	client, err := probeapi.New(probeapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	if err := client.Init(ctx); err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	p, err := client.FetchProbe(ctx, *name)
	if err != nil {
		return err
	}
	if err := p.SaveJSON(*outPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *outPath)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: probectl <fit|inspect|export|probes|put|get> [flags]", msg)
}

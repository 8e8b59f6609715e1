package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"starlake/internal/config"
	"starlake/internal/dataset"
	"starlake/internal/datasource"
	"starlake/internal/datasource/file"
	s3source "starlake/internal/datasource/s3"
	"starlake/internal/metrics"
	"starlake/internal/metrics/datadog"
	"starlake/internal/metrics/prompush"
	"starlake/internal/pipeline"
	"starlake/internal/storage"
	"starlake/internal/storage/parquet"
	"starlake/internal/storage/s3fs"
)

// main is the entry point for the lake builder. It loads the run config,
// optionally initializes a metrics backend, and executes the build.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/sparkify.json", "run config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend override (pushgateway, statsd, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides config and env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	run, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	applyMetricsOverrides(&run, metricsBackendFlg, pushGatewayURLFlg)

	issues := config.Validate(run)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(run, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	var sess *session.Session
	if config.IsS3(run.Input.Root) || config.IsS3(run.Output.Root) {
		sess, err = newAWSSession(run.AWS)
		if err != nil {
			fatalf("aws session: %v", err)
		}
	}

	input, err := newInput(run, sess)
	if err != nil {
		fatalf("%v", err)
	}
	writer := newWriter(run, sess)

	p := &pipeline.Pipeline{
		Job:      run.Job,
		Input:    input,
		SongGlob: run.Input.SongGlob,
		LogGlob:  run.Input.LogGlob,
		Writer:   writer,
		EC:       dataset.NewContext(run.Runtime.Workers),
	}

	if *verbose {
		log.Printf("run: job=%s input=%s output=%s workers=%d",
			run.Job, run.Input.Root, run.Output.Root, p.EC.Workers)
	}

	start := time.Now()
	if err := p.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// applyMetricsOverrides merges the command-line and environment metrics
// settings into the run before validation, so the overrides participate in
// config checks instead of being rejected by them. Pushgateway URL
// precedence: flag, then config, then PUSHGATEWAY_URL.
func applyMetricsOverrides(run *config.Run, backendFlg, urlFlg string) {
	if backendFlg != "" {
		run.Metrics.Backend = backendFlg
	}
	if run.Metrics.Backend != "pushgateway" {
		return
	}
	if urlFlg != "" {
		run.Metrics.Options["url"] = urlFlg
		return
	}
	if run.Metrics.Options.String("url", "") == "" {
		if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
			run.Metrics.Options["url"] = v
		}
	}
}

// setupMetrics installs the configured metrics backend; on any failure the
// no-op backend stays in place so the build still runs.
func setupMetrics(run config.Run, verbose bool) {
	switch run.Metrics.Backend {
	case "pushgateway":
		gwURL := run.Metrics.Options.String("url", "")

		b, err := prompush.NewBackend(run.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%v job=%v", gwURL, run.Job)
		metrics.SetBackend(b)

	case "statsd":
		tags := []string{"job:" + run.Job}
		for k, v := range run.Metrics.Options.StringMap("tags") {
			tags = append(tags, k+":"+v)
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       run.Metrics.Options.String("addr", ""),
			Namespace:  run.Metrics.Options.String("namespace", ""),
			GlobalTags: tags,
		})
		if err != nil {
			log.Printf("metrics: failed to init statsd backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=statsd job=%v", run.Job)
		metrics.SetBackend(b)

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", run.Metrics.Backend)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", run.Metrics.Backend)
	}
}

func newAWSSession(cfg config.AWSConfig) (*session.Session, error) {
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = awsCfg.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	return session.NewSession(awsCfg)
}

// newInput selects the datasource for the input root.
func newInput(run config.Run, sess *session.Session) (datasource.Lister, error) {
	if config.IsS3(run.Input.Root) {
		bucket, prefix := config.SplitS3(run.Input.Root)
		return s3source.NewLister(sess, bucket, prefix), nil
	}
	if _, err := os.Stat(run.Input.Root); err != nil {
		return nil, fmt.Errorf("input root: %w", err)
	}
	return file.NewLister(run.Input.Root), nil
}

// newWriter selects the storage backend for the output root.
func newWriter(run config.Run, sess *session.Session) *parquet.Writer {
	workers := run.Runtime.Workers
	if config.IsS3(run.Output.Root) {
		bucket, prefix := config.SplitS3(run.Output.Root)
		return parquet.NewWriter(s3fs.New(sess, bucket, prefix), ".", workers)
	}
	return parquet.NewWriter(storage.NewLocalFS(run.Output.Root), ".", workers)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

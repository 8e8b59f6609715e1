package main

import (
	"testing"

	"starlake/internal/config"
)

func baseRun() config.Run {
	r := config.Run{
		Job:    "sparkify",
		Input:  config.Input{Root: "data"},
		Output: config.Output{Root: "out"},
	}
	r.ApplyDefaults()
	return r
}

// A url-less config combined with the pushgateway flag and URL flag must
// validate cleanly: the overrides are merged before validation runs.
func TestMetricsOverridesReachValidation(t *testing.T) {
	run := baseRun()
	applyMetricsOverrides(&run, "pushgateway", "http://pg:9091")

	if got := run.Metrics.Options.String("url", ""); got != "http://pg:9091" {
		t.Fatalf("url = %q; want flag value", got)
	}
	if issues := config.Validate(run); config.HasErrors(issues) {
		t.Fatalf("Validate = %v; want no errors with the URL flag applied", issues)
	}
}

func TestMetricsOverridePrecedence(t *testing.T) {
	t.Setenv("PUSHGATEWAY_URL", "http://env:9091")

	// Flag wins over config and env.
	run := baseRun()
	run.Metrics.Backend = "pushgateway"
	run.Metrics.Options["url"] = "http://cfg:9091"
	applyMetricsOverrides(&run, "", "http://flag:9091")
	if got := run.Metrics.Options.String("url", ""); got != "http://flag:9091" {
		t.Fatalf("url = %q; want flag value", got)
	}

	// Config wins over env.
	run = baseRun()
	run.Metrics.Backend = "pushgateway"
	run.Metrics.Options["url"] = "http://cfg:9091"
	applyMetricsOverrides(&run, "", "")
	if got := run.Metrics.Options.String("url", ""); got != "http://cfg:9091" {
		t.Fatalf("url = %q; want config value", got)
	}

	// Env fills the gap when neither flag nor config has a URL.
	run = baseRun()
	applyMetricsOverrides(&run, "pushgateway", "")
	if got := run.Metrics.Options.String("url", ""); got != "http://env:9091" {
		t.Fatalf("url = %q; want env value", got)
	}
}

func TestMetricsOverridesLeaveOtherBackendsAlone(t *testing.T) {
	run := baseRun()
	applyMetricsOverrides(&run, "", "http://pg:9091")
	if run.Metrics.Backend != "none" {
		t.Fatalf("backend = %q; want none", run.Metrics.Backend)
	}
	if _, ok := run.Metrics.Options["url"]; ok {
		t.Fatal("url injected into a non-pushgateway run")
	}
}

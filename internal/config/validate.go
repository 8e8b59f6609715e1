// Package config provides configuration models and helpers for lake runs.
//
// This file adds a lightweight linter/validator for Run values. It performs
// static checks over a decoded Run and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Run.
//
// Path is a dotted path into the config (e.g. "output.root",
// "metrics.options.url"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation / linting of a Run.
//
// It does not mutate the run. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	r, err := config.Load(path)
//	if err != nil { ... }
//	for _, iss := range config.Validate(r) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func Validate(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateInput(r.Input)...)
	issues = append(issues, validateOutput(r.Output)...)
	issues = append(issues, validateAWS(r)...)
	issues = append(issues, validateRuntime(r.Runtime)...)
	issues = append(issues, validateMetrics(r.Metrics)...)

	return issues
}

// validateInput validates Input configuration.
func validateInput(in Input) []Issue {
	var issues []Issue

	if strings.TrimSpace(in.Root) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.root",
			Message:  "input.root must not be empty",
		})
	}
	if strings.TrimSpace(in.SongGlob) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.song_glob",
			Message:  "input.song_glob must not be empty",
		})
	}
	if strings.TrimSpace(in.LogGlob) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.log_glob",
			Message:  "input.log_glob must not be empty",
		})
	}

	return issues
}

// validateOutput validates Output configuration.
func validateOutput(out Output) []Issue {
	var issues []Issue

	root := strings.TrimSpace(out.Root)
	if root == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.root",
			Message:  "output.root must not be empty",
		})
		return issues
	}
	if IsS3(root) {
		if bucket, _ := SplitS3(root); bucket == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.root",
				Message:  fmt.Sprintf("s3 root %q names no bucket", root),
			})
		}
	}

	return issues
}

// validateAWS checks that credentials are present when any root points at S3.
func validateAWS(r Run) []Issue {
	var issues []Issue

	if !IsS3(r.Input.Root) && !IsS3(r.Output.Root) {
		return nil
	}
	if strings.TrimSpace(r.AWS.Region) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "aws.region",
			Message:  "an s3:// root is configured but aws.region is empty (set it or AWS_DEFAULT_REGION)",
		})
	}
	if strings.TrimSpace(r.AWS.AccessKeyID) == "" || strings.TrimSpace(r.AWS.SecretAccessKey) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "aws",
			Message:  "an s3:// root is configured without static credentials; the default AWS credential chain will be used",
		})
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations.
func validateRuntime(rt RuntimeConfig) []Issue {
	var issues []Issue

	if rt.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}

	return issues
}

// validateMetrics validates the metrics backend selection.
func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue

	known := map[string]struct{}{
		"none":        {},
		"pushgateway": {},
		"statsd":      {},
	}
	if _, ok := known[m.Backend]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; ensure a matching implementation exists", m.Backend),
		})
	}

	switch m.Backend {
	case "pushgateway":
		if strings.TrimSpace(m.Options.String("url", "")) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.options.url",
				Message:  "pushgateway backend requires a non-empty url",
			})
		}
	case "statsd":
		if strings.TrimSpace(m.Options.String("addr", "")) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.options.addr",
				Message:  "statsd backend has no addr; the default 127.0.0.1:8125 will be used",
			})
		}
	}

	return issues
}

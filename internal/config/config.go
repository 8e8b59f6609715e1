// Package config defines the canonical, JSON-serializable configuration model
// for a lake run. It is intentionally small, explicit, and dependency-free so
// that run files can be loaded from disk and passed through the program
// without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in run files
//     under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by the
//     standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job":    "sparkify",
//	  "input":  { "root": "data", "song_glob": "song_data/A/A/*/*.json" },
//	  "output": { "root": "s3://my-lake/analytics" },
//	  "aws":    { "region": "us-west-2" },
//	  "metrics":{ "backend": "pushgateway", "options": { "url": "http://pg:9091" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Default input globs, matching the layout the raw dataset ships with. Song
// files sit four levels deep under song_data; log files three levels deep
// under log_data.
const (
	DefaultSongGlob = "song_data/A/A/*/*.json"
	DefaultLogGlob  = "log_data/*/*/*.json"
)

// Run describes one full lake build in JSON. It is the top-level object
// decoded from a run file (e.g., configs/*.json).
type Run struct {
	// Job names the run for logs and metrics labeling.
	Job string `json:"job"`

	// Input describes where raw song and log files come from.
	Input Input `json:"input"`

	// Output describes where the dimensional tables are written.
	Output Output `json:"output"`

	// AWS carries credentials and region for s3:// roots. Environment
	// variables override the file values (see ApplyEnv).
	AWS AWSConfig `json:"aws"`

	Runtime RuntimeConfig `json:"runtime"`
	Metrics MetricsConfig `json:"metrics"`
}

// Input locates the raw datasets. Root is either a local directory or an
// s3://bucket[/prefix] URL; the globs are slash-separated patterns relative
// to it.
type Input struct {
	Root     string `json:"root"`
	SongGlob string `json:"song_glob"`
	LogGlob  string `json:"log_glob"`
}

// Output locates the lake. Root is either a local directory or an
// s3://bucket[/prefix] URL; each table is written under root/<table>.
type Output struct {
	Root string `json:"root"`
}

// AWSConfig holds credentials for s3:// roots. All fields may be left empty
// when both roots are local.
type AWSConfig struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
}

// RuntimeConfig controls concurrency. Workers bounds how many partitions are
// processed and written at once; zero means one worker per CPU.
type RuntimeConfig struct {
	Workers int `json:"workers"`
}

// MetricsConfig selects the metrics backend. Backend is one of "none",
// "pushgateway", or "statsd"; Options is interpreted by the selected backend
// (e.g., "url" for pushgateway, "addr" and "tags" for statsd).
type MetricsConfig struct {
	Backend string  `json:"backend"`
	Options Options `json:"options"`
}

// IsS3 reports whether root names an S3 location rather than a local path.
func IsS3(root string) bool {
	return strings.HasPrefix(root, "s3://")
}

// SplitS3 splits an s3://bucket/prefix root into bucket and prefix. The
// prefix may be empty.
func SplitS3(root string) (bucket, prefix string) {
	rest := strings.TrimPrefix(root, "s3://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, strings.TrimSuffix(prefix, "/")
}

// Load reads and decodes a run file, applies environment overrides, and
// fills defaulted fields. It does not validate; see Validate.
func Load(path string) (Run, error) {
	var r Run
	b, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("config: decode %s: %w", path, err)
	}
	r.ApplyEnv()
	r.ApplyDefaults()
	return r, nil
}

// ApplyEnv overrides AWS settings from the standard environment variables
// when they are set: AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, and
// AWS_DEFAULT_REGION.
func (r *Run) ApplyEnv() {
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		r.AWS.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		r.AWS.SecretAccessKey = v
	}
	if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
		r.AWS.Region = v
	}
}

// ApplyDefaults fills empty globs and the metrics backend with their
// defaults. Options is left non-nil so callers can merge overrides into it.
func (r *Run) ApplyDefaults() {
	if r.Input.SongGlob == "" {
		r.Input.SongGlob = DefaultSongGlob
	}
	if r.Input.LogGlob == "" {
		r.Input.LogGlob = DefaultLogGlob
	}
	if r.Metrics.Backend == "" {
		r.Metrics.Backend = "none"
	}
	if r.Metrics.Options == nil {
		r.Metrics.Options = Options{}
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
//
// Options is used for backend-specific configuration where the shape varies
// by implementation.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// If the value is neither float64 nor int, def is returned.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty
// map when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null
// "options" object in JSON decodes to a non-nil, empty Options map. This
// simplifies call sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// Package main implements the schemaguard CLI tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sg "github.com/schemaguard/validator"
	"github.com/schemaguard/validator/engine"
	"github.com/schemaguard/validator/schema"
	"github.com/schemaguard/validator/stream"
	"github.com/schemaguard/validator/worker"
)

const usage = `schemaguard - runtime schema validator

Usage:
  schemaguard -schema <expr> [options] <file>...
  schemaguard -schema <expr> [options] -    (read from stdin)
  cat payload.json | schemaguard -schema '{id: uuid, email: email}' -

Examples:
  schemaguard -schema 'string(3,80)' name.json
  schemaguard -schema '{id: uuid, tags: string[](0,10)?}' payload.json
  schemaguard -schema 'ip.public' -output json addrs.json
  schemaguard -schema 'email' -strict *.json

Options:
`

// OutputFormat specifies the output format.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Config holds CLI configuration.
type Config struct {
	Schema      string
	Output      OutputFormat
	Strict      bool
	Quiet       bool
	NoCache     bool
	NDJSON      bool
	Verbose     bool
	Timeout     time.Duration
	Concurrency int
	ShowVersion bool
	Help        bool
	Files       []string
}

// ValidationOutput represents the JSON output structure for one input.
type ValidationOutput struct {
	Input    string        `json:"input"`
	Valid    bool          `json:"valid"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Issues   []IssueOutput `json:"issues,omitempty"`
	Duration string        `json:"duration"`
}

// IssueOutput represents a single issue in JSON output.
type IssueOutput struct {
	Severity string   `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Path     []string `json:"path,omitempty"`
	Value    string   `json:"value,omitempty"`
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("schemaguard v%s\n", sg.Version)
		os.Exit(0)
	}

	if config.Help || config.Schema == "" || len(config.Files) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(run(config))
}

func parseFlags() *Config {
	config := &Config{Output: OutputText}

	var output string

	flag.StringVar(&config.Schema, "schema", "", "Type expression to validate against, or @file (required)")
	flag.StringVar(&output, "output", "text", "Output format: text, json")
	flag.BoolVar(&config.Strict, "strict", false, "Enable strict mode (hardened JSON checks)")
	flag.BoolVar(&config.Quiet, "quiet", false, "Only show errors")
	flag.BoolVar(&config.NoCache, "no-cache", false, "Disable the result cache")
	flag.BoolVar(&config.NDJSON, "ndjson", false, "Treat each input line as a separate JSON value")
	flag.BoolVar(&config.Verbose, "verbose", false, "Log per-input details as JSON to stderr")
	flag.DurationVar(&config.Timeout, "timeout", 0, "Per-validation timeout (e.g. 500ms)")
	flag.IntVar(&config.Concurrency, "concurrency", 0, "Parallel validations for multi-file runs (0 = NumCPU)")
	flag.BoolVar(&config.ShowVersion, "v", false, "Show version")
	flag.BoolVar(&config.Help, "help", false, "Show help")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	flag.Parse()

	if strings.EqualFold(output, "json") {
		config.Output = OutputJSON
	}

	config.Files = flag.Args()
	return config
}

func run(config *Config) int {
	logger := newLogger(config.Verbose)

	// A leading @ names a file holding the schema expression.
	if rest, ok := strings.CutPrefix(config.Schema, "@"); ok {
		data, err := os.ReadFile(rest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading schema file %s: %v\n", rest, err)
			return 2
		}
		config.Schema = strings.TrimSpace(string(data))
	}

	// Fail on a bad schema before touching any input.
	compiled, err := schema.CompileString(config.Schema)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid schema: %v\n", err)
		return 2
	}
	logger.Debug("schema compiled", "signature", compiled.Signature())

	opts := []sg.Option{
		sg.WithStrictMode(config.Strict),
		sg.WithCache(!config.NoCache),
	}
	if config.Timeout > 0 {
		opts = append(opts, sg.WithTimeout(config.Timeout))
	}
	if config.Concurrency > 0 {
		opts = append(opts, sg.WithMaxConcurrency(config.Concurrency))
	}

	eng := engine.New(opts...)

	if config.NDJSON {
		return runStream(eng, config, logger)
	}

	inputs, readFailures := collectInputs(config.Files)

	items := make([]worker.Item, len(inputs))
	for i, in := range inputs {
		items[i] = worker.Item{ID: in.name, Schema: config.Schema, Value: in.value}
	}

	start := time.Now()
	var results []*sg.Result
	if len(items) == 1 {
		results = []*sg.Result{eng.ValidateCompiled(context.Background(), compiled, items[0].Value)}
	} else {
		batch := eng.ValidateBatch(context.Background(), items)
		results = batch.Results
	}
	elapsed := time.Since(start)

	hasErrors := readFailures
	outputs := make([]ValidationOutput, 0, len(results))
	for i, result := range results {
		out := buildOutput(inputs[i].name, result, elapsed)
		outputs = append(outputs, out)
		if result.HasErrors() {
			hasErrors = true
		}
		logger.Debug("validated",
			"input", inputs[i].name,
			"valid", !result.HasErrors(),
			"errors", result.ErrorCount(),
			"warnings", result.WarningCount())
		if config.Output == OutputText {
			printTextResult(inputs[i].name, result, config)
		}
	}

	if config.Output == OutputJSON {
		encoded, _ := json.MarshalIndent(outputs, "", "  ")
		fmt.Println(string(encoded))
	}

	if hasErrors {
		return 1
	}
	return 0
}

// newLogger returns a JSON logger on stderr when verbose, otherwise one that
// discards everything.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// runStream validates each input line as its own JSON value.
func runStream(eng *engine.Engine, config *Config, logger *slog.Logger) int {
	readers := make([]io.Reader, 0, len(config.Files))
	for _, file := range config.Files {
		if file == "-" {
			readers = append(readers, os.Stdin)
			continue
		}
		f, err := os.Open(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", file, err)
			return 1
		}
		defer f.Close()
		readers = append(readers, f)
	}

	lv := stream.NewLineValidator(eng.Validate, config.Schema).
		WithWorkerCount(eng.Options().MaxConcurrency)

	hasErrors := false
	for _, r := range readers {
		for lr := range lv.ValidateStreamParallel(context.Background(), r) {
			name := fmt.Sprintf("line %d", lr.Line)
			if lr.Result.HasErrors() {
				hasErrors = true
			}
			logger.Debug("validated",
				"line", lr.Line,
				"valid", !lr.Result.HasErrors(),
				"errors", lr.Result.ErrorCount())
			if config.Output == OutputText {
				printTextResult(name, lr.Result, config)
			}
		}
	}

	if hasErrors {
		return 1
	}
	return 0
}

type input struct {
	name  string
	value any
}

// collectInputs reads each argument as a JSON document. A literal "-" reads
// stdin; other arguments are treated as glob patterns.
func collectInputs(files []string) ([]input, bool) {
	inputs := make([]input, 0, len(files))
	failed := false

	appendFile := func(name string, data []byte, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			failed = true
			return
		}
		var value any
		if jsonErr := json.Unmarshal(data, &value); jsonErr != nil {
			// Not JSON: validate the raw text as a string value.
			value = strings.TrimRight(string(data), "\n")
		}
		inputs = append(inputs, input{name: name, value: value})
	}

	for _, file := range files {
		if file == "-" {
			data, err := io.ReadAll(os.Stdin)
			appendFile("stdin", data, err)
			continue
		}

		matches, globErr := filepath.Glob(file)
		if globErr != nil || len(matches) == 0 {
			fmt.Fprintf(os.Stderr, "No files match pattern: %s\n", file)
			failed = true
			continue
		}
		for _, match := range matches {
			data, err := os.ReadFile(match)
			appendFile(match, data, err)
		}
	}

	return inputs, failed
}

func buildOutput(name string, result *sg.Result, elapsed time.Duration) ValidationOutput {
	out := ValidationOutput{
		Input:    name,
		Valid:    !result.HasErrors(),
		Errors:   result.ErrorCount(),
		Warnings: result.WarningCount(),
		Duration: elapsed.Round(time.Microsecond).String(),
	}
	for _, iss := range result.Issues {
		out.Issues = append(out.Issues, IssueOutput{
			Severity: string(iss.Severity),
			Code:     string(iss.Code),
			Message:  iss.Message,
			Path:     iss.Path,
			Value:    iss.Value,
		})
	}
	return out
}

func printTextResult(name string, result *sg.Result, config *Config) {
	status := "VALID"
	if result.HasErrors() {
		status = "INVALID"
	}

	fmt.Printf("== %s ==\n", name)
	fmt.Printf("Status: %s\n", status)
	fmt.Printf("Errors: %d, Warnings: %d\n", result.ErrorCount(), result.WarningCount())

	if len(result.Issues) > 0 {
		fmt.Println("\nIssues:")
		for _, iss := range result.Issues {
			if config.Quiet && iss.Severity == sg.SeverityWarning {
				continue
			}

			location := ""
			if len(iss.Path) > 0 {
				location = fmt.Sprintf(" @ %s", strings.Join(iss.Path, "."))
			}

			fmt.Printf("  %s [%s] %s%s\n", severityIcon(iss.Severity), iss.Code, iss.Message, location)
		}
	}

	fmt.Println()
}

func severityIcon(severity sg.Severity) string {
	switch severity {
	case sg.SeverityFatal:
		return "FATAL"
	case sg.SeverityError:
		return "ERROR"
	case sg.SeverityWarning:
		return "WARN "
	default:
		return "INFO "
	}
}

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reelfeed/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioReport holds the overall result.
type ScenarioReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// WriteText implements TextWriter.
func (r ScenarioReport) WriteText(w io.Writer) error {
	if r.Total == 0 {
		_, err := fmt.Fprintln(w, "No scenarios found.")
		return err
	}
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	_, err := fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	return err
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <path>...",
		Short: "Replay feed scenarios against golden traces",
		Long: `Replay scripted feed scenarios against a scripted remote.

Each path is a scenario file or a directory of them. A scenario's golden
trace lives in a "golden" directory next to the scenario directory:
scenarios/paging.yaml is compared with golden/paging.golden. Scenarios
without a golden trace are checked by their assertions only.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  feedctl scenario ./testdata/scenarios
  feedctl scenario ./testdata/scenarios --filter "search-*"
  feedctl scenario ./testdata/scenarios --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *ScenarioOptions, paths []string, cmd *cobra.Command) error {
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("cannot read %s", p), err)
		}
		files = append(files, found...)
	}

	report := ScenarioReport{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		res := runScenarioFile(file, opts)
		report.Scenarios = append(report.Scenarios, res)
		if res.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	out := opts.formatter(cmd)
	if opts.Format == "json" && report.Failed > 0 {
		if err := out.Error("SCENARIO_FAILED", fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total), report); err != nil {
			return err
		}
	} else if err := out.Success(report); err != nil {
		return err
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

// findScenarioFiles returns path itself when it is a file, or the YAML
// files under it when it is a directory.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(d.Name(), ext)
			if ok, _ := filepath.Match(filter, name); !ok {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

func runScenarioFile(file string, opts *ScenarioOptions) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("load error: %v", err)}}
	}
	name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("execution error: %v", err)}}
	}
	if !result.Pass {
		return ScenarioResult{Name: name, Errors: result.Errors}
	}

	trace, err := harness.MarshalTrace(result.Trace)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("marshal trace: %v", err)}}
	}

	golden := goldenFilePath(file)
	if opts.Update {
		if err := writeGolden(golden, trace); err != nil {
			return ScenarioResult{Name: name, Errors: []string{err.Error()}}
		}
		return ScenarioResult{Name: name + " (golden updated)", Pass: true}
	}

	want, err := os.ReadFile(golden)
	if os.IsNotExist(err) {
		return ScenarioResult{Name: name, Pass: true}
	}
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("read golden file: %v", err)}}
	}
	if !bytes.Equal(want, trace) {
		return ScenarioResult{Name: name, Errors: []string{"trace does not match golden file (run with --update to regenerate)"}}
	}
	return ScenarioResult{Name: name, Pass: true}
}

// goldenFilePath maps dir/scenarios/x.yaml to dir/golden/x.golden.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(filepath.Dir(scenarioFile))
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

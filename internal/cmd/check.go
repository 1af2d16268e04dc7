package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pipeforge/jobmon/pkg/jobmonitor"
)

var checkCmd = &cobra.Command{
	Use:   "check <log>...",
	Short: "Check upstream job logs for recorded failures",
	Long: `Check whether any of the given job logs has a sibling .error file.

Arguments that do not end in the log extension are ignored, so a mixed
artifact list (as handed over by a workflow orchestrator) is accepted
as-is. Checks run in the given order and stop at the first failure.

Exits nonzero when a checked dependency failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

var checkJSON bool

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output as JSON")
}

type checkResult struct {
	Log    string `json:"log"`
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logExt := cfg.Jobs.LogExt

	var firstFailed *checkResult
	results := make([]checkResult, 0, len(args))
	for _, path := range args {
		if !strings.HasSuffix(path, logExt) {
			continue
		}
		msg, failed, err := jobmonitor.CheckError(path, logExt)
		if err != nil {
			return err
		}
		r := checkResult{Log: path, Failed: failed, Error: strings.TrimSpace(msg)}
		results = append(results, r)
		if failed && firstFailed == nil {
			firstFailed = &r
			// Fail-fast: later entries are not evaluated.
			break
		}
	}

	if checkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Failed {
				_, _ = fmt.Fprintf(out, "FAILED  %s: %s\n", r.Log, r.Error)
			} else {
				_, _ = fmt.Fprintf(out, "ok      %s\n", r.Log)
			}
		}
	}

	if firstFailed != nil {
		return fmt.Errorf("dependency failed: %s", firstFailed.Log)
	}
	return nil
}

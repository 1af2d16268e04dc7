package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipeforge/jobmon/pkg/jobmonitor"
)

var statusCmd = &cobra.Command{
	Use:   "status [dir]",
	Short: "Show job states in a directory",
	Long: `Classify the job artifacts in a directory into lifecycle states.

A base path with a .running file is running; one with a .log is
succeeded unless a sibling .error file exists, in which case it is
failed and the recorded error is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir := cfg.Jobs.Dir
	if len(args) == 1 {
		dir = args[0]
	}

	jobs, err := jobmonitor.ScanDir(dir, cfg.Jobs.LogExt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	if len(jobs) == 0 {
		_, _ = fmt.Fprintln(out, "No jobs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "NAME\tSTATE\tUPDATED\tERROR")
	for _, j := range jobs {
		updated := "-"
		if !j.UpdatedAt.IsZero() {
			updated = j.UpdatedAt.Format(time.RFC3339)
		}
		errText := "-"
		if j.Error != "" {
			errText = firstLine(j.Error)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.Name, j.State, updated, errText)
	}
	return nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

package cli

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/cli/pagination"
	"github.com/rshade/mediabatch/internal/config"
)

// NewHistoryCmd creates the history command group for recorded batch runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded batch runs",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryClearCmd())
	return cmd
}

func openHistory() (*config.HistoryStore, error) {
	store, err := config.NewHistoryStore("")
	if err != nil {
		return nil, err
	}
	if err := store.Load(); err != nil {
		if errors.Is(err, config.ErrHistoryCorrupted) {
			return nil, fmt.Errorf("%w: run 'mediabatch history clear --yes' to reset", err)
		}
		return nil, err
	}
	return store, nil
}

// historySorter orders run records for "history list --sort".
func historySorter() *pagination.Sorter[*config.RunRecord] {
	return pagination.NewSorter(map[string]pagination.CompareFunc[*config.RunRecord]{
		"started":  func(a, b *config.RunRecord) int { return a.StartedAt.Compare(b.StartedAt) },
		"kind":     func(a, b *config.RunRecord) int { return cmp.Compare(a.Kind, b.Kind) },
		"total":    func(a, b *config.RunRecord) int { return cmp.Compare(a.Total, b.Total) },
		"failed":   func(a, b *config.RunRecord) int { return cmp.Compare(a.Failed, b.Failed) },
		"retried":  func(a, b *config.RunRecord) int { return cmp.Compare(a.Retried, b.Retried) },
		"duration": func(a, b *config.RunRecord) int { return cmp.Compare(runDuration(a), runDuration(b)) },
	})
}

func runDuration(r *config.RunRecord) time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// selectRecords sorts and windows records according to params.
func selectRecords(records []*config.RunRecord, params pagination.Params) ([]*config.RunRecord, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	field, order, err := pagination.ParseSort(params.Sort, pagination.SortOrderDesc)
	if err != nil {
		return nil, err
	}
	sorted, err := historySorter().Sort(records, field, order)
	if err != nil {
		return nil, err
	}
	return pagination.Apply(params, sorted), nil
}

func newHistoryListCmd() *cobra.Command {
	var (
		output string
		params pagination.Params
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Example: `  # The ten most recent runs
  mediabatch history list -n 10

  # Runs with the most failures first, 20 per page
  mediabatch history list --sort failed --page 1 --page-size 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			all := store.Records()
			records, err := selectRecords(all, params)
			if err != nil {
				return err
			}

			if output == outputJSON {
				return renderJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				cmd.Println("No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.RunID,
					r.StartedAt.Local().Format(time.DateTime),
					r.Kind,
					r.Input,
					strconv.Itoa(r.Total),
					strconv.Itoa(r.Succeeded),
					strconv.Itoa(r.Failed),
					strconv.Itoa(r.Retried),
				})
			}
			cmd.Println(renderTable(
				[]string{"Run", "Started", "Kind", "Input", "Total", "OK", "Failed", "Retried"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			if params.IsPageBased() {
				meta := pagination.NewMeta(params, len(all))
				cmd.Printf("Page %d of %d (%d runs)\n", meta.CurrentPage, meta.TotalPages, meta.TotalItems)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	params.Register(cmd, "sort by started, kind, total, failed, retried or duration, optionally with :asc or :desc")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and the tasks it left failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			record, ok := store.Get(args[0])
			if !ok {
				return fmt.Errorf("run %q not found in %s", args[0], store.FilePath())
			}

			if output == outputJSON {
				return renderJSON(cmd.OutOrStdout(), record)
			}

			cmd.Printf("Run:      %s\n", record.RunID)
			cmd.Printf("Kind:     %s\n", record.Kind)
			cmd.Printf("Input:    %s\n", record.Input)
			cmd.Printf("Started:  %s\n", record.StartedAt.Local().Format(time.DateTime))
			cmd.Printf("Duration: %s\n", runDuration(record).Round(time.Millisecond))
			cmd.Printf("Tasks:    %d total, %d ok, %d failed, %d retries\n",
				record.Total, record.Succeeded, record.Failed, record.Retried)

			if len(record.Failures) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(record.Failures))
			for _, f := range record.Failures {
				rows = append(rows, []string{f.Label, strconv.Itoa(f.Attempt), failureClassLabel(f), f.Error})
			}
			cmd.Println(renderTable([]string{"Task", "Attempts", "Class", "Error"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func failureClassLabel(f config.FailureRecord) string {
	switch {
	case f.Class == "":
		return "-"
	case f.Permanent:
		return f.Class + " (permanent)"
	default:
		return f.Class
	}
}

func newHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := config.NewHistoryStore("")
			if err != nil {
				return err
			}
			if !confirmDestructive(cmd.OutOrStdout(), "Delete all run history?", yes) {
				return nil
			}
			if err := store.Clear(); err != nil {
				return err
			}
			cmd.Println("Run history cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

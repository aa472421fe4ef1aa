package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/ledger"
)

var statusColors = map[schemas.ApplicationStatus]text.Colors{
	schemas.StatusApplied: {text.FgGreen},
	schemas.StatusFailed:  {text.FgRed},
	schemas.StatusSkipped: {text.FgYellow},
}

// newHistoryCmd creates the `history` command, which lists ledger rows newest first.
func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	var plain bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Lists past application attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := ledger.Open(ctx, opts.cfg.Output().Ledger, opts.logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			records, err := repo.List(ctx, limit)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Attempted", "Status", "Company", "Title", "Pages", "Reason"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 4, WidthMax: 40},
				{Number: 6, WidthMax: 50},
			})
			for _, r := range records {
				status := string(r.Status)
				if colors, ok := statusColors[r.Status]; ok && !plain {
					status = colors.Sprint(status)
				}
				t.AppendRow(table.Row{
					r.AttemptedAt.Local().Format("2006-01-02 15:04"),
					status,
					r.Company,
					r.Title,
					r.Pages,
					r.Reason,
				})
			}
			t.AppendFooter(table.Row{"", "", "", "Total", len(records), ""})
			t.Render()
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of attempts to show, 0 for all")
	historyCmd.Flags().BoolVar(&plain, "plain", false, "Disable status colors")
	return historyCmd
}

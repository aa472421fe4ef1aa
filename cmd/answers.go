package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/answers"
)

func newAnswersCmd(opts *rootOptions) *cobra.Command {
	answersCmd := &cobra.Command{
		Use:   "answers",
		Short: "Inspects and extends the answer store",
	}
	answersCmd.AddCommand(newAnswersListCmd(opts), newAnswersImportCmd(opts))
	return answersCmd
}

func newAnswersListCmd(opts *rootOptions) *cobra.Command {
	var filter string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists the stored answers in the order they were learned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := answers.Load(opts.cfg.Answers().Path, opts.logger)
			needle := answers.Normalize(filter)

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Type", "Question", "Answer"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, WidthMax: 70},
				{Number: 4, WidthMax: 40},
			})

			shown := 0
			for i, r := range store.Records() {
				if needle != "" && !strings.Contains(r.Question, needle) {
					continue
				}
				t.AppendRow(table.Row{i + 1, r.Type, r.Question, r.Answer})
				shown++
			}
			t.AppendFooter(table.Row{"", "", "Total", shown})
			t.Render()
			return nil
		},
	}
	listCmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show questions containing this text")
	return listCmd
}

func newAnswersImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Appends every valid record of another answers file to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			// Load never fails, so a missing source has to be caught here.
			if _, err := os.Stat(src); err != nil {
				return fmt.Errorf("failed to read answers file: %w", err)
			}

			store := answers.Load(opts.cfg.Answers().Path, opts.logger)
			incoming := answers.Load(src, opts.logger)
			added := store.Merge(incoming.Records())
			if err := store.Flush(); err != nil {
				return err
			}

			opts.logger.Info("Imported answers",
				zap.String("from", src),
				zap.String("into", store.Path()),
				zap.Int("added", added),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d answers into %s (%d total)\n", added, store.Path(), store.Len())
			return nil
		},
	}
}

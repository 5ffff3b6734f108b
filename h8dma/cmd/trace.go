package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/h8dma/datarecording"
	"github.com/sarchlab/h8dma/tracing"
)

var traceCmd = &cobra.Command{
	Use:   "trace <recording.sqlite3>",
	Short: "Print the transfers stored by `run --record`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTrace(commandContext(cmd), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}

func printTrace(ctx context.Context, path string, out io.Writer) error {
	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	tasks, err := tracing.ReadTasks(ctx, reader)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "WHERE\tWHAT\tSTART\tEND\tSTEPS")
	for _, t := range tasks {
		steps := make([]string, 0, len(t.Steps))
		for _, s := range t.Steps {
			steps = append(steps, fmt.Sprintf("%s@%d", s.What, s.Time))
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			t.Where, t.What, t.StartTime, t.EndTime, strings.Join(steps, " "))
	}

	return w.Flush()
}

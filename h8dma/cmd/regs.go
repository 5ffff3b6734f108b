package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/h8dma/dma"
)

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "List the register names that scenarios can use.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listRegisters(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(regsCmd)
}

func listRegisters(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tWIDTH")
	for _, r := range dma.Registers() {
		fmt.Fprintf(w, "%s\t%d\n", r, r.Width())
	}

	return w.Flush()
}

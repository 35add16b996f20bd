package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/dever/internal/optimization/functions"
)

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the benchmark catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDIMS\tBOUNDS\tMINIMUM")
			for _, name := range functions.Names() {
				fn, err := functions.Lookup(name)
				if err != nil {
					return err
				}
				dims := "any"
				if fn.Dimensions != 0 {
					dims = fmt.Sprint(fn.Dimensions)
				}
				fmt.Fprintf(w, "%s\t%s\t[%g, %g]\t%g\n", fn.Name, dims, fn.Bounds[0], fn.Bounds[1], fn.Minimum)
			}
			return w.Flush()
		},
	}
}

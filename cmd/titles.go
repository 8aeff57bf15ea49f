package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"nounfill-go/internal/catalog"
)

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "List the catalog titles, optionally filtered by group and test",
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")
		test, _ := cmd.Flags().GetString("test")

		_, _, client, err := setup()
		if err != nil {
			return err
		}
		ix, err := client.Catalog(cmd.Context())
		if err != nil {
			return err
		}
		printTitles(cmd.OutOrStdout(), ix, catalog.Filter{Group: group, Test: test})
		return nil
	},
}

func init() {
	titlesCmd.Flags().String("group", catalog.All, "collection group to show")
	titlesCmd.Flags().String("test", catalog.All, "test subgroup to show")
	rootCmd.AddCommand(titlesCmd)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printTitles renders the records visible under f as a table and returns
// how many were shown.
func printTitles(w io.Writer, ix *catalog.Index, f catalog.Filter) int {
	if f.Group == "" {
		f.Group = catalog.All
	}
	if f.Test == "" {
		f.Test = catalog.All
	}
	records := ix.Filtered(f)
	rows := lo.Map(records, func(r catalog.Record, _ int) []string {
		return []string{r.Title, r.Cambridge, r.Test}
	})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TITLE", "GROUP", "TEST").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Showing %d of %d titles\n", len(records), ix.Len())
	return len(records)
}

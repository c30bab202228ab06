package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func (c *cli) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Catalog and loan reports",
	}
	cmd.AddCommand(c.reportStatusCommand(), c.reportCategoriesCommand(), c.reportStatsCommand())
	return cmd
}

func (c *cli) reportStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count books by availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			counts, err := a.Books.CountByStatus()
			if err != nil {
				return err
			}
			c.out.Title("Books by status")
			c.out.Table("No books registered.", []string{"Status", "Books"}, [][]string{
				{"Available", strconv.Itoa(counts.Available)},
				{"On loan", strconv.Itoa(counts.Borrowed)},
				{"Total", strconv.Itoa(counts.Total)},
			})
			return nil
		},
	}
}

func (c *cli) reportCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Count books per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			counts, err := a.Books.CountByCategory()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(counts))
			for _, cc := range counts {
				rows = append(rows, []string{cc.Category, strconv.Itoa(cc.Count)})
			}
			c.out.Title("Books by category")
			c.out.Table("No books registered.", []string{"Category", "Books"}, rows)
			return nil
		},
	}
}

func (c *cli) reportStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize books, users, and loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			stats, err := a.Books.Stats()
			if err != nil {
				return err
			}
			now := a.Loans.Now()
			overdue, err := a.Loans.GetOverdueLoans(now)
			if err != nil {
				return err
			}
			c.out.Title("Library statistics")
			c.out.Table("", []string{"Metric", "Value"}, [][]string{
				{"Books", strconv.Itoa(stats.Books.Total)},
				{"Books available", strconv.Itoa(stats.Books.Available)},
				{"Books on loan", strconv.Itoa(stats.Books.Borrowed)},
				{"Users", strconv.Itoa(stats.Users)},
				{"Loans", strconv.Itoa(stats.Loans.Total)},
				{"Active loans", strconv.Itoa(stats.Loans.Active)},
				{"Returned loans", strconv.Itoa(stats.Loans.Returned)},
				{"Overdue loans", strconv.Itoa(len(overdue))},
			})
			return nil
		},
	}
}

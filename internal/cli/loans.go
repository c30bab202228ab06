package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

func (c *cli) loanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "loan",
		Aliases: []string{"loans"},
		Short:   "Lend, return, and renew books",
	}
	cmd.AddCommand(c.loanCreateCommand(), c.loanReturnCommand(), c.loanRenewCommand(), c.loanListCommand(), c.loanOverdueCommand(), c.loanHistoryCommand())
	return cmd
}

func (c *cli) loanCreateCommand() *cobra.Command {
	var (
		userID, bookID int64
		days           int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Lend a book to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			loan, err := a.Loans.CreateLoan(userID, bookID, days)
			if err != nil {
				return err
			}
			c.out.Success("Loan %d created: %q to %s, due %s.", loan.ID, loan.BookTitle, loan.UserName, formatDate(loan.DueDate))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().Int64Var(&bookID, "book", 0, "book id")
	cmd.Flags().IntVar(&days, "days", 0, "loan period in days (default from config)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

func (c *cli) loanReturnCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "return ID",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.services()
			if err != nil {
				return err
			}
			ok, err := a.Loans.ReturnLoan(id)
			if err != nil {
				return err
			}
			if !ok {
				c.out.Warn("Loan %d not found or already returned.", id)
				return nil
			}
			c.out.Success("Loan %d returned.", id)
			return nil
		},
	}
}

func (c *cli) loanRenewCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "renew ID",
		Short: "Extend the due date of an active loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.services()
			if err != nil {
				return err
			}
			ok, err := a.Loans.RenewLoan(id, days)
			if err != nil {
				return err
			}
			if !ok {
				c.out.Warn("Loan %d not found or already returned.", id)
				return nil
			}
			loan, _, err := a.Loans.GetLoan(id)
			if err != nil {
				return err
			}
			c.out.Success("Loan %d renewed, now due %s.", id, formatDate(loan.DueDate))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "extra days (default from config)")
	return cmd
}

func (c *cli) loanListCommand() *cobra.Command {
	var returned, all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if returned && all {
				return fmt.Errorf("--returned and --all are mutually exclusive")
			}
			a, err := c.services()
			if err != nil {
				return err
			}
			var loans []domain.Loan
			switch {
			case all:
				active, err := a.Loans.GetActiveLoans()
				if err != nil {
					return err
				}
				closed, err := a.Loans.GetReturnedLoans()
				if err != nil {
					return err
				}
				loans = append(active, closed...)
			case returned:
				loans, err = a.Loans.GetReturnedLoans()
			default:
				loans, err = a.Loans.GetActiveLoans()
			}
			if err != nil {
				return err
			}
			c.out.Loans(loans, a.Loans.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&returned, "returned", false, "list returned loans instead")
	cmd.Flags().BoolVar(&all, "all", false, "list active then returned loans")
	return cmd
}

func (c *cli) loanOverdueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List active loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			now := a.Loans.Now()
			loans, err := a.Loans.GetOverdueLoans(now)
			if err != nil {
				return err
			}
			c.out.Loans(loans, now)
			return nil
		},
	}
}

func (c *cli) loanHistoryCommand() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "history USER_ID",
		Short: "List the loans of one user, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.services()
			if err != nil {
				return err
			}
			var loans []domain.Loan
			if activeOnly {
				loans, err = a.Loans.GetActiveLoansByUser(id)
			} else {
				loans, err = a.Loans.GetUserHistory(id)
			}
			if err != nil {
				return err
			}
			c.out.Loans(loans, a.Loans.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only loans not yet returned")
	return cmd
}

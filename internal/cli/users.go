package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/app"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/backup"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

func (c *cli) userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage library users",
	}
	cmd.AddCommand(c.userAddCommand(), c.userListCommand(), c.userSearchCommand(), c.userShowCommand(), c.userUpdateCommand(), c.userDeleteCommand())
	return cmd
}

func (c *cli) userAddCommand() *cobra.Command {
	var in domain.UserInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			u, err := a.Users.AddUser(in)
			if err != nil {
				return err
			}
			c.out.Success("User %q added with id %d.", u.Name, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address (unique)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	for _, f := range []string{"name", "email", "phone"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (c *cli) userListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			users, err := a.Users.ListUsers()
			if err != nil {
				return err
			}
			c.out.Users(users)
			return nil
		},
	}
}

func (c *cli) userSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Search users by name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			users, err := a.Users.SearchUsers(args[0])
			if err != nil {
				return err
			}
			c.out.Users(users)
			return nil
		},
	}
}

func (c *cli) userShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a user and their loan history",
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
			u, ok, err := a.Users.GetUser(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %d: %w", id, app.ErrNotFound)
			}
			history, err := a.Loans.GetUserHistory(id)
			if err != nil {
				return err
			}
			c.out.Users([]domain.User{u})
			c.out.Title("Loan history")
			c.out.Loans(history, a.Loans.Now())
			return nil
		},
	}
}

func (c *cli) userUpdateCommand() *cobra.Command {
	var name, email, phone string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a user's name, email, or phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var upd domain.UserUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("email") {
				upd.Email = &email
			}
			if cmd.Flags().Changed("phone") {
				upd.Phone = &phone
			}
			if upd.Name == nil && upd.Email == nil && upd.Phone == nil {
				return fmt.Errorf("%w: nothing to update, pass --name, --email or --phone", app.ErrInvalidInput)
			}
			a, err := c.services()
			if err != nil {
				return err
			}
			u, err := a.Users.UpdateUser(id, upd)
			if err != nil {
				return err
			}
			c.out.Success("User %d updated.", u.ID)
			c.out.Users([]domain.User{u})
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone")
	return cmd
}

func (c *cli) userDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user without active loans",
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
			u, ok, err := a.Users.GetUser(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %d: %w", id, app.ErrNotFound)
			}
			yes, err := c.confirm(fmt.Sprintf("Delete user %q?", u.Name), "Their returned-loan history is removed too.")
			if err != nil {
				return err
			}
			if !yes {
				return backup.ErrCancelled
			}
			if err := a.Users.DeleteUser(id); err != nil {
				return err
			}
			c.out.Success("User %d deleted.", id)
			return nil
		},
	}
}

package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/provision"
)

func (c *cli) dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"database"},
		Short:   "Initialize, reset, seed, and inspect the database",
	}
	cmd.AddCommand(c.dbInitCommand(), c.dbResetCommand(), c.dbSeedCommand(), c.dbInfoCommand())
	return cmd
}

func (c *cli) dbInitCommand() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the schema, optionally with sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.provisioner(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.Init(seed)
			if err != nil {
				return err
			}
			c.out.Success("Database ready at %s.", res.Info.Location)
			switch {
			case res.Seeded != nil:
				c.printSeed(*res.Seeded)
			case seed:
				c.out.Muted("Sample data skipped: the database already has data.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load sample data into an empty database")
	return cmd
}

func (c *cli) dbResetCommand() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Back up, then drop and recreate every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := c.provisioner(ctx)
			if err != nil {
				return err
			}
			yes, err := c.confirm("Reset the database?", "Every book, user, and loan is deleted. A backup is taken first.")
			if err != nil {
				return err
			}
			opts := provision.ResetOptions{Confirmed: yes, Seed: seed}
			res, err := p.Reset(ctx, opts)
			if errors.Is(err, provision.ErrBackupFailed) {
				c.errOut.Warn("%v", err)
				again, perr := c.confirm("Reset anyway without a backup?", "The current data cannot be recovered afterwards.")
				if perr != nil {
					return perr
				}
				if !again {
					return provision.ErrCancelled
				}
				opts.AllowWithoutBackup = true
				res, err = p.Reset(ctx, opts)
			}
			if err != nil {
				return err
			}
			if res.Backup != nil {
				c.out.Muted("Previous data saved to %s.", res.Backup.Path)
			}
			c.out.Success("Database reset.")
			if res.Seeded != nil {
				c.printSeed(*res.Seeded)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load sample data after the reset")
	return cmd
}

func (c *cli) dbSeedCommand() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample books, users, and loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.provisioner(cmd.Context())
			if err != nil {
				return err
			}
			if replace {
				yes, err := c.confirm("Replace all data with the sample set?", "Every existing book, user, and loan is deleted.")
				if err != nil {
					return err
				}
				if !yes {
					return provision.ErrCancelled
				}
			}
			res, err := p.Seed(replace)
			if err != nil {
				return err
			}
			c.printSeed(res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "clear existing data first")
	return cmd
}

func (c *cli) dbInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database location, size, and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.provisioner(cmd.Context())
			if err != nil {
				return err
			}
			info, err := p.Info()
			if err != nil {
				return err
			}
			c.out.Title("Database")
			c.out.Line("Location: %s", info.Location)
			if info.External {
				c.out.Line("Type:     external")
			} else {
				c.out.Line("Size:     %s", formatSize(info.Size))
				c.out.Line("Modified: %s", info.ModTime.Local().Format("02/01/2006 15:04:05"))
			}
			rows := make([][]string, 0, len(info.Tables))
			for _, t := range info.Tables {
				rows = append(rows, []string{t.Table, strconv.Itoa(t.Rows)})
			}
			c.out.Table("No tables.", []string{"Table", "Rows"}, rows)
			return nil
		},
	}
}

func (c *cli) printSeed(res provision.SeedResult) {
	c.out.Success("Sample data loaded: %d books, %d users, %d active loans, %d returned loans.",
		res.Books, res.Users, res.ActiveLoans, res.ReturnedLoans)
}

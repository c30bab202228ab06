package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/backup"
)

func (c *cli) backupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backup",
		Aliases: []string{"backups"},
		Short:   "Create, list, restore, and prune database backups",
	}
	cmd.AddCommand(c.backupCreateCommand(), c.backupListCommand(), c.backupRestoreCommand(), c.backupCleanupCommand())
	return cmd
}

func (c *cli) backupCreateCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the live database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := c.backupManager(cmd.Context())
			if err != nil {
				return err
			}
			info, err := mgr.CreateBackup(cmd.Context(), name)
			if err != nil {
				return err
			}
			c.out.Success("Backup created: %s (%s).", info.Path, formatSize(info.Size))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "file name inside the backup directory (default <prefix>_<timestamp>.db)")
	return cmd
}

func (c *cli) backupListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := c.backupManager(cmd.Context())
			if err != nil {
				return err
			}
			backups, err := mgr.ListBackups()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{b.Name, formatSize(b.Size), b.ModTime.Local().Format("02/01/2006 15:04:05")})
			}
			c.out.Table(fmt.Sprintf("No backups in %s.", mgr.Dir()), []string{"Name", "Size", "Modified"}, rows)
			return nil
		},
	}
}

func (c *cli) backupRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore PATH",
		Short: "Replace the live database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mgr, err := c.backupManager(ctx)
			if err != nil {
				return err
			}
			path := args[0]
			if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
				return fmt.Errorf("%w: %s", backup.ErrBackupMissing, path)
			}
			yes, err := c.confirm(fmt.Sprintf("Restore %s?", path), "The current database is replaced. A before_restore backup is taken first.")
			if err != nil {
				return err
			}
			opts := backup.RestoreOptions{Confirmed: yes}
			res, err := mgr.RestoreBackup(ctx, path, opts)
			if errors.Is(err, backup.ErrSafetyBackupFailed) {
				c.errOut.Warn("%v", err)
				again, perr := c.confirm("Restore anyway without a safety backup?", "The current data cannot be recovered afterwards.")
				if perr != nil {
					return perr
				}
				if !again {
					return backup.ErrCancelled
				}
				opts.AllowWithoutSafetyBackup = true
				res, err = mgr.RestoreBackup(ctx, path, opts)
			}
			if err != nil {
				return err
			}
			if res.SafetyBackup != nil {
				c.out.Muted("Previous state saved to %s.", res.SafetyBackup.Path)
			}
			c.out.Success("Database restored from %s.", res.Restored)
			return nil
		},
	}
}

func (c *cli) backupCleanupCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove all but the most recent backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = cfg.Backup.Keep
			}
			if keep < 0 {
				return fmt.Errorf("%w: %d", backup.ErrInvalidKeepCount, keep)
			}
			mgr, err := c.backupManager(ctx)
			if err != nil {
				return err
			}
			yes, err := c.confirm(fmt.Sprintf("Keep the %d most recent backups and delete the rest?", keep), mgr.Dir())
			if err != nil {
				return err
			}
			if !yes {
				return backup.ErrCancelled
			}
			res, err := mgr.CleanupOldBackups(ctx, keep)
			if err != nil {
				return err
			}
			for _, f := range res.Failed {
				c.errOut.Warn("Could not remove %s: %v", f.Path, f.Err)
			}
			c.out.Success("Removed %d backups, kept %d.", len(res.Removed), len(res.Kept))
			return nil
		},
	}
	cmd.Flags().IntVarP(&keep, "keep", "k", backup.DefaultKeep, "number of backups to keep (default from config)")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

func newBackupCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "backup [DEST]",
		Short: "Write a consistent copy of the database (default DB.bak)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := c.cfg.DatabasePath + ".bak"
			if len(args) == 1 {
				dst = args[0]
			}

			if _, err := os.Stat(dst); err == nil {
				if !force {
					return fmt.Errorf("%s already exists, use --force to overwrite", dst)
				}
				if err := os.Remove(dst); err != nil {
					return err
				}
			}

			d, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			// VACUUM INTO produces a consistent snapshot even while the
			// server is writing.
			if _, err := d.Exec(cmd.Context(), `VACUUM INTO ?`, dst); err != nil {
				return fmt.Errorf("backup to %s: %w", dst, err)
			}
			c.logger.Info("database backup completed", "src", c.cfg.DatabasePath, "dst", dst)
			fmt.Fprintf(cmd.OutOrStdout(), "Database backup written to %s.\n", dst)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing backup")
	return cmd
}

func newRestoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [SRC]",
		Short: "Replace the database with a backup (default DB.bak); stop the server first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := c.cfg.DatabasePath + ".bak"
			if len(args) == 1 {
				src = args[0]
			}
			if err := copyFile(src, c.cfg.DatabasePath); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			// A leftover rollback journal belongs to the replaced file.
			if err := os.Remove(c.cfg.DatabasePath + "-journal"); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			c.logger.Info("database restore completed", "src", src, "dst", c.cfg.DatabasePath)
			fmt.Fprintf(cmd.OutOrStdout(), "Database restored from %s.\n", src)
			return nil
		},
	}
}

// copyFile copies src over dst through a temporary file so dst is never left
// half written.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".restoring"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

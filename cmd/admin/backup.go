package main

import (
	"fmt"
	"os"

	"github.com/Marga-Ghale/plenum-backend/internal/config"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/spf13/cobra"
)

var (
	backupUserInfo bool
	backupOutput   string
	restoreCourse  string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and restore plenum activities",
}

var backupExportCmd = &cobra.Command{
	Use:   "export <plenum-id>",
	Short: "Write a plenum backup document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(_ *config.Config, s *service.Services) error {
			data, err := s.Backup.Export(cmd.Context(), args[0], backupUserInfo)
			if err != nil {
				return err
			}
			if backupOutput == "" || backupOutput == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(backupOutput, data, 0o644); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), backupOutput)
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a plenum backup into a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read backup: %w", err)
		}
		return withServices(cmd.Context(), func(_ *config.Config, s *service.Services) error {
			plenum, err := s.Backup.Restore(cmd.Context(), data, service.RestoreOptions{
				CourseID: restoreCourse,
				UserInfo: backupUserInfo,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %q as %s in course %s\n", plenum.Name, plenum.ID, plenum.CourseID)
			return nil
		})
	},
}

func init() {
	backupCmd.PersistentFlags().BoolVar(&backupUserInfo, "user-info", false, "Include motions, grades and other user data")
	backupExportCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file (default stdout)")
	backupRestoreCmd.Flags().StringVar(&restoreCourse, "course", "", "Target course (default the original course)")

	backupCmd.AddCommand(backupExportCmd, backupRestoreCmd)
}

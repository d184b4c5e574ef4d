package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/advisorhub/internal/app"
	"github.com/turtacn/advisorhub/internal/application/dto"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Work with BBA reports",
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a report's scorecard workbook to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("report")
		out, _ := cmd.Flags().GetString("out")
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			file, err := c.Services.BBA.ExportScorecardByID(ctx, id)
			if err != nil {
				return err
			}
			return writeExport(cmd, file, out)
		})
	},
}

var workbookCmd = &cobra.Command{
	Use:   "workbook",
	Short: "Work with strategy workbooks",
}

var workbookExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a strategy workbook to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("workbook")
		out, _ := cmd.Flags().GetString("out")
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			file, err := c.Services.Workbook.ExportByID(ctx, id)
			if err != nil {
				return err
			}
			return writeExport(cmd, file, out)
		})
	},
}

// writeExport stores file at out, or under its suggested name when out is empty.
func writeExport(cmd *cobra.Command, file *dto.FileResponse, out string) error {
	if out == "" {
		out = file.FileName
	}
	if err := os.WriteFile(out, file.Data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(file.Data))
	return nil
}

func init() {
	reportExportCmd.Flags().String("report", "", "report ID")
	reportExportCmd.Flags().StringP("out", "o", "", "output path (default: suggested file name)")
	_ = reportExportCmd.MarkFlagRequired("report")
	reportCmd.AddCommand(reportExportCmd)

	workbookExportCmd.Flags().String("workbook", "", "workbook ID")
	workbookExportCmd.Flags().StringP("out", "o", "", "output path (default: suggested file name)")
	_ = workbookExportCmd.MarkFlagRequired("workbook")
	workbookCmd.AddCommand(workbookExportCmd)

	rootCmd.AddCommand(reportCmd, workbookCmd)
}

//Personal.AI order the ending

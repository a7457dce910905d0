package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"github.com/spf13/cobra"
)

var (
	year, month int

	historyQuery  string
	historyYear   int
	historyMonth  int
	historyStatus string
	page          int
	pageSize      int

	exportFormat string
	exportDir    string

	confirmClear bool
)

func addCommands(root *cobra.Command) {
	commitCmd := &cobra.Command{
		Use:   "commit [payload]",
		Short: "Validate and save one scanned label",
		Args:  cobra.ExactArgs(1),
		RunE:  runCommit,
	}
	previewCmd := &cobra.Command{
		Use:   "preview [payload]",
		Short: "Show the verdict for a label without saving it",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
	for _, c := range []*cobra.Command{commitCmd, previewCmd} {
		c.Flags().IntVar(&year, "year", 0, "Reporting year (required)")
		c.Flags().IntVar(&month, "month", 0, "Reporting month 1-12 (required)")
		_ = c.MarkFlagRequired("year")
		_ = c.MarkFlagRequired("month")
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Complete offline records and upload pending ones",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored records, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().StringVarP(&historyQuery, "query", "q", "", "Free-text filter")
	historyCmd.Flags().IntVar(&historyYear, "year", 0, "Reporting year")
	historyCmd.Flags().IntVar(&historyMonth, "month", 0, "Reporting month")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "COMPLETE, ENRICHMENT_PENDING or ENRICHMENT_FAILED")
	historyCmd.Flags().IntVar(&page, "page", 1, "Page number")
	historyCmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size (0 lists everything)")

	deleteCmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete records by id",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDelete,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored record",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}
	clearCmd.Flags().BoolVar(&confirmClear, "yes", false, "Confirm clearing the whole history")

	exportCmd := &cobra.Command{
		Use:   "export [id...]",
		Short: "Write records to a JSON or XLSX file",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json or xlsx")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "Output directory")

	root.AddCommand(commitCmd, previewCmd, syncCmd, historyCmd, deleteCmd, clearCmd, exportCmd)
}

func scanInput(raw string) *dto.CommitScanInput {
	return &dto.CommitScanInput{
		RawPayload: raw,
		Year:       year,
		Month:      month,
		DeviceID:   deviceID,
		ScannedBy:  scannedBy,
		Online:     online,
	}
}

func runCommit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	res, err := application.UseCase.CommitScan(ctx, scanInput(args[0]))
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	res, err := application.UseCase.PreviewScan(ctx, scanInput(args[0]))
	if res != nil {
		if perr := printJSON(cmd, res); perr != nil {
			return perr
		}
	}
	return err
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	summary, err := application.UseCase.Sync(ctx, &dto.SyncInput{Online: online})
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	records, total, err := application.UseCase.ListHistory(ctx, &dto.HistoryFilters{
		Query:        historyQuery,
		Year:         historyYear,
		Month:        historyMonth,
		Completeness: model.CompletenessTag(historyStatus),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"total": total, "records": records})
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	removed, err := application.UseCase.DeleteRecords(ctx, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d record(s)\n", removed)
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !confirmClear {
		return fmt.Errorf("refusing to clear history without --yes")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	removed, err := application.UseCase.ClearHistory(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %d record(s)\n", removed)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	file, err := application.UseCase.Export(ctx, &dto.ExportInput{
		Format: dto.ExportFormat(exportFormat),
		IDs:    args,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(exportDir, file.Filename)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d record(s) to %s\n", file.Count, path)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"contracts/internal/core"
	"contracts/internal/export"
	"contracts/internal/report"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func communitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "communities",
		Short: "List communities in workbook order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			communities, err := a.svc.Options(cmd.Context())
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), communities, "No communities found.")
		},
	}
}

func seriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "series <community>",
		Short: "List the series of a community",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.svc.SeriesFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), series, fmt.Sprintf("No series found for %q.", args[0]))
		},
	}
}

func tableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "table <community> <series>",
		Short: "Print the Work Type by Plan totals",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Build(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), res)
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var (
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export <community> <series>",
		Short: "Write the table as xlsx or pdf",
		Long: `Write the Work Type by Plan table for one community and series to
{community}_{series}.{xlsx|pdf} inside --out.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			art, err := a.svc.Export(cmd.Context(), args[0], args[1], f)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			path := filepath.Join(outDir, art.Filename)
			if err := os.WriteFile(path, art.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(art.Data))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatXLSX), "export format (xlsx, pdf)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the file into")
	return cmd
}

func printList(w io.Writer, items []string, empty string) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render(empty))
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintln(w, item); err != nil {
			return err
		}
	}
	return nil
}

func printTable(w io.Writer, res report.Result) error {
	title := titleStyle.Render(fmt.Sprintf("%s / %s", res.Selection.Community, res.Selection.Series))
	if res.Pivot.IsEmpty() {
		_, err := fmt.Fprintf(w, "%s\n%s\n", title, mutedStyle.Render("No contracts match this selection."))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(res.Table.Header...).
		Rows(res.Table.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})

	summary := mutedStyle.Render(fmt.Sprintf("%d line items, total %s", res.Matched, core.FormatAmount(res.Pivot.Total())))
	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n", title, t.Render(), summary)
	return err
}

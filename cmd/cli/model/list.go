package model

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
)

type listCommand struct {
	*common.Context

	// flags
	family string
}

func ListCommand(ctx *common.Context) *cobra.Command {
	var cmd listCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "list-models",
		Short:             "List known models",
		Long:              "List the models in the hardware catalog. This machine is marked with \"*\".",
		GroupID:           groupID,
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().StringVar(&cmd.family, "family", "", "only list models of a family, e.g. MacBookPro")

	return cobraCmd
}

func (cmd *listCommand) run(cobraCmd *cobra.Command, _ []string) error {
	host := hostModel(cobraCmd.Context(), cmd.Context)

	err := cmd.printModelsTable(os.Stdout, host)
	if err != nil {
		return fmt.Errorf("error printing list: %v", err)
	}

	return nil
}

func (cmd *listCommand) modelRows(host string) [][]string {
	var rows [][]string
	for _, name := range cmd.Catalog.ModelNames() {
		record, _ := cmd.Catalog.Model(name)
		if cmd.family != "" && !strings.EqualFold(record.Family(), cmd.family) {
			continue
		}

		// Mark this machine with "*"
		if name == host {
			name = name + "*"
		}

		spoof := "no"
		if cmd.Catalog.InSet(catalog.SetMustSpoof, record.Model) {
			spoof = "yes"
		}

		rows = append(rows, []string{
			name,
			record.BoardId,
			record.CpuGeneration.String(),
			constants.OSName(record.MaxOSSupported),
			spoof,
		})
	}
	return rows
}

func (cmd *listCommand) printModelsTable(w io.Writer, host string) error {
	var headerRow = []string{"model", "board-id", "cpu", "max-os", "spoof"}
	tableRows := cmd.modelRows(host)

	if len(tableRows) == 0 {
		fmt.Fprintln(os.Stderr, "No models found.")
		return nil
	}

	options := []tablewriter.Option{
		tablewriter.WithRenderer(renderer.NewColorized(renderer.ColorizedConfig{
			Header: renderer.Tint{
				FG: renderer.Colors{color.Bold}, // Bold headers
			},
			Column: renderer.Tint{
				FG: renderer.Colors{color.Reset},
				BG: renderer.Colors{color.Reset},
			},
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off, ShowFooter: tw.Off, BetweenRows: tw.Off, BetweenColumns: tw.Off},
				Lines: tw.Lines{
					ShowTop:        tw.Off,
					ShowBottom:     tw.Off,
					ShowHeaderLine: tw.Off,
					ShowFooterLine: tw.Off,
				},
				CompactMode: tw.On,
			},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			MaxWidth: 80,
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
				Padding:   tw.CellPadding{Global: tw.Padding{Overwrite: true, Right: "  "}},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapTruncate},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Padding:    tw.CellPadding{Global: tw.Padding{Overwrite: true, Right: "  "}},
			},
		}),
	}

	table := tablewriter.NewTable(w, options...)
	table.Header(headerRow)
	err := table.Bulk(tableRows)
	if err != nil {
		return fmt.Errorf("error adding data to table: %v", err)
	}
	err = table.Render()
	if err != nil {
		return fmt.Errorf("error rendering table: %v", err)
	}
	return nil
}

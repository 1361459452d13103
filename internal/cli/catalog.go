package cli

import (
	"github.com/spf13/cobra"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

func newCatalogCmd(app *App) *cobra.Command {
	var regions bool

	cmd := &cobra.Command{
		Use:   "catalogo",
		Short: "Mostra categorias ou regiões e igrejas atendidas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if regions {
				res := app.client.Send(cmd.Context(), protocol.ListRegionsAndChurchesRequest{})
				return result(cmd, app, res, &protocol.RegionsResponse{})
			}
			res := app.client.Send(cmd.Context(), protocol.ListCategoriesRequest{})
			return result(cmd, app, res, &protocol.CategoriesResponse{})
		},
	}

	cmd.Flags().BoolVar(&regions, "regioes", false, "Lista regiões e igrejas em vez de categorias")
	return cmd
}

func newReportCmd(app *App) *cobra.Command {
	var req protocol.GenerateReportRequest

	cmd := &cobra.Command{
		Use:   "relatorio",
		Short: "Consolidado de chamados por período",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermViewReports); err != nil {
				return err
			}
			return result(cmd, app, app.client.Send(cmd.Context(), req), &protocol.ReportResponse{})
		},
	}

	cmd.Flags().StringVar(&req.Region, "regiao", "", "Região")
	cmd.Flags().StringVar(&req.From, "de", "", "Data inicial (AAAA-MM-DD)")
	cmd.Flags().StringVar(&req.To, "ate", "", "Data final inclusiva (AAAA-MM-DD)")
	return cmd
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "usuarios",
		Aliases: []string{"usuario"},
		Short:   "Voluntários e equipe",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersCreateCmd(app))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var req protocol.ListUsersRequest

	cmd := &cobra.Command{
		Use:   "listar",
		Short: "Lista usuários",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermViewUsers); err != nil {
				return err
			}
			return result(cmd, app, app.client.Send(cmd.Context(), req), &protocol.UserListResponse{})
		},
	}

	cmd.Flags().StringVar(&req.Role, "papel", "", "Papel (VOLUNTARIO, SECRETARIA, ...)")
	cmd.Flags().StringVar(&req.Region, "regiao", "", "Região")
	cmd.Flags().StringVar(&req.Status, "situacao", "", "Situação da conta")
	return cmd
}

func newUsersCreateCmd(app *App) *cobra.Command {
	var req protocol.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "criar",
		Short: "Cadastra voluntário ou membro da equipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermManageUsers); err != nil {
				return err
			}
			if req.Password == "" {
				req.Password = envOr("BALCAO_NOVA_SENHA", "")
			}
			return result(cmd, app, app.client.Send(cmd.Context(), req), &protocol.UserResponse{})
		},
	}

	cmd.Flags().StringVar(&req.Name, "nome", "", "Nome")
	cmd.Flags().StringVar(&req.Email, "email", "", "E-mail")
	cmd.Flags().StringVar(&req.Phone, "telefone", "", "Telefone")
	cmd.Flags().StringVar(&req.Password, "senha", "", "Senha inicial (padrão: BALCAO_NOVA_SENHA)")
	cmd.Flags().StringVar(&req.Role, "papel", "VOLUNTARIO", "Papel")
	cmd.Flags().StringVar(&req.Region, "regiao", "", "Região")
	cmd.Flags().StringVar(&req.Church, "igreja", "", "Igreja")
	cmd.Flags().StringVar(&req.Status, "situacao", "", "Situação inicial da conta")
	return cmd
}

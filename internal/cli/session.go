package cli

import (
	"bufio"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inicia a sessão do operador",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = envOr("BALCAO_SENHA", "")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return writeErr(cmd, err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			user, err := app.session.Login(cmd.Context(), email, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"user": user})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("BALCAO_EMAIL", ""), "E-mail do operador")
	cmd.Flags().StringVar(&password, "senha", "", "Senha (padrão: BALCAO_SENHA ou stdin)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Encerra a sessão local",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.client.Purge()
			if err := app.session.Logout(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"loggedOut": true})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Mostra o usuário da sessão atual",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSession(cmd, app); err != nil {
				return err
			}
			issued, _ := app.session.IssuedAt()
			return writeOut(cmd, app, map[string]any{
				"user":      app.session.CurrentUser(),
				"issuedAt":  issued.UTC().Format(time.RFC3339),
				"expiresAt": issued.Add(app.cfg.SessionTimeout).UTC().Format(time.RFC3339),
				"online":    app.client.Online(),
			})
		},
	}
}

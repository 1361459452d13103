package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/deadletter"
)

var errNoDeadLetters = errors.New("dead-letter desativado: defina BALCAO_DEADLETTER_PATH")

func newQueueCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fila",
		Short: "Itens da fila offline que não foram entregues",
	}
	cmd.AddCommand(newQueueListCmd(app))
	cmd.AddCommand(newQueueReplayCmd(app))
	return cmd
}

func newQueueListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "listar",
		Short: "Lista itens guardados como dead-letter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.deadLetters == nil {
				return writeErr(cmd, errNoDeadLetters)
			}
			entries, err := app.deadLetters.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if entries == nil {
				entries = []deadletter.Entry{}
			}
			return writeOut(cmd, app, map[string]any{"items": entries, "count": len(entries)})
		},
	}
}

type replayOutcome struct {
	ID      int64  `json:"id"`
	Action  string `json:"action"`
	OK      bool   `json:"ok"`
	Queued  bool   `json:"queued,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

func newQueueReplayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reenviar [id...]",
		Short: "Reenvia itens guardados (todos quando nenhum id é informado)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.deadLetters == nil {
				return writeErr(cmd, errNoDeadLetters)
			}
			ctx := cmd.Context()

			wanted := map[int64]bool{}
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return writeErr(cmd, errUnknown("id", arg))
				}
				wanted[id] = true
			}

			entries, err := app.deadLetters.List(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}

			outcomes := []replayOutcome{}
			for _, e := range entries {
				if len(wanted) > 0 && !wanted[e.ID] {
					continue
				}
				res := app.client.Replay(ctx, e.DeadLetter)
				outcomes = append(outcomes, replayOutcome{
					ID:      e.ID,
					Action:  e.Action,
					OK:      res.OK,
					Queued:  res.Queued,
					Kind:    string(res.Error),
					Message: res.Message,
				})
				// Itens reenfileirados voltam ao dead-letter com novo id ao encerrar.
				if res.OK || res.Queued {
					if err := app.deadLetters.Delete(ctx, e.ID); err != nil && !errors.Is(err, deadletter.ErrNotFound) {
						return writeErr(cmd, err)
					}
				}
			}
			return writeOut(cmd, app, map[string]any{"items": outcomes})
		},
	}
}

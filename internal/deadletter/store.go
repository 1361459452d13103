// Package deadletter guarda em SQLite local os itens da fila offline que
// falharam em todas as tentativas, para revisão e reenvio manual.
package deadletter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/orchestrator"
)

// ErrNotFound indica item inexistente.
var ErrNotFound = errors.New("dead-letter não encontrado")

// Entry é um item guardado.
type Entry struct {
	ID int64
	orchestrator.DeadLetter
}

// Store implementa orchestrator.DeadLetterSink.
type Store struct {
	db *sql.DB
}

// Open abre (e cria, se preciso) o banco no caminho informado.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("criar diretório: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	const schema = `CREATE TABLE IF NOT EXISTS dead_letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL UNIQUE,
		action TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		enqueued_at_unixms INTEGER NOT NULL,
		failed_at_unixms INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrar dead-letter: %w", err)
	}
	return &Store{db: db}, nil
}

// Close fecha o banco.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store grava o item. Reenvios do mesmo request_id substituem o registro.
func (s *Store) Store(ctx context.Context, dl orchestrator.DeadLetter) error {
	payload, err := json.Marshal(dl.Payload)
	if err != nil {
		return fmt.Errorf("serializar payload: %w", err)
	}
	const query = `
		INSERT INTO dead_letters (request_id, action, payload_json, kind, message, enqueued_at_unixms, failed_at_unixms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			kind = excluded.kind,
			message = excluded.message,
			failed_at_unixms = excluded.failed_at_unixms
	`
	_, err = s.db.ExecContext(ctx, query,
		dl.RequestID,
		dl.Action,
		string(payload),
		string(dl.Kind),
		dl.Message,
		dl.EnqueuedAt.UnixMilli(),
		dl.FailedAt.UnixMilli(),
	)
	return err
}

// List devolve os itens em ordem de chegada à fila.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	const query = `
		SELECT id, request_id, action, payload_json, kind, message, enqueued_at_unixms, failed_at_unixms
		FROM dead_letters
		ORDER BY enqueued_at_unixms, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			payload, kind      string
			enqueued, failedAt int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Action, &payload, &kind, &e.Message, &enqueued, &failedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("payload do item %d: %w", e.ID, err)
		}
		e.Kind = orchestrator.ErrorKind(kind)
		e.EnqueuedAt = time.UnixMilli(enqueued).UTC()
		e.FailedAt = time.UnixMilli(failedAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete remove o item.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

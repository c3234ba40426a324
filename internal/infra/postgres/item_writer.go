package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"abbrev-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenBun opens a bun handle for migrations and bulk writes.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// ItemWriter upserts quiz items keyed by (abbreviation, category).
type ItemWriter struct {
	db *bun.DB
}

func NewItemWriter(db *bun.DB) *ItemWriter {
	return &ItemWriter{db: db}
}

// Upsert writes all items in one transaction and returns how many rows were written.
func (w *ItemWriter) Upsert(ctx context.Context, items []domain.QuizItem) (int, error) {
	written := 0
	err := w.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range items {
			options, err := json.Marshal(item.Options)
			if err != nil {
				return fmt.Errorf("marshal options of %s: %w", item.Abbreviation, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO quiz_items (abbreviation, correct_answer, options, category)
				VALUES (?, ?, ?::jsonb, ?)
				ON CONFLICT (abbreviation, category)
				DO UPDATE SET correct_answer = EXCLUDED.correct_answer, options = EXCLUDED.options`,
				item.Abbreviation, item.CorrectAnswer, string(options), item.Category)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", item.Abbreviation, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"abbrev-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PoolLoader loads quiz items from Postgres; options are stored as JSONB.
type PoolLoader struct {
	pool *pgxpool.Pool
}

func NewPoolLoader(pool *pgxpool.Pool) *PoolLoader {
	return &PoolLoader{pool: pool}
}

func (l *PoolLoader) LoadItems(ctx context.Context) ([]domain.QuizItem, error) {
	rows, err := l.pool.Query(ctx, `SELECT abbreviation, correct_answer, options, category FROM quiz_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load quiz items: %w", err)
	}
	defer rows.Close()

	var items []domain.QuizItem
	for rows.Next() {
		var (
			item domain.QuizItem
			raw  []byte
		)
		if err := rows.Scan(&item.Abbreviation, &item.CorrectAnswer, &raw, &item.Category); err != nil {
			return nil, fmt.Errorf("scan quiz item: %w", err)
		}
		if err := json.Unmarshal(raw, &item.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", item.Abbreviation, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quiz items: %w", err)
	}
	return items, nil
}

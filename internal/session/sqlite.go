package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/carwise/gearbox/internal/db"
)

// SQLiteStore persists conversation contexts in SQLite.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a store backed by the given database.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

func (s *SQLiteStore) Load(ctx context.Context, conversationID string) (*Context, error) {
	c := NewContext(conversationID)

	var make_, model, vin string
	var year int
	err := s.db.QueryRowContext(ctx,
		`SELECT vehicle_make, vehicle_model, vehicle_year, vehicle_vin, created_at, updated_at
		 FROM conversations WHERE id = ?`, conversationID,
	).Scan(&make_, &model, &year, &vin, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if make_ != "" || model != "" || year != 0 || vin != "" {
		c.Vehicle = &VehicleIdentity{Make: make_, Model: model, Year: year, VIN: vin}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fact_type, topic, value, confidence, established_at, ruled_out, ruled_out_by
		 FROM facts WHERE conversation_id = ? ORDER BY position ASC`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading facts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f Fact
		var ruledOut int
		if err := rows.Scan(&f.ID, &f.Type, &f.Topic, &f.Value, &f.Confidence, &f.EstablishedAt, &ruledOut, &f.RuledOutBy); err != nil {
			return nil, fmt.Errorf("scanning fact: %w", err)
		}
		f.RuledOut = ruledOut != 0
		c.Facts = append(c.Facts, f)
	}
	return c, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, c *Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var v VehicleIdentity
	if c.Vehicle != nil {
		v = *c.Vehicle
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, vehicle_make, vehicle_model, vehicle_year, vehicle_vin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   vehicle_make = excluded.vehicle_make,
		   vehicle_model = excluded.vehicle_model,
		   vehicle_year = excluded.vehicle_year,
		   vehicle_vin = excluded.vehicle_vin,
		   updated_at = excluded.updated_at`,
		c.ConversationID, v.Make, v.Model, v.Year, v.VIN, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}

	// Facts are append-only but rule-out flips flags on old rows, so the
	// simplest correct write is a full replace inside the transaction.
	if _, err := tx.ExecContext(ctx, `DELETE FROM facts WHERE conversation_id = ?`, c.ConversationID); err != nil {
		return fmt.Errorf("clearing facts: %w", err)
	}
	for i, f := range c.Facts {
		ruledOut := 0
		if f.RuledOut {
			ruledOut = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO facts (id, conversation_id, position, fact_type, topic, value, confidence, established_at, ruled_out, ruled_out_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, c.ConversationID, i, f.Type, f.Topic, f.Value, f.Confidence, f.EstablishedAt, ruledOut, f.RuledOutBy,
		)
		if err != nil {
			return fmt.Errorf("saving fact: %w", err)
		}
	}

	return tx.Commit()
}

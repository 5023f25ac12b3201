package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"powermesh/internal/models"
)

func scanRule(row pgx.Row) (*models.Rule, error) {
	var r models.Rule
	var conditions, actions []byte
	if err := row.Scan(&r.ID, &r.UserID, &r.HomeID, &r.Name, &r.Enabled, &conditions, &actions, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
		return nil, fmt.Errorf("rule %s: bad conditions document: %w", r.ID, err)
	}
	if err := json.Unmarshal(actions, &r.Actions); err != nil {
		return nil, fmt.Errorf("rule %s: bad actions document: %w", r.ID, err)
	}
	return &r, nil
}

func (d *DB) queryRules(ctx context.Context, query string, args ...any) ([]models.Rule, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []models.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

const ruleColumns = "id, user_id, home_id, name, enabled, conditions, actions, created_at"

// EnabledRules fetches all enabled rules for a home. Disabled rules are
// filtered here so the engine never sees them.
func (d *DB) EnabledRules(ctx context.Context, homeID string) ([]models.Rule, error) {
	return d.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE home_id = $1 AND enabled = true ORDER BY created_at", homeID)
}

// RulesByUser fetches all rules owned by a user within a home.
func (d *DB) RulesByUser(ctx context.Context, userID, homeID string) ([]models.Rule, error) {
	return d.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE user_id = $1 AND home_id = $2 ORDER BY created_at", userID, homeID)
}

// GetRule fetches one rule by id, scoped to its owner.
// Returns (nil, nil) when no such rule exists.
func (d *DB) GetRule(ctx context.Context, ruleID, userID string) (*models.Rule, error) {
	r, err := scanRule(d.pool.QueryRow(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE id = $1 AND user_id = $2", ruleID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// UpsertRule creates or replaces a rule by id.
func (d *DB) UpsertRule(ctx context.Context, r models.Rule) error {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx, `
		INSERT INTO rules (id, user_id, home_id, name, enabled, conditions, actions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, enabled = EXCLUDED.enabled,
		              conditions = EXCLUDED.conditions, actions = EXCLUDED.actions
		WHERE rules.user_id = EXCLUDED.user_id`,
		r.ID, r.UserID, r.HomeID, r.Name, r.Enabled, conditions, actions, r.CreatedAt)
	return err
}

// SetRuleEnabled toggles a rule's enabled flag.
func (d *DB) SetRuleEnabled(ctx context.Context, ruleID, userID string, enabled bool) error {
	tag, err := d.pool.Exec(ctx,
		"UPDATE rules SET enabled = $1 WHERE id = $2 AND user_id = $3", enabled, ruleID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteRule removes one rule, scoped to its owner.
func (d *DB) DeleteRule(ctx context.Context, ruleID, userID string) error {
	tag, err := d.pool.Exec(ctx,
		"DELETE FROM rules WHERE id = $1 AND user_id = $2", ruleID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteRulesByUser removes all of a user's rules within a home and returns
// the number deleted.
func (d *DB) DeleteRulesByUser(ctx context.Context, userID, homeID string) (int64, error) {
	tag, err := d.pool.Exec(ctx,
		"DELETE FROM rules WHERE user_id = $1 AND home_id = $2", userID, homeID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

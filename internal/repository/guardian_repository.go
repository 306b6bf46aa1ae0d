package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/educenter-crm-api/internal/models"
)

// GuardianRepository resolves parents linked to students.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository creates a guardian repository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// ListNotifiable returns guardians of the given student users who enabled
// Telegram notifications and have a chat id on file.
func (r *GuardianRepository) ListNotifiable(ctx context.Context, studentUserIDs []string) ([]models.GuardianContact, error) {
	if len(studentUserIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT pp.id AS parent_id, pu.full_name AS parent_name, pp.telegram_chat_id,
		su.id AS student_user_id, su.full_name AS student_full_name
		FROM student_profiles sp
		JOIN users su ON su.id = sp.user_id
		JOIN parent_student_links l ON l.student_id = sp.id
		JOIN parent_profiles pp ON pp.id = l.parent_id
		JOIN users pu ON pu.id = pp.user_id
		WHERE sp.user_id = ANY($1::uuid[])
		AND pp.telegram_enabled = TRUE
		AND pp.telegram_chat_id IS NOT NULL AND pp.telegram_chat_id <> ''
		ORDER BY su.full_name, pu.full_name`
	var contacts []models.GuardianContact
	if err := r.db.SelectContext(ctx, &contacts, query, pq.Array(studentUserIDs)); err != nil {
		return nil, fmt.Errorf("list notifiable guardians: %w", err)
	}
	return contacts, nil
}

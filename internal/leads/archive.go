package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/models"
)

// Schema creates the archive tables. Safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS loan_applications (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	loan_amount   NUMERIC(12,2) NOT NULL,
	loan_purpose  TEXT NOT NULL,
	email         TEXT NOT NULL,
	phone         TEXT NOT NULL,
	form_data     JSONB NOT NULL,
	manual        BOOLEAN NOT NULL DEFAULT FALSE,
	submitted_at  TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_log (
	id            BIGSERIAL PRIMARY KEY,
	event_type    TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL,
	details       JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);`

// Archive keeps a durable copy of every application in Postgres.
type Archive struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewArchive(db *sql.DB, log logger.Logger) *Archive {
	return &Archive{
		db:     db,
		logger: logger.ForComponent(log, "archive"),
		now:    time.Now,
	}
}

func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}

func (a *Archive) Record(ctx context.Context, stage Stage, rec *models.ApplicationRecord) error {
	form := rec.FormData
	form.SMSCode = ""
	formJSON, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}

	updatedAt := a.now().UTC()
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO loan_applications (
			id, status, loan_amount, loan_purpose, email, phone,
			form_data, manual, submitted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			phone = EXCLUDED.phone,
			form_data = EXCLUDED.form_data,
			manual = EXCLUDED.manual,
			updated_at = EXCLUDED.updated_at`,
		rec.ApplicationID,
		string(rec.Status),
		form.LoanAmount,
		form.LoanPurpose,
		form.Email,
		form.Phone,
		formJSON,
		rec.ManualVerification,
		rec.CreatedAt().UTC(),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert application: %w", err)
	}

	// audit entry is best effort
	detailsJSON, err := json.Marshal(map[string]interface{}{
		"status":               rec.Status,
		"verificationAttempts": rec.VerificationAttempts,
		"manualVerification":   rec.ManualVerification,
	})
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"application_"+string(stage),
		"loan_application",
		rec.ApplicationID,
		detailsJSON,
		updatedAt,
	)
	if err != nil {
		a.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"applicationId": rec.ApplicationID,
		})
	}

	a.logger.Info("application archived", map[string]interface{}{
		"applicationId": rec.ApplicationID,
		"stage":         string(stage),
		"status":        string(rec.Status),
	})
	return nil
}

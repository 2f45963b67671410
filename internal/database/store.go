package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetModel retrieves the model record for a user. Returns ErrNotFound
	// when no record exists; other errors indicate a failing query.
	GetModel(ctx context.Context, userID string) (*ModelRecord, error)

	// SaveModel inserts or updates a model record keyed by user id.
	SaveModel(ctx context.Context, model *ModelRecord) error

	// UpdateModelColor sets a new color on the user's model and marks the
	// original material as overridden. Returns ErrNotFound when the user has
	// no model record.
	UpdateModelColor(ctx context.Context, userID, color string) error

	// RevertModelColor restores the model's original material.
	// Returns ErrNotFound when the user has no model record.
	RevertModelColor(ctx context.Context, userID string) error

	// GetUser retrieves the user record. Returns ErrNotFound when absent.
	GetUser(ctx context.Context, userID string) (*UserRecord, error)

	// SaveUser inserts or updates a user record keyed by user id.
	SaveUser(ctx context.Context, user *UserRecord) error

	// UpdateUserAvatar sets the avatar URL on the user record, creating the
	// record if it does not exist yet.
	UpdateUserAvatar(ctx context.Context, userID, avatarURL string) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetModel retrieves the model record for a user.
func (s *sqlxStore) GetModel(ctx context.Context, userID string) (*ModelRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var model ModelRecord
	query := `SELECT id, created_at, updated_at, user_id, color, original_material, model_url
	          FROM models WHERE user_id = ? ORDER BY id LIMIT 1`

	err := s.db.GetContext(ctx, &model, query, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.WarnContext(ctx, "No model found for user", "user_id", userID)
		return nil, ErrNotFound

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching model",
			"user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting model by user ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get model for user %s: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Successfully retrieved model", "user_id", userID)
	return &model, nil
}

// SaveModel inserts or updates a model record based on UserID.
// Uses a transaction to ensure atomicity.
func (s *sqlxStore) SaveModel(ctx context.Context, model *ModelRecord) error {
	if model == nil {
		return fmt.Errorf("cannot save nil model")
	}
	if model.UserID == "" {
		return fmt.Errorf("model must have a non-empty user_id")
	}

	now := time.Now().UTC()
	model.UpdatedAt = now
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving model",
			"user_id", model.UserID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM models WHERE user_id = ? LIMIT 1`, model.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error checking if model exists",
			"user_id", model.UserID, "error", err)
		return fmt.Errorf("failed to check if model exists for user %s: %w", model.UserID, err)
	}

	var result sql.Result
	if exists {
		query := `
			UPDATE models SET
				color = :color,
				original_material = :original_material,
				model_url = :model_url,
				updated_at = :updated_at
			WHERE user_id = :user_id
		`
		result, err = tx.NamedExecContext(ctx, query, model)
	} else {
		query := `
			INSERT INTO models (
				user_id, color, original_material, model_url, created_at, updated_at
			) VALUES (
				:user_id, :color, :original_material, :model_url, :created_at, :updated_at
			)
		`
		result, err = tx.NamedExecContext(ctx, query, model)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving model", "user_id", model.UserID, "error", err)
		return fmt.Errorf("failed to save model for user %s: %w", model.UserID, err)
	}

	if !exists {
		if id, idErr := result.LastInsertId(); idErr == nil {
			//nolint:gosec // integer overflow conversion is acceptable here
			model.ID = uint(id)
		} else {
			s.logger.WarnContext(ctx, "Could not get last insert ID for model",
				"user_id", model.UserID, "error", idErr)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"user_id", model.UserID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	operation := "updated"
	if !exists {
		operation = "created"
	}
	s.logger.DebugContext(ctx, "Model saved successfully",
		"operation", operation, "user_id", model.UserID)
	return nil
}

// UpdateModelColor sets a new color on the user's model and clears the
// original material flag.
func (s *sqlxStore) UpdateModelColor(ctx context.Context, userID, color string) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if color == "" {
		return fmt.Errorf("color cannot be empty")
	}

	query := `UPDATE models SET color = ?, original_material = FALSE, updated_at = ?
	          WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, color, time.Now().UTC(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating model color", "user_id", userID, "error", err)
		return fmt.Errorf("failed to update model color for user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count", "user_id", userID, "error", err)
	} else if affected == 0 {
		s.logger.WarnContext(ctx, "No model to update color for", "user_id", userID)
		return ErrNotFound
	}

	s.logger.InfoContext(ctx, "Updated model color", "user_id", userID, "color", color)
	return nil
}

// RevertModelColor restores the model's original material.
func (s *sqlxStore) RevertModelColor(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	query := `UPDATE models SET original_material = TRUE, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error reverting model color", "user_id", userID, "error", err)
		return fmt.Errorf("failed to revert model color for user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count", "user_id", userID, "error", err)
	} else if affected == 0 {
		s.logger.WarnContext(ctx, "No model to revert color for", "user_id", userID)
		return ErrNotFound
	}

	s.logger.InfoContext(ctx, "Reverted model to original materials", "user_id", userID)
	return nil
}

// GetUser retrieves the user record.
func (s *sqlxStore) GetUser(ctx context.Context, userID string) (*UserRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var user UserRecord
	query := `SELECT id, created_at, updated_at, user_id, avatar_url
	          FROM users WHERE user_id = ? ORDER BY id LIMIT 1`

	err := s.db.GetContext(ctx, &user, query, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user record found", "user_id", userID)
		return nil, ErrNotFound

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user",
			"user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	return &user, nil
}

// SaveUser inserts or updates a user record based on UserID.
// Uses a transaction to ensure atomicity.
func (s *sqlxStore) SaveUser(ctx context.Context, user *UserRecord) error {
	if user == nil {
		return fmt.Errorf("cannot save nil user")
	}
	if user.UserID == "" {
		return fmt.Errorf("user must have a non-empty user_id")
	}

	now := time.Now().UTC()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving user",
			"user_id", user.UserID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM users WHERE user_id = ? LIMIT 1`, user.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error checking if user exists",
			"user_id", user.UserID, "error", err)
		return fmt.Errorf("failed to check if user exists %s: %w", user.UserID, err)
	}

	var result sql.Result
	if exists {
		query := `
			UPDATE users SET
				avatar_url = :avatar_url,
				updated_at = :updated_at
			WHERE user_id = :user_id
		`
		result, err = tx.NamedExecContext(ctx, query, user)
	} else {
		query := `
			INSERT INTO users (
				user_id, avatar_url, created_at, updated_at
			) VALUES (
				:user_id, :avatar_url, :created_at, :updated_at
			)
		`
		result, err = tx.NamedExecContext(ctx, query, user)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving user", "user_id", user.UserID, "error", err)
		return fmt.Errorf("failed to save user %s: %w", user.UserID, err)
	}

	if !exists {
		if id, idErr := result.LastInsertId(); idErr == nil {
			//nolint:gosec // integer overflow conversion is acceptable here
			user.ID = uint(id)
		} else {
			s.logger.WarnContext(ctx, "Could not get last insert ID for user",
				"user_id", user.UserID, "error", idErr)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"user_id", user.UserID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	operation := "updated"
	if !exists {
		operation = "created"
	}
	s.logger.DebugContext(ctx, "User saved successfully",
		"operation", operation, "user_id", user.UserID)
	return nil
}

// UpdateUserAvatar sets the avatar URL on the user record, inserting the
// record first if the user has never been seen.
func (s *sqlxStore) UpdateUserAvatar(ctx context.Context, userID, avatarURL string) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for avatar update",
			"user_id", userID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET avatar_url = ?, updated_at = ? WHERE user_id = ?`,
		avatarURL, now, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating user avatar", "user_id", userID, "error", err)
		return fmt.Errorf("failed to update avatar for user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count", "user_id", userID, "error", err)
	}
	if affected == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (user_id, avatar_url, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			userID, avatarURL, now, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error inserting user record", "user_id", userID, "error", err)
			return fmt.Errorf("failed to insert user %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "user_id", userID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Updated user avatar", "user_id", userID, "avatar_url", avatarURL)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

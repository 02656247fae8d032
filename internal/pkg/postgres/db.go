package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/status"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotUpdated indicates no row matched the update
var ErrNotUpdated = errors.New("no records updated")

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DB provides operations with postgresql
type DB struct {
	pool dbPool
}

//NewDB creates DB instance
func NewDB(pool dbPool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	return &DB{pool: pool}, nil
}

const userColumns = `id, telegram_id, username, first_name, language_code, balance, is_active, is_admin, created, updated`

func scanUser(r pgx.Row) (*persistence.User, error) {
	var res persistence.User
	err := r.Scan(&res.ID, &res.TelegramID, &res.Username, &res.FirstName, &res.LanguageCode,
		&res.Balance, &res.IsActive, &res.IsAdmin, &res.Created, &res.Updated)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetUser loads user by telegram id, returns nil if not found
func (db *DB) GetUser(ctx context.Context, telegramID int64) (*persistence.User, error) {
	res, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load user: %w", err)
	}
	return res, nil
}

// CreateUser inserts a user with bonus balance, existing user is returned unchanged
func (db *DB) CreateUser(ctx context.Context, user *persistence.User, bonus float64) (*persistence.User, error) {
	lang := user.LanguageCode
	if lang == "" {
		lang = "ru"
	}
	res, err := scanUser(db.pool.QueryRow(ctx, `INSERT INTO users(telegram_id, username, first_name, language_code, balance)
	VALUES($1, $2, $3, $4, $5)
	ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, updated = now()
	RETURNING `+userColumns, user.TelegramID, user.Username, user.FirstName, lang, bonus))
	if err != nil {
		return nil, fmt.Errorf("can't insert user: %w", err)
	}
	return res, nil
}

// DeductBalance atomically takes minutes from the balance.
// Returns nil if user does not exist or balance is too low.
func (db *DB) DeductBalance(ctx context.Context, telegramID int64, minutes int) (*persistence.User, error) {
	res, err := scanUser(db.pool.QueryRow(ctx, `UPDATE users SET balance = balance - $2, updated = now()
	WHERE telegram_id = $1 AND balance >= $2
	RETURNING `+userColumns, telegramID, float64(minutes)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			goapp.Log.Warn().Int64("user", telegramID).Int("minutes", minutes).Msg("balance not deducted")
			return nil, nil
		}
		return nil, fmt.Errorf("can't deduct balance: %w", err)
	}
	return res, nil
}

// CreateJob inserts job with processing status
func (db *DB) CreateJob(ctx context.Context, job *persistence.NewJob) (*persistence.Job, error) {
	res := &persistence.Job{ID: uuid.NewString(), UserID: job.UserID, FileName: job.FileName, FilePath: job.FilePath,
		Duration: job.Duration, Language: job.Language, Cost: job.Cost, Status: status.Processing.String()}
	err := db.pool.QueryRow(ctx, `INSERT INTO jobs(id, user_id, file_name, file_path, duration, language, cost, status)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created`, res.ID, res.UserID, res.FileName, res.FilePath,
		res.Duration, res.Language, res.Cost, res.Status).Scan(&res.Created)
	if err != nil {
		return nil, fmt.Errorf("can't insert job: %w", err)
	}
	return res, nil
}

// UpdateJob moves processing job to a final status
func (db *DB) UpdateJob(ctx context.Context, id string, st status.Status, result, errMsg string) error {
	if !status.CanMove(status.Processing, st) {
		return fmt.Errorf("wrong final status '%s'", st)
	}
	tag, err := db.pool.Exec(ctx, `UPDATE jobs SET status = $2, result_text = $3, error_message = $4, completed = now()
	WHERE id = $1 AND status = $5`, id, st.String(), utils.ToSQLStr(result), utils.ToSQLStr(errMsg), status.Processing.String())
	if err != nil {
		return fmt.Errorf("can't update job: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("can't update job %s: %w", id, ErrNotUpdated)
	}
	return nil
}

// LoadJob loads job by id
func (db *DB) LoadJob(ctx context.Context, id string) (*persistence.Job, error) {
	var res persistence.Job
	err := db.pool.QueryRow(ctx, `SELECT id, user_id, file_name, file_path, duration, language, cost, status,
	result_text, error_message, created, completed FROM jobs WHERE id = $1`, id).Scan(&res.ID, &res.UserID,
		&res.FileName, &res.FilePath, &res.Duration, &res.Language, &res.Cost, &res.Status, &res.ResultText,
		&res.ErrorMessage, &res.Created, &res.Completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, persistence.ErrNotFound)
		}
		return nil, fmt.Errorf("can't load job: %w", err)
	}
	return &res, nil
}

// GetSetting returns setting value, empty if absent
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var res string
	err := db.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&res)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("can't load setting: %w", err)
	}
	return res, nil
}

// SetChatStateUnless saves chat state unless the chat is already in the unless state,
// returns false if the state was kept
func (db *DB) SetChatStateUnless(ctx context.Context, chatID int64, state, unless string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `INSERT INTO chat_state(chat_id, state) VALUES($1, $2)
	ON CONFLICT (chat_id) DO UPDATE SET state = EXCLUDED.state, updated = now() WHERE chat_state.state <> $3`,
		chatID, state, unless)
	if err != nil {
		return false, fmt.Errorf("can't save chat state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SwitchChatState moves chat from one state to another atomically,
// returns false if the chat was not in the from state
func (db *DB) SwitchChatState(ctx context.Context, chatID int64, from, to string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `UPDATE chat_state SET state = $3, updated = now()
	WHERE chat_id = $1 AND state = $2`, chatID, from, to)
	if err != nil {
		return false, fmt.Errorf("can't switch chat state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetChatState returns chat state, empty if none
func (db *DB) GetChatState(ctx context.Context, chatID int64) (string, error) {
	var res string
	err := db.pool.QueryRow(ctx, `SELECT state FROM chat_state WHERE chat_id = $1`, chatID).Scan(&res)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("can't load chat state: %w", err)
	}
	return res, nil
}

// ClearChatState removes chat state
func (db *DB) ClearChatState(ctx context.Context, chatID int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM chat_state WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("can't clear chat state: %w", err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}

// EnsureSchema creates tables if missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	goapp.Log.Info().Msg("ensure db schema")
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("can't create schema: %w", err)
	}
	return nil
}

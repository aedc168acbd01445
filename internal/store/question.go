package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/confly-app/apiserver/types"
)

// QuestionRepository handles persistence for questions and their votes.
type QuestionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// ListBySession returns all questions for a session ordered by vote count
// descending, then by creation time descending, so fresh questions surface
// among equally-voted ones. viewerID annotates HasUserVoted; pass 0 for an
// anonymous read.
func (r *QuestionRepository) ListBySession(ctx context.Context, sessionID string, viewerID int64) ([]types.Question, error) {
	const query = `
		SELECT q.id, q.session_id, q.content, q.author_id, u.display_name, q.created_at,
			COUNT(v.user_id) AS votes,
			COALESCE(BOOL_OR(v.user_id = $2), false) AS has_user_voted
		FROM questions q
		JOIN users u ON u.id = q.author_id
		LEFT JOIN votes v ON v.question_id = q.id
		WHERE q.session_id = $1
		GROUP BY q.id, u.display_name
		ORDER BY votes DESC, q.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, sessionID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]types.Question, 0)
	for rows.Next() {
		var q types.Question
		if err := rows.Scan(
			&q.ID,
			&q.SessionID,
			&q.Content,
			&q.AuthorID,
			&q.AuthorName,
			&q.CreatedAt,
			&q.Votes,
			&q.HasUserVoted,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}

// Create persists a new question and returns it with a zero vote count.
func (r *QuestionRepository) Create(ctx context.Context, question types.Question) (types.Question, error) {
	const query = `
		INSERT INTO questions (session_id, content, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		question.SessionID,
		question.Content,
		question.AuthorID,
	).Scan(&question.ID, &question.CreatedAt); err != nil {
		return types.Question{}, err
	}
	question.Votes = 0
	question.HasUserVoted = false
	return question, nil
}

// Delete removes a question if and only if requesterID is its author. The
// returned bool reports whether a row was deleted; a non-owner attempt (or an
// unknown question) yields false without an error, since that is an expected
// outcome rather than a failure. Votes cascade via the foreign key.
func (r *QuestionRepository) Delete(ctx context.Context, questionID, requesterID int64) (types.Question, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Question{}, false, err
	}
	defer tx.Rollback()

	var q types.Question
	err = tx.QueryRowContext(ctx, `
		SELECT id, session_id, content, author_id, created_at
		FROM questions WHERE id = $1 FOR UPDATE`, questionID).Scan(
		&q.ID, &q.SessionID, &q.Content, &q.AuthorID, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Question{}, false, nil
		}
		return types.Question{}, false, err
	}

	if q.AuthorID != requesterID {
		return types.Question{}, false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, questionID); err != nil {
		return types.Question{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return types.Question{}, false, err
	}
	return q, true, nil
}

// ToggleVote adds a vote for (questionID, userID) if absent and removes it if
// present, in one transaction. Returns ErrNotFound for an unknown question
// and (nil, nil) when the voter is the question's own author: self-voting is
// silently ignored, not an error.
//
// The question row is locked FOR UPDATE first, serialising concurrent toggles
// on the same question; the (question_id, user_id) primary key remains the
// backstop, and a unique violation on insert is folded into "already voted".
func (r *QuestionRepository) ToggleVote(ctx context.Context, questionID, userID int64) (*types.ToggleResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var authorID int64
	var sessionID string
	err = tx.QueryRowContext(ctx,
		`SELECT author_id, session_id FROM questions WHERE id = $1 FOR UPDATE`,
		questionID).Scan(&authorID, &sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if authorID == userID {
		return nil, nil
	}

	var hasVote bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE question_id = $1 AND user_id = $2)`,
		questionID, userID).Scan(&hasVote)
	if err != nil {
		return nil, err
	}

	added := !hasVote
	if hasVote {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM votes WHERE question_id = $1 AND user_id = $2`,
			questionID, userID); err != nil {
			return nil, err
		}
	} else {
		var inserted bool
		err := tx.QueryRowContext(ctx,
			`INSERT INTO votes (question_id, user_id) VALUES ($1, $2)
			 ON CONFLICT (question_id, user_id) DO NOTHING
			 RETURNING true`,
			questionID, userID).Scan(&inserted)
		if errors.Is(err, sql.ErrNoRows) {
			// The existence check lost a race: the vote is already there,
			// so the toggle flips to removal instead of failing.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM votes WHERE question_id = $1 AND user_id = $2`,
				questionID, userID); err != nil {
				return nil, err
			}
			added = false
		} else if err != nil {
			return nil, err
		}
	}

	var votes int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE question_id = $1`, questionID).Scan(&votes); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &types.ToggleResult{
		QuestionID: questionID,
		SessionID:  sessionID,
		Votes:      votes,
		Added:      added,
	}, nil
}

// Stats returns one aggregate row per question across all sessions, feeding
// the leaderboard calculator.
func (r *QuestionRepository) Stats(ctx context.Context) ([]types.QuestionStat, error) {
	const query = `
		SELECT q.id, q.session_id, q.author_id, u.display_name, q.created_at,
			COUNT(v.user_id) AS votes
		FROM questions q
		JOIN users u ON u.id = q.author_id
		LEFT JOIN votes v ON v.question_id = q.id
		GROUP BY q.id, u.display_name
		ORDER BY q.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]types.QuestionStat, 0)
	for rows.Next() {
		var s types.QuestionStat
		if err := rows.Scan(
			&s.QuestionID,
			&s.SessionID,
			&s.AuthorID,
			&s.AuthorName,
			&s.CreatedAt,
			&s.Votes,
		); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

package survey

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cryptoutil "clima/internal/platform/crypto"
)

// Store persists responses with the comment encrypted at rest. Answer maps
// are plain JSONB: they hold scores and question ids, not free text.
type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) GetResponse(ctx context.Context, evaluatorID, subjectID, periodID string) (Response, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT evaluator_id, subject_id, period_id, section, answers, comments_enc, is_anonymous, created_at, updated_at
    FROM responses
    WHERE evaluator_id = $1 AND subject_id = $2 AND period_id = $3
  `, evaluatorID, subjectID, periodID)
	resp, err := s.scanResponse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Response{}, ErrResponseNotFound
	}
	return resp, err
}

func (s *Store) UpsertResponse(ctx context.Context, resp Response) error {
	answersJSON, err := json.Marshal(resp.Answers)
	if err != nil {
		return err
	}
	commentsEnc, err := s.encryptComment(resp.Comments)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO responses (evaluator_id, subject_id, period_id, section, answers, comments_enc, is_anonymous, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (evaluator_id, subject_id, period_id)
    DO UPDATE SET
      section = EXCLUDED.section,
      answers = EXCLUDED.answers,
      comments_enc = EXCLUDED.comments_enc,
      is_anonymous = EXCLUDED.is_anonymous,
      updated_at = EXCLUDED.updated_at
  `, resp.EvaluatorID, resp.SubjectID, resp.PeriodID, resp.Section, answersJSON, commentsEnc, resp.IsAnonymous, resp.CreatedAt, resp.UpdatedAt)
	return err
}

func (s *Store) ListResponses(ctx context.Context, periodID, section string) ([]Response, error) {
	query := `
    SELECT evaluator_id, subject_id, period_id, section, answers, comments_enc, is_anonymous, created_at, updated_at
    FROM responses
    WHERE period_id = $1
  `
	args := []any{periodID}
	if section != "" {
		query += " AND section = $2"
		args = append(args, section)
	}
	query += " ORDER BY created_at"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		resp, err := s.scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

func (s *Store) scanResponse(row pgx.Row) (Response, error) {
	var resp Response
	var answersJSON []byte
	var commentsEnc []byte
	if err := row.Scan(&resp.EvaluatorID, &resp.SubjectID, &resp.PeriodID, &resp.Section, &answersJSON, &commentsEnc, &resp.IsAnonymous, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
		return Response{}, err
	}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &resp.Answers); err != nil {
			return Response{}, err
		}
	}
	if resp.Answers == nil {
		resp.Answers = map[string]any{}
	}
	comments, err := s.decryptComment(commentsEnc)
	if err != nil {
		return Response{}, err
	}
	resp.Comments = comments
	return resp, nil
}

func (s *Store) encryptComment(comment string) ([]byte, error) {
	if s.Crypto == nil {
		return []byte(comment), nil
	}
	return s.Crypto.EncryptString(comment)
}

func (s *Store) decryptComment(encrypted []byte) (string, error) {
	if s.Crypto == nil {
		return string(encrypted), nil
	}
	return s.Crypto.DecryptString(encrypted)
}

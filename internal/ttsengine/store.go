package ttsengine

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ars-backend/internal/config"
)

var ErrJobNotFound = errors.New("generation not found")

// SQLStore loads and updates generation rows through the shared database
// handle.
type SQLStore struct{}

func NewSQLStore() *SQLStore {
	return &SQLStore{}
}

func (s *SQLStore) Job(id int64) (*Job, error) {
	query := `
		SELECT g.id, g.status, g.generation_params,
		       sc.text_content,
		       COALESCE(vm.model_path, ''),
		       COALESCE(vs.sample_rate, 22050)
		FROM tts_generations g
		JOIN tts_scripts sc ON g.script_id = sc.id
		LEFT JOIN voice_models vm ON g.voice_model_id = vm.id
		LEFT JOIN (
			SELECT voice_actor_id, MAX(sample_rate) AS sample_rate
			FROM voice_samples GROUP BY voice_actor_id
		) vs ON sc.voice_actor_id = vs.voice_actor_id
		WHERE g.id = ?
	`

	var job Job
	var params sql.NullString
	err := config.DB.QueryRow(query, id).Scan(
		&job.GenerationID,
		&job.Status,
		&params,
		&job.Text,
		&job.ModelPath,
		&job.SampleRate,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if params.Valid && params.String != "" {
		// Params stay nil on malformed JSON; the engine applies defaults.
		_ = json.Unmarshal([]byte(params.String), &job.Params)
	}

	return &job, nil
}

// The Mark* updates are guarded on the previous status so a cancel racing the
// worker wins: a row moved to cancelled stays cancelled, and the caller learns
// the write did not land.

func (s *SQLStore) MarkProcessing(id int64, startedAt int64) (bool, error) {
	result, err := config.DB.Exec(
		"UPDATE tts_generations SET status = 'processing', started_at = ? WHERE id = ? AND status = 'pending'",
		startedAt, id,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (s *SQLStore) MarkCompleted(id int64, audioPath string, fileSize int64, duration, quality float64, completedAt int64) (bool, error) {
	result, err := config.DB.Exec(
		`UPDATE tts_generations
		 SET status = 'completed', audio_file_path = ?, file_size = ?, duration = ?, quality_score = ?, completed_at = ?, error_message = NULL
		 WHERE id = ? AND status = 'processing'`,
		audioPath, fileSize, duration, quality, completedAt, id,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (s *SQLStore) MarkFailed(id int64, errMsg string, completedAt int64) (bool, error) {
	result, err := config.DB.Exec(
		"UPDATE tts_generations SET status = 'failed', error_message = ?, completed_at = ? WHERE id = ? AND status = 'processing'",
		errMsg, completedAt, id,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

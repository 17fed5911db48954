package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	grader grading.Grader
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLStore(db *sql.DB, driver string, opts ...grading.Option) *SQLStore {
	return &SQLStore{db: db, driver: driver, grader: grading.NewDefaultGrader(opts...)}
}

// inTx runs fn in a transaction. fn must use tx only; sqlite runs with a
// single connection.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// ---- users ----

func (s *SQLStore) UserByUsername(ctx context.Context, username string) (auth.Credentials, error) {
	var c auth.Credentials
	err := s.db.QueryRowContext(ctx, `SELECT id,username,role,pass_hash FROM users WHERE username=$1`, username).
		Scan(&c.ID, &c.Username, &c.Role, &c.PassHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credentials{}, auth.ErrUnknownUser
	}
	return c, err
}

// PutUser inserts the user or updates role and password of an existing name.
func (s *SQLStore) PutUser(ctx context.Context, u User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id,username,role,pass_hash,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (username) DO UPDATE SET role=EXCLUDED.role, pass_hash=EXCLUDED.pass_hash`,
		u.ID, u.Username, u.Role, u.PassHash, u.CreatedAt)
	return err
}

// ---- courses & modules ----

func (s *SQLStore) Course(ctx context.Context, id string) (Course, error) {
	var c Course
	err := s.db.QueryRowContext(ctx, `SELECT id,title,description,instructor_id,price,published,created_at
		FROM courses WHERE id=$1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.InstructorID, &c.Price, &c.Published, &c.CreatedAt)
	if err != nil {
		return Course{}, notFound(err, "course "+id)
	}
	return c, nil
}

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses (id,title,description,instructor_id,price,published,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
		  instructor_id=EXCLUDED.instructor_id, price=EXCLUDED.price, published=EXCLUDED.published`,
		c.ID, c.Title, c.Description, c.InstructorID, c.Price, c.Published, c.CreatedAt)
	return err
}

func (s *SQLStore) Module(ctx context.Context, id string) (Module, error) {
	var m Module
	err := s.db.QueryRowContext(ctx, `SELECT id,course_id,title,order_number FROM modules WHERE id=$1`, id).
		Scan(&m.ID, &m.CourseID, &m.Title, &m.Order)
	if err != nil {
		return Module{}, notFound(err, "module "+id)
	}
	return m, nil
}

func (s *SQLStore) ModulesOf(ctx context.Context, courseID string) ([]Module, error) {
	if _, err := s.Course(ctx, courseID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,course_id,title,order_number FROM modules
		WHERE course_id=$1 ORDER BY order_number, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Module{}
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Order); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutModule(ctx context.Context, m Module) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO modules (id,course_id,title,order_number)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, order_number=EXCLUDED.order_number`,
		m.ID, m.CourseID, m.Title, m.Order)
	return err
}

// ---- quizzes ----

const quizCols = `id,course_id,module_id,title,description,quiz_type,time_limit,shuffle_answers,
	allow_multiple_attempts,show_responses,one_question_at_a_time,published,created_by,created_at`

func scanQuiz(row interface{ Scan(...any) error }) (Quiz, error) {
	var (
		q      Quiz
		module sql.NullString
		limit  sql.NullInt64
	)
	err := row.Scan(&q.ID, &q.CourseID, &module, &q.Title, &q.Description, &q.Type, &limit,
		&q.ShuffleAnswers, &q.AllowMultipleAttempts, &q.ShowResponses, &q.OneQuestionAtATime,
		&q.Published, &q.CreatedBy, &q.CreatedAt)
	if err != nil {
		return Quiz{}, err
	}
	if module.Valid && module.String != "" {
		m := module.String
		q.ModuleID = &m
	}
	if limit.Valid && limit.Int64 > 0 {
		n := int(limit.Int64)
		q.TimeLimit = &n
	}
	return q, nil
}

func nullString(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil || *p <= 0 {
		return nil
	}
	return int64(*p)
}

func getQuiz(ctx context.Context, db queryer, id string) (Quiz, error) {
	q, err := scanQuiz(db.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE id=$1`, id))
	if err != nil {
		return Quiz{}, notFound(err, "quiz "+id)
	}
	return q, nil
}

func (s *SQLStore) Quiz(ctx context.Context, id string) (Quiz, error) {
	return getQuiz(ctx, s.db, id)
}

func (s *SQLStore) QuizWithQuestions(ctx context.Context, id string) (Quiz, []Question, error) {
	q, err := getQuiz(ctx, s.db, id)
	if err != nil {
		return Quiz{}, nil, err
	}
	qs, err := questionsOf(ctx, s.db, id)
	if err != nil {
		return Quiz{}, nil, err
	}
	return q, qs, nil
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	q.ID = uuid.NewString()
	q.CreatedAt = time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `INSERT INTO quizzes (`+quizCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		q.ID, q.CourseID, nullString(q.ModuleID), q.Title, q.Description, q.Type, nullInt(q.TimeLimit),
		q.ShuffleAnswers, q.AllowMultipleAttempts, q.ShowResponses, q.OneQuestionAtATime,
		q.Published, q.CreatedBy, q.CreatedAt)
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// UpdateQuiz rewrites the quiz metadata. Owner and creation time are kept.
func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	var out Quiz
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := getQuiz(ctx, tx, q.ID)
		if err != nil {
			return err
		}
		if cur.Type != q.Type {
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE quiz_id=$1`, q.ID).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				return ErrTypeLocked
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE quizzes SET course_id=$1, module_id=$2, title=$3, description=$4,
			quiz_type=$5, time_limit=$6, shuffle_answers=$7, allow_multiple_attempts=$8, show_responses=$9,
			one_question_at_a_time=$10, published=$11 WHERE id=$12`,
			q.CourseID, nullString(q.ModuleID), q.Title, q.Description, q.Type, nullInt(q.TimeLimit), q.ShuffleAnswers,
			q.AllowMultipleAttempts, q.ShowResponses, q.OneQuestionAtATime, q.Published, q.ID)
		if err != nil {
			return err
		}
		q.CreatedBy, q.CreatedAt = cur.CreatedBy, cur.CreatedAt
		out = q
		return nil
	})
	return out, err
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getQuiz(ctx, tx, id); err != nil {
			return err
		}
		stmts := []string{
			`DELETE FROM answer_options WHERE question_id IN (SELECT id FROM questions WHERE quiz_id=$1)`,
			`DELETE FROM questions WHERE quiz_id=$1`,
			`DELETE FROM quizzes WHERE id=$1`,
		}
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- questions ----

const questionCols = `id,quiz_id,position,question_text,question_type,points,file_url,file_name`

func scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	err := row.Scan(&q.ID, &q.QuizID, &q.Position, &q.Text, &q.Type, &q.Points, &q.FileURL, &q.FileName)
	return q, err
}

func optionsOf(ctx context.Context, db queryer, questionID string) ([]Option, error) {
	rows, err := db.QueryContext(ctx, `SELECT id,answer_text,is_correct,order_number FROM answer_options
		WHERE question_id=$1 ORDER BY order_number, id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Text, &o.Correct, &o.Order); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func getQuestion(ctx context.Context, db queryer, id string) (Question, error) {
	q, err := scanQuestion(db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if err != nil {
		return Question{}, notFound(err, "question "+id)
	}
	if q.Options, err = optionsOf(ctx, db, id); err != nil {
		return Question{}, err
	}
	return q, nil
}

func questionsOf(ctx context.Context, db queryer, quizID string) ([]Question, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+questionCols+` FROM questions
		WHERE quiz_id=$1 ORDER BY position, created_at, id`, quizID)
	if err != nil {
		return nil, err
	}
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// options are read after rows is closed; sqlite has one connection
	for i := range out {
		if out[i].Options, err = optionsOf(ctx, db, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func insertOptions(ctx context.Context, tx *sql.Tx, questionID string, opts []Option) error {
	for i, o := range opts {
		if o.Order == 0 {
			o.Order = i
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO answer_options (id,question_id,answer_text,is_correct,order_number)
			VALUES ($1,$2,$3,$4,$5)`, uuid.NewString(), questionID, o.Text, o.Correct, o.Order)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Question(ctx context.Context, id string) (Question, error) {
	return getQuestion(ctx, s.db, id)
}

// CreateQuestion appends q to its quiz. Essay quizzes accept one question.
func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	var out Question
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		qz, err := getQuiz(ctx, tx, q.QuizID)
		if err != nil {
			return err
		}
		if q.Type != qz.Type {
			return ErrTypeMismatch
		}
		var n, last int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(MAX(position),0) FROM questions WHERE quiz_id=$1`, q.QuizID).
			Scan(&n, &last); err != nil {
			return err
		}
		if qz.Type == TypeEssay && n > 0 {
			return ErrEssaySingle
		}
		q.ID = uuid.NewString()
		q.Position = last + 1
		_, err = tx.ExecContext(ctx, `INSERT INTO questions (`+questionCols+`,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			q.ID, q.QuizID, q.Position, q.Text, q.Type, q.Points, q.FileURL, q.FileName, time.Now().UnixNano())
		if err != nil {
			return err
		}
		if err := insertOptions(ctx, tx, q.ID, q.Options); err != nil {
			return err
		}
		out, err = getQuestion(ctx, tx, q.ID)
		return err
	})
	return out, err
}

// UpdateQuestion replaces text, points, attachment and the option list.
// The question stays in its quiz and position.
func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	var out Question
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := getQuestion(ctx, tx, q.ID)
		if err != nil {
			return err
		}
		if q.Type != cur.Type {
			return ErrTypeMismatch
		}
		_, err = tx.ExecContext(ctx, `UPDATE questions SET question_text=$1, points=$2, file_url=$3, file_name=$4
			WHERE id=$5`, q.Text, q.Points, q.FileURL, q.FileName, q.ID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM answer_options WHERE question_id=$1`, q.ID); err != nil {
			return err
		}
		if err := insertOptions(ctx, tx, q.ID, q.Options); err != nil {
			return err
		}
		out, err = getQuestion(ctx, tx, q.ID)
		return err
	})
	return out, err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getQuestion(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM answer_options WHERE question_id=$1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
		return err
	})
}

// ---- submissions ----

const submissionCols = `id,quiz_id,user_id,attempt_number,score,max_score,correct_count,total_count,
	status,time_spent,answers_json,submitted_at`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var (
		sub Submission
		aj  string
	)
	err := row.Scan(&sub.ID, &sub.QuizID, &sub.UserID, &sub.Attempt, &sub.Score, &sub.MaxScore,
		&sub.CorrectCount, &sub.TotalCount, &sub.Status, &sub.TimeSpent, &aj, &sub.SubmittedAt)
	if err != nil {
		return Submission{}, err
	}
	if err := json.Unmarshal([]byte(aj), &sub.Answers); err != nil {
		return Submission{}, fmt.Errorf("decode answers of %s: %w", sub.ID, err)
	}
	return sub, nil
}

func submissionCount(ctx context.Context, db queryer, quizID, userID string) (int, *Submission, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE quiz_id=$1 AND user_id=$2`,
		quizID, userID).Scan(&n); err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, nil, nil
	}
	sub, err := scanSubmission(db.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions
		WHERE quiz_id=$1 AND user_id=$2 ORDER BY attempt_number DESC LIMIT 1`, quizID, userID))
	if err != nil {
		return 0, nil, err
	}
	return n, &sub, nil
}

func (s *SQLStore) SubmissionCount(ctx context.Context, quizID, userID string) (int, *Submission, error) {
	return submissionCount(ctx, s.db, quizID, userID)
}

// Submit grades the answers against the stored key and records the next
// attempt. A second attempt on a single-attempt quiz is ErrAttemptsExhausted.
// Answers to questions outside the quiz are dropped.
func (s *SQLStore) Submit(ctx context.Context, in Submission) (Submission, error) {
	var out Submission
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		qz, err := getQuiz(ctx, tx, in.QuizID)
		if err != nil {
			return err
		}
		n, _, err := submissionCount(ctx, tx, in.QuizID, in.UserID)
		if err != nil {
			return err
		}
		if n > 0 && !qz.AllowMultipleAttempts {
			return ErrAttemptsExhausted
		}
		questions, err := questionsOf(ctx, tx, in.QuizID)
		if err != nil {
			return err
		}
		out, err = s.grade(ctx, qz, questions, in)
		if err != nil {
			return err
		}
		out.ID = uuid.NewString()
		out.Attempt = n + 1
		out.SubmittedAt = time.Now().Unix()

		aj, err := json.Marshal(out.Answers)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO submissions (`+submissionCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			out.ID, out.QuizID, out.UserID, out.Attempt, out.Score, out.MaxScore, out.CorrectCount,
			out.TotalCount, out.Status, out.TimeSpent, string(aj), out.SubmittedAt)
		if err != nil && isUniqueViolation(err) {
			// a concurrent submit took this attempt number
			return ErrAttemptsExhausted
		}
		return err
	})
	return out, err
}

func (s *SQLStore) grade(ctx context.Context, qz Quiz, questions []Question, in Submission) (Submission, error) {
	byID := make(map[string]Answer, len(in.Answers))
	for _, a := range in.Answers {
		byID[a.QuestionID] = a
	}
	out := Submission{
		QuizID:     in.QuizID,
		UserID:     in.UserID,
		TimeSpent:  in.TimeSpent,
		TotalCount: len(questions),
		Status:     StatusGraded,
		Answers:    make([]Answer, 0, len(in.Answers)),
	}
	for _, q := range questions {
		out.MaxScore += q.Points
		a, ok := byID[q.ID]
		if !ok {
			continue
		}
		gq := grading.Q{Type: q.Type, Points: q.Points}
		for _, o := range q.Options {
			gq.Options = append(gq.Options, grading.Choice{Text: o.Text, Correct: o.Correct})
		}
		res, err := s.grader.Grade(ctx, gq, grading.Response{
			SelectedIndex:  a.SelectedIndex,
			SelectedAnswer: a.SelectedAnswer,
			EssayText:      a.EssayText,
			EssayLink:      a.EssayLink,
			FileName:       a.FileName,
		})
		if err != nil {
			return Submission{}, fmt.Errorf("grade %s: %w", q.ID, err)
		}
		a.Points, a.Correct, a.NeedsManual, a.Feedback = res.AutoPoints, res.Correct, res.NeedsManual, res.Feedback
		out.Score += res.AutoPoints
		if res.Correct != nil && *res.Correct {
			out.CorrectCount++
		}
		if res.NeedsManual {
			out.Status = StatusPending
		}
		out.Answers = append(out.Answers, a)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

// QuizWithQuestions loads a quiz and its questions in backend order.
func (c *Client) QuizWithQuestions(ctx context.Context, id string) (quiz.Quiz, []quiz.PersistedQuestion, error) {
	path := "/quizzes/" + url.PathEscape(id) + "/with-questions"
	var out wire.QuizWithQuestions
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return quiz.Quiz{}, nil, err
	}
	op := "GET " + path
	q, err := quizFromWire(op, out.Quiz)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	qs := make([]quiz.PersistedQuestion, 0, len(out.Questions))
	for _, w := range out.Questions {
		p, err := questionFromWire(op, w)
		if err != nil {
			return quiz.Quiz{}, nil, err
		}
		qs = append(qs, p)
	}
	return q, qs, nil
}

func (c *Client) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	var out wire.Quiz
	if err := c.call(ctx, http.MethodPost, "/quizzes", quizToWire(q), &out); err != nil {
		return quiz.Quiz{}, err
	}
	return quizFromWire("POST /quizzes", out)
}

// UpdateQuiz sends the whole quiz; the id travels in the body.
func (c *Client) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	var out wire.Quiz
	if err := c.call(ctx, http.MethodPut, "/quizzes", quizToWire(q), &out); err != nil {
		return quiz.Quiz{}, err
	}
	return quizFromWire("PUT /quizzes", out)
}

func (c *Client) DeleteQuiz(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/quizzes/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GetQuestion(ctx context.Context, id string) (quiz.PersistedQuestion, error) {
	path := "/questions/" + url.PathEscape(id)
	var out wire.Question
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return quiz.PersistedQuestion{}, err
	}
	return questionFromWire("GET "+path, out)
}

func (c *Client) CreateQuestion(ctx context.Context, p quiz.PersistedQuestion) (quiz.PersistedQuestion, error) {
	body := questionToWire(p)
	body.ID = ""
	var out wire.Question
	if err := c.call(ctx, http.MethodPost, "/questions", body, &out); err != nil {
		return quiz.PersistedQuestion{}, err
	}
	return questionFromWire("POST /questions", out)
}

func (c *Client) UpdateQuestion(ctx context.Context, id string, p quiz.PersistedQuestion) (quiz.PersistedQuestion, error) {
	path := "/questions/" + url.PathEscape(id)
	body := questionToWire(p)
	body.ID = id
	var out wire.Question
	if err := c.call(ctx, http.MethodPut, path, body, &out); err != nil {
		return quiz.PersistedQuestion{}, err
	}
	return questionFromWire("PUT "+path, out)
}

func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/questions/"+url.PathEscape(id), nil, nil)
}

// UploadQuestionFile attaches a file to an essay question (multipart "file").
func (c *Client) UploadQuestionFile(ctx context.Context, name string, r io.Reader) (quiz.FileRef, error) {
	var out wire.FileUpload
	if err := c.upload(ctx, "/questions/upload-file", name, r, nil, &out); err != nil {
		return quiz.FileRef{}, err
	}
	return quiz.FileRef{URL: out.FileURL, Name: out.FileName}, nil
}

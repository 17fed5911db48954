package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

func (c *Client) CheckSubmission(ctx context.Context, quizID string) (quiz.SubmissionStatus, error) {
	var out wire.SubmissionCheck
	if err := c.call(ctx, http.MethodGet, "/exam/check-submission/"+url.PathEscape(quizID), nil, &out); err != nil {
		return quiz.SubmissionStatus{}, err
	}
	st := quiz.SubmissionStatus{HasSubmitted: out.HasSubmitted, AttemptCount: out.AttemptCount}
	if out.Result != nil {
		r := resultFromWire(*out.Result)
		st.Result = &r
	}
	return st, nil
}

// UploadAnswerFile sends a student's essay file ahead of the submission.
func (c *Client) UploadAnswerFile(ctx context.Context, quizID, name string, r io.Reader) (quiz.FileRef, error) {
	var out wire.FileUpload
	if err := c.upload(ctx, "/exam/upload-file", name, r, map[string]string{"quizId": quizID}, &out); err != nil {
		return quiz.FileRef{}, err
	}
	return quiz.FileRef{URL: out.FileURL, Name: out.FileName}, nil
}

func (c *Client) Submit(ctx context.Context, s quiz.Submission) (quiz.SubmitOutcome, error) {
	var out wire.SubmitResponse
	if err := c.call(ctx, http.MethodPost, "/exam/submit", submissionToWire(s), &out); err != nil {
		return quiz.SubmitOutcome{}, err
	}
	return quiz.SubmitOutcome{Result: resultFromWire(out.Result), AttemptCount: out.AttemptCount}, nil
}

// Result returns the caller's latest result for quizID.
func (c *Client) Result(ctx context.Context, quizID string) (quiz.ResultDetail, error) {
	return c.result(ctx, "/exam/result/"+url.PathEscape(quizID))
}

// ResultOf returns another user's latest result. The backend allows it for
// roles holding result:view-all on quizzes they manage.
func (c *Client) ResultOf(ctx context.Context, quizID, userID string) (quiz.ResultDetail, error) {
	return c.result(ctx, "/exam/result/"+url.PathEscape(quizID)+"?userId="+url.QueryEscape(userID))
}

func (c *Client) result(ctx context.Context, path string) (quiz.ResultDetail, error) {
	var out wire.ResultDetail
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return quiz.ResultDetail{}, err
	}
	d := quiz.ResultDetail{Result: resultFromWire(out.Result)}
	for _, it := range out.Items {
		d.Items = append(d.Items, quiz.ResultItem{
			QuestionID:    it.QuestionID,
			QuestionText:  it.QuestionText,
			Response:      it.Response,
			CorrectAnswer: it.CorrectAnswer,
			Correct:       it.IsCorrect,
			Points:        it.Points,
			MaxPoints:     it.MaxPoints,
		})
	}
	return d, nil
}

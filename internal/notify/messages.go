package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-exams/internal/apiclient"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
)

// Key names one catalog entry.
type Key string

const (
	KeyUnauthorized       Key = "error.unauthorized"
	KeyForbidden          Key = "error.forbidden"
	KeyBadRequest         Key = "error.bad_request"
	KeyNotFound           Key = "error.not_found"
	KeyNetwork            Key = "error.network"
	KeyServer             Key = "error.server"
	KeyEssaySingle        Key = "quiz.essay_single_question"
	KeyQuestionSaveFailed Key = "question.save_failed"
	KeyQuestionDeleteFail Key = "question.delete_failed"
	KeyQuestionStale      Key = "question.using_cached"
	KeyQuestionsSaved     Key = "question.all_saved"
	KeyQuestionIncomplete Key = "question.incomplete"
	KeyQuizSaved          Key = "quiz.saved"
	KeyFileTooLarge       Key = "exam.file_too_large"
	KeyUploadFailed       Key = "exam.upload_failed"
	KeyInvalidLink        Key = "exam.invalid_link"
	KeySubmitted          Key = "exam.submitted"
	KeySubmitFailed       Key = "exam.submit_failed"
	KeyTimeUp             Key = "exam.time_up"
	KeyAlreadySubmitted   Key = "exam.already_submitted"
	KeyRetakeNotAllowed   Key = "exam.retake_not_allowed"
)

var catalog = map[string]map[Key]string{
	"en": {
		KeyUnauthorized:       "Your session has expired. Please sign in again.",
		KeyForbidden:          "You do not have permission to do this.",
		KeyBadRequest:         "The request was rejected: %s",
		KeyNotFound:           "The requested item was not found.",
		KeyNetwork:            "Cannot reach the server. Check your connection and try again.",
		KeyServer:             "Something went wrong on the server. Please try again later.",
		KeyEssaySingle:        "An essay quiz has exactly one question.",
		KeyQuestionSaveFailed: "Question %d could not be saved.",
		KeyQuestionDeleteFail: "The question could not be deleted on the server.",
		KeyQuestionStale:      "Could not refresh the question; showing the last saved copy.",
		KeyQuestionsSaved:     "Questions saved.",
		KeyQuestionIncomplete: "%d incomplete question(s) were not created.",
		KeyQuizSaved:          "Quiz saved.",
		KeyFileTooLarge:       "The file is larger than %s.",
		KeyUploadFailed:       "Uploading %s failed.",
		KeyInvalidLink:        "The link must be a full URL, such as https://example.com/essay.",
		KeySubmitted:          "Your exam was submitted.",
		KeySubmitFailed:       "Your exam could not be submitted. %s",
		KeyTimeUp:             "Time is up. Your exam is being submitted.",
		KeyAlreadySubmitted:   "You have already submitted this exam.",
		KeyRetakeNotAllowed:   "This quiz allows only one attempt.",
	},
	"vi": {
		KeyUnauthorized:       "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại.",
		KeyForbidden:          "Bạn không có quyền thực hiện thao tác này.",
		KeyBadRequest:         "Yêu cầu không hợp lệ: %s",
		KeyNotFound:           "Không tìm thấy dữ liệu.",
		KeyNetwork:            "Không thể kết nối tới máy chủ. Vui lòng kiểm tra kết nối.",
		KeyServer:             "Máy chủ gặp lỗi. Vui lòng thử lại sau.",
		KeyEssaySingle:        "Bài tự luận chỉ có đúng một câu hỏi.",
		KeyQuestionSaveFailed: "Không thể lưu câu hỏi %d.",
		KeyQuestionDeleteFail: "Không thể xóa câu hỏi trên máy chủ.",
		KeyQuestionStale:      "Không thể tải lại câu hỏi; đang hiển thị bản đã lưu.",
		KeyQuestionsSaved:     "Đã lưu các câu hỏi.",
		KeyQuestionIncomplete: "%d câu hỏi chưa hoàn chỉnh nên chưa được tạo.",
		KeyQuizSaved:          "Đã lưu bài kiểm tra.",
		KeyFileTooLarge:       "Tệp vượt quá %s.",
		KeyUploadFailed:       "Tải lên %s thất bại.",
		KeyInvalidLink:        "Liên kết phải là một URL đầy đủ, ví dụ https://example.com/essay.",
		KeySubmitted:          "Đã nộp bài.",
		KeySubmitFailed:       "Không thể nộp bài. %s",
		KeyTimeUp:             "Hết giờ. Bài làm đang được nộp.",
		KeyAlreadySubmitted:   "Bạn đã nộp bài kiểm tra này.",
		KeyRetakeNotAllowed:   "Bài kiểm tra này chỉ cho phép làm một lần.",
	},
}

// T formats the catalog entry for key in locale, falling back to English.
func T(locale string, key Key, args ...any) string {
	msgs, ok := catalog[strings.ToLower(locale)]
	if !ok {
		msgs = catalog["en"]
	}
	s, ok := msgs[key]
	if !ok {
		s = catalog["en"][key]
	}
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}

// MessageFor turns an error from a backend call into a message for the user.
func MessageFor(err error, locale string) string {
	var verr *quiz.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Error)
		}
		return T(locale, KeyBadRequest, strings.Join(parts, "; "))
	}
	var aerr *apiclient.Error
	if !errors.As(err, &aerr) {
		return T(locale, KeyServer)
	}
	switch aerr.Kind {
	case apiclient.KindUnauthorized:
		return T(locale, KeyUnauthorized)
	case apiclient.KindForbidden:
		return T(locale, KeyForbidden)
	case apiclient.KindBadRequest:
		detail := aerr.Message
		if detail == "" {
			detail = aerr.Op
		}
		return T(locale, KeyBadRequest, detail)
	case apiclient.KindNotFound:
		return T(locale, KeyNotFound)
	case apiclient.KindNetwork:
		return T(locale, KeyNetwork)
	default:
		return T(locale, KeyServer)
	}
}

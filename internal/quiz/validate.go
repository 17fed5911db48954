package quiz

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/vi"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	vi_translations "github.com/go-playground/validator/v10/translations/vi"
)

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error { return err.Err }

var ErrIncomplete = errors.New("question is incomplete")

var (
	validateOnce sync.Once
	validate     *validator.Validate
	universal    *ut.UniversalTranslator
)

// Validator returns the shared validator, configured to report JSON field
// names and with en + vi translations registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		enLoc, viLoc := en.New(), vi.New()
		universal = ut.New(enLoc, enLoc, viLoc)
		if t, ok := universal.GetTranslator("en"); ok {
			_ = en_translations.RegisterDefaultTranslations(validate, t)
		}
		if t, ok := universal.GetTranslator("vi"); ok {
			_ = vi_translations.RegisterDefaultTranslations(validate, t)
		}
	})
	return validate
}

// Translator returns the translator for locale, falling back to English.
func Translator(locale string) ut.Translator {
	Validator()
	t, _ := universal.FindTranslator(locale, "en")
	return t
}

// AsValidationError converts validator errors into a *ValidationError with
// messages in the given locale. Other errors are returned unchanged.
func AsValidationError(err error, base error, locale string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	t := Translator(locale)
	out := &ValidationError{Err: base}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Error: fe.Translate(t)})
	}
	return out
}

// ValidateQuiz checks quiz metadata before it is sent to the backend.
func ValidateQuiz(q Quiz, locale string) error {
	if err := Validator().Struct(q); err != nil {
		return AsValidationError(err, errors.New("invalid quiz"), locale)
	}
	if !q.Type.Valid() {
		return &ValidationError{Err: ErrUnknownType, Fields: []FieldError{{Field: "type", Error: ErrUnknownType.Error()}}}
	}
	return nil
}

type completeness struct {
	Text           string  `json:"questionText" validate:"required"`
	Points         float64 `json:"points" validate:"gt=0"`
	MultipleChoice bool    `json:"-"`
	FilledOptions  int     `json:"answers" validate:"required_if=MultipleChoice true"`
	CorrectOptions int     `json:"isCorrect" validate:"required_if=MultipleChoice true"`
}

// CheckComplete reports whether q can be created as a finished question:
// non-empty text, positive points and, for multiple-choice, at least one
// filled option and one option marked correct.
func CheckComplete(q Question, locale string) error {
	c := completeness{
		Text:           strings.TrimSpace(q.Text),
		Points:         q.Points,
		MultipleChoice: q.Type == TypeMultipleChoice,
		FilledOptions:  q.filledOptions(),
		CorrectOptions: q.correctCount(),
	}
	if err := Validator().Struct(c); err != nil {
		return AsValidationError(err, ErrIncomplete, locale)
	}
	return nil
}

// Complete is CheckComplete without the details.
func (q Question) Complete() bool { return CheckComplete(q, "en") == nil }

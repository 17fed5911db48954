// Command examctl signs in to the exam backend, inspects quizzes and sits
// exams from an answers file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/mind-engage/mindengage-exams/internal/apiclient"
	"github.com/mind-engage/mindengage-exams/internal/config"
	"github.com/mind-engage/mindengage-exams/internal/notify"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/session"
)

const usage = `usage: examctl <command> [flags]

commands:
  login [--user NAME] [--password PASS]   sign in and keep the token
  logout                                  forget the token
  whoami                                  show the signed-in user
  quiz show <quizId>                      show quiz settings
  quiz questions <quizId>                 list the questions
  quiz delete <quizId>                    delete a quiz you own
  take <quizId> --answers FILE [--retake] sit an exam
  result <quizId> [--user ID]             show the latest result (yours, or a student's)
`

var errUsage = errors.New("usage")

type app struct {
	cfg    config.Client
	out    io.Writer
	errOut io.Writer
	in     io.Reader
	sess   *session.Session
	client *apiclient.Client
	logger *log.Logger
}

func newApp(cfg config.Client, in io.Reader, out, errOut io.Writer) (*app, error) {
	sess, err := session.New(session.NewFileStore(cfg.SessionFile))
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:    cfg,
		in:     in,
		out:    out,
		errOut: errOut,
		sess:   sess,
		logger: log.New(errOut, "examctl: ", 0),
		client: apiclient.New(apiclient.Config{
			BaseURL:   cfg.APIBaseURL,
			Timeout:   cfg.APITimeout,
			UserAgent: cfg.UserAgent,
		}, sess),
	}
	sess.OnLoginRequired(func() {
		fmt.Fprintln(errOut, "examctl: please sign in with `examctl login`")
	})
	return a, nil
}

// notifier prints controller messages on stderr.
func (a *app) notifier() notify.Notifier {
	return notify.LogNotifier{Logger: a.logger}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "quiz":
		if len(rest) < 2 {
			return errUsage
		}
		switch rest[0] {
		case "show":
			return a.quizShow(ctx, rest[1])
		case "questions":
			return a.quizQuestions(ctx, rest[1])
		case "delete":
			return a.quizDelete(ctx, rest[1])
		}
		return errUsage
	case "take":
		return a.take(ctx, rest)
	case "result":
		return a.resultCmd(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return errUsage
}

// describe turns err into the message shown to the user.
func describe(err error, locale string) string {
	var aerr *apiclient.Error
	var verr *quiz.ValidationError
	if errors.As(err, &aerr) || errors.As(err, &verr) {
		return notify.MessageFor(err, locale)
	}
	return err.Error()
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.FromEnv().Client

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(cfg, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "examctl:", describe(err, cfg.Locale))
		os.Exit(1)
	}
}

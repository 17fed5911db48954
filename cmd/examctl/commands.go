package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/mind-engage/mindengage-exams/internal/directory"
	"github.com/mind-engage/mindengage-exams/internal/notify"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/taking"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	user := fs.String("user", os.Getenv("EXAMCTL_USER"), "username")
	pass := fs.String("password", os.Getenv("EXAMCTL_PASSWORD"), "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rd := bufio.NewReader(a.in)
	if *user == "" {
		fmt.Fprint(a.errOut, "username: ")
		line, err := rd.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*user = strings.TrimSpace(line)
	}
	if *pass == "" {
		p, err := a.readPassword(rd)
		if err != nil {
			return err
		}
		*pass = p
	}
	role, err := a.client.Login(ctx, *user, *pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", *user, role)
	return nil
}

// readPassword reads without echo on a terminal, or a plain line otherwise.
func (a *app) readPassword(rd *bufio.Reader) (string, error) {
	fmt.Fprint(a.errOut, "password: ")
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.errOut)
		return string(b), err
	}
	line, err := rd.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) logout() error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func (a *app) whoami() error {
	st := a.sess.State()
	if !st.Valid {
		fmt.Fprintln(a.out, "not signed in")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "user\t%s\n", st.Subject)
	fmt.Fprintf(tw, "role\t%s\n", st.Role)
	fmt.Fprintf(tw, "expires\t%s\n", st.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "can author\t%t\n", a.sess.CanAuthor())
	fmt.Fprintf(tw, "can take\t%t\n", a.sess.CanTake())
	return tw.Flush()
}

func (a *app) quizShow(ctx context.Context, id string) error {
	q, qs, err := a.client.QuizWithQuestions(ctx, id)
	if err != nil {
		return err
	}
	limit := "none"
	if q.TimeLimitMinutes != nil {
		limit = fmt.Sprintf("%d min", *q.TimeLimitMinutes)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", q.ID)
	fmt.Fprintf(tw, "title\t%s\n", q.Title)
	fmt.Fprintf(tw, "type\t%s\n", q.Type)
	var moduleID string
	if q.ModuleID != nil {
		moduleID = *q.ModuleID
	}
	where, err := directory.New(a.client).Describe(ctx, q.CourseID, moduleID)
	if err != nil {
		a.logger.Printf("describe course %s: %v", q.CourseID, err)
		where = q.CourseID
	}
	fmt.Fprintf(tw, "course\t%s\n", where)
	fmt.Fprintf(tw, "time limit\t%s\n", limit)
	fmt.Fprintf(tw, "questions\t%d\n", len(qs))
	fmt.Fprintf(tw, "shuffle answers\t%t\n", q.Flags.ShuffleAnswers)
	fmt.Fprintf(tw, "multiple attempts\t%t\n", q.Flags.AllowMultipleAttempts)
	fmt.Fprintf(tw, "show responses\t%t\n", q.Flags.ShowResponses)
	fmt.Fprintf(tw, "published\t%t\n", q.Published)
	return tw.Flush()
}

func (a *app) quizQuestions(ctx context.Context, id string) error {
	qz, qs, err := a.client.QuizWithQuestions(ctx, id)
	if err != nil {
		return err
	}
	store := quiz.NewStore(id, qz.Type)
	for i, p := range qs {
		q := store.FromPersisted(p)
		fmt.Fprintf(a.out, "%d. [%s, %g pt] %s\n   id: %s\n", i+1, q.Type, q.Points, q.Text, q.ID)
		for j, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				continue
			}
			mark := " "
			if q.Correct[j] {
				mark = "*"
			}
			fmt.Fprintf(a.out, "   %s %c) %s\n", mark, 'a'+j, o)
		}
		if q.Attachment != nil {
			fmt.Fprintf(a.out, "   attachment: %s (%s)\n", q.Attachment.Name, q.Attachment.URL)
		}
	}
	return nil
}

func (a *app) quizDelete(ctx context.Context, id string) error {
	if !a.sess.CanAuthor() {
		return fmt.Errorf("role %q cannot delete quizzes", a.sess.Role())
	}
	if err := a.client.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted quiz %s\n", id)
	return nil
}

func (a *app) take(ctx context.Context, args []string) error {
	fs := a.flags("take")
	answersPath := fs.String("answers", "", "JSON answers file")
	retake := fs.Bool("retake", false, "start a new attempt when the quiz allows it")
	// quiz id may come before or after the flags
	var quizID string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		quizID, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if quizID == "" && fs.NArg() > 0 {
		quizID = fs.Arg(0)
	}
	if quizID == "" || *answersPath == "" {
		return errUsage
	}
	answers, err := readAnswers(*answersPath)
	if err != nil {
		return err
	}

	shown := make(chan string, 1)
	nav := notify.NavigatorFunc(func(route string) {
		select {
		case shown <- route:
		default:
		}
	})
	tc := taking.New(a.client, nav,
		taking.WithNotifier(a.notifier()),
		taking.WithLogger(a.logger),
		taking.WithLocale(a.cfg.Locale),
		taking.WithMaxUpload(a.cfg.UploadMax),
		taking.WithResultDelay(a.cfg.ResultDelay),
	)
	defer tc.Close()

	if err := tc.Load(ctx, quizID); err != nil {
		return err
	}
	if tc.AlreadySubmitted() {
		if !*retake {
			if r, ok := tc.Result(); ok {
				a.printResult(r)
			}
			return nil
		}
		if err := tc.Retake(ctx); err != nil {
			return err
		}
	}
	if err := tc.Start(ctx); err != nil {
		return err
	}
	if rem := tc.Remaining(); rem > 0 {
		fmt.Fprintf(a.out, "time limit: %s\n", rem)
	}
	if err := applyAnswers(tc, tc.Items(), answers, filepath.Dir(*answersPath)); err != nil {
		return err
	}
	done, total := tc.Progress()
	fmt.Fprintf(a.out, "answered %d of %d\n", done, total)

	// the countdown may have submitted already
	if err := tc.Submit(ctx); err != nil && tc.State() != taking.Completed {
		return err
	}
	if r, ok := tc.Result(); ok {
		a.printResult(r)
	}
	select {
	case <-shown:
	case <-time.After(a.cfg.ResultDelay + time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return a.result(ctx, quizID)
}

func (a *app) printResult(r quiz.Result) {
	fmt.Fprintf(a.out, "attempt %d: %g / %g (%d of %d correct, %s)\n",
		r.AttemptNumber, r.Score, r.MaxScore, r.CorrectCount, r.TotalCount, r.Status)
}

func (a *app) resultCmd(ctx context.Context, args []string) error {
	fs := a.flags("result")
	user := fs.String("user", "", "student user id (teachers and admins)")
	var quizID string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		quizID, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if quizID == "" && fs.NArg() > 0 {
		quizID = fs.Arg(0)
	}
	if quizID == "" {
		return errUsage
	}
	if *user != "" {
		d, err := a.client.ResultOf(ctx, quizID, *user)
		if err != nil {
			return err
		}
		return a.printDetail(d)
	}
	return a.result(ctx, quizID)
}

func (a *app) result(ctx context.Context, quizID string) error {
	d, err := a.client.Result(ctx, quizID)
	if err != nil {
		return err
	}
	return a.printDetail(d)
}

func (a *app) printDetail(d quiz.ResultDetail) error {
	a.printResult(d.Result)
	if len(d.Items) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tquestion\tresponse\tcorrect answer\tpoints")
	for i, it := range d.Items {
		mark := ""
		if it.Correct != nil {
			mark = " x"
			if *it.Correct {
				mark = " ok"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s%s\t%s\t%g/%g\n", i+1, it.QuestionText, it.Response, mark, it.CorrectAnswer, it.Points, it.MaxPoints)
	}
	return tw.Flush()
}

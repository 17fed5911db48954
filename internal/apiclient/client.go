// Package apiclient is the typed REST client for the LMS backend. Every
// response is decoded into a wire type, validated, and mapped into the
// internal model before it is returned.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/session"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	api  *resty.Client // bearer-authenticated
	anon *resty.Client // login only
	sess *session.Session
}

// New builds a client whose requests carry the session's token. A 401 from
// the backend, or a missing or expired token, ends the session through
// session.LoginRequired.
func New(cfg Config, sess *session.Session) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "mindengage-exams"
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	authed := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: sess.TokenSource(),
			Base:   http.DefaultTransport,
		},
	}
	mk := func(hc *http.Client) *resty.Client {
		return resty.NewWithClient(hc).
			SetBaseURL(base).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Client{
		api:  mk(authed),
		anon: mk(&http.Client{Timeout: cfg.Timeout}),
		sess: sess,
	}
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req := c.api.R().SetContext(ctx).ForceContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	res, err := req.Execute(method, path)
	if err := c.check(method+" "+path, res, err); err != nil {
		return err
	}
	return checkBody(method+" "+path, out)
}

func (c *Client) upload(ctx context.Context, path, name string, r io.Reader, fields map[string]string, out any) error {
	req := c.api.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetFileReader("file", name, r).
		SetFormData(fields).
		SetResult(out)
	res, err := req.Post(path)
	if err := c.check("POST "+path, res, err); err != nil {
		return err
	}
	return checkBody("POST "+path, out)
}

func (c *Client) check(op string, res *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, session.ErrNoToken) || errors.Is(err, session.ErrExpired) {
			c.sess.LoginRequired()
			return &Error{Kind: KindUnauthorized, Op: op, Err: err}
		}
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	if res.IsSuccess() {
		return nil
	}
	e := errorFromResponse(op, res)
	if e.Kind == KindUnauthorized {
		c.sess.LoginRequired()
	}
	return e
}

// checkBody validates a decoded response against its wire tags.
func checkBody(op string, out any) error {
	if out == nil {
		return nil
	}
	v := reflect.Indirect(reflect.ValueOf(out))
	if v.Kind() != reflect.Slice {
		if err := quiz.Validator().Struct(out); err != nil {
			return &Error{Kind: KindServer, Op: op, Message: "unexpected response", Err: err}
		}
		return nil
	}
	for i := 0; i < v.Len(); i++ {
		if err := quiz.Validator().Struct(v.Index(i).Interface()); err != nil {
			return &Error{Kind: KindServer, Op: op, Message: "unexpected response", Err: err}
		}
	}
	return nil
}

func invalid(op, msg string) error {
	return &Error{Kind: KindServer, Op: op, Message: "unexpected response: " + msg}
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "POST /auth/login"
	var out wire.LoginResponse
	res, err := c.anon.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(wire.LoginRequest{Username: username, Password: password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return "", &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	if !res.IsSuccess() {
		return "", errorFromResponse(op, res)
	}
	if err := checkBody(op, &out); err != nil {
		return "", err
	}
	if err := c.sess.Set(out.AccessToken); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return out.Role, nil
}

// Logout forgets the token locally; tokens are stateless on the backend.
func (c *Client) Logout() error { return c.sess.Clear() }

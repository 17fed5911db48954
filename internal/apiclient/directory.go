package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mind-engage/mindengage-exams/internal/directory"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

func (c *Client) Course(ctx context.Context, id string) (directory.Course, error) {
	var out wire.Course
	if err := c.call(ctx, http.MethodGet, "/courses/"+url.PathEscape(id), nil, &out); err != nil {
		return directory.Course{}, err
	}
	return courseFromWire(out), nil
}

func (c *Client) Module(ctx context.Context, id string) (directory.Module, error) {
	var out wire.Module
	if err := c.call(ctx, http.MethodGet, "/modules/"+url.PathEscape(id), nil, &out); err != nil {
		return directory.Module{}, err
	}
	return moduleFromWire(out), nil
}

func (c *Client) CourseModules(ctx context.Context, courseID string) ([]directory.Module, error) {
	var out []wire.Module
	if err := c.call(ctx, http.MethodGet, "/courses/"+url.PathEscape(courseID)+"/modules", nil, &out); err != nil {
		return nil, err
	}
	mods := make([]directory.Module, 0, len(out))
	for _, m := range out {
		mods = append(mods, moduleFromWire(m))
	}
	return mods, nil
}

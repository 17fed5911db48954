// Package directory resolves course and module metadata by id.
package directory

import (
	"context"
	"sync"
)

type Course struct {
	ID           string
	Title        string
	Description  string
	InstructorID string
	Price        float64
	Published    bool
}

type Module struct {
	ID       string
	CourseID string
	Title    string
	Order    int
}

// Source is the backend the directory reads from.
type Source interface {
	Course(ctx context.Context, id string) (Course, error)
	Module(ctx context.Context, id string) (Module, error)
	CourseModules(ctx context.Context, courseID string) ([]Module, error)
}

// Directory memoizes successful lookups for the life of the process. Errors
// are not cached.
type Directory struct {
	src Source

	mu      sync.Mutex
	courses map[string]Course
	modules map[string]Module
}

func New(src Source) *Directory {
	return &Directory{src: src, courses: map[string]Course{}, modules: map[string]Module{}}
}

func (d *Directory) Course(ctx context.Context, id string) (Course, error) {
	d.mu.Lock()
	c, ok := d.courses[id]
	d.mu.Unlock()
	if ok {
		return c, nil
	}
	c, err := d.src.Course(ctx, id)
	if err != nil {
		return Course{}, err
	}
	d.mu.Lock()
	d.courses[id] = c
	d.mu.Unlock()
	return c, nil
}

func (d *Directory) Module(ctx context.Context, id string) (Module, error) {
	d.mu.Lock()
	m, ok := d.modules[id]
	d.mu.Unlock()
	if ok {
		return m, nil
	}
	m, err := d.src.Module(ctx, id)
	if err != nil {
		return Module{}, err
	}
	d.mu.Lock()
	d.modules[id] = m
	d.mu.Unlock()
	return m, nil
}

// ModulesOf lists a course's modules and primes the module cache with them.
func (d *Directory) ModulesOf(ctx context.Context, courseID string) ([]Module, error) {
	mods, err := d.src.CourseModules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	for _, m := range mods {
		d.modules[m.ID] = m
	}
	d.mu.Unlock()
	return mods, nil
}

// Describe renders "Course / Module" for headers; the module part is
// omitted when moduleID is empty.
func (d *Directory) Describe(ctx context.Context, courseID, moduleID string) (string, error) {
	c, err := d.Course(ctx, courseID)
	if err != nil {
		return "", err
	}
	if moduleID == "" {
		return c.Title, nil
	}
	m, err := d.Module(ctx, moduleID)
	if err != nil {
		return "", err
	}
	return c.Title + " / " + m.Title, nil
}

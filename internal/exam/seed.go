package exam

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

// Demo fixtures for MODE=offline.
const (
	DemoCourseID = "demo-course"
	DemoModuleID = "demo-module"
)

// SeedAdmin makes sure the configured admin can log in. passHash is bcrypt.
func SeedAdmin(ctx context.Context, s Store, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
		return fmt.Errorf("admin password hash: %w", err)
	}
	return s.PutUser(ctx, User{Username: username, Role: rbac.RoleAdmin, PassHash: passHash})
}

// SeedDemo adds a teacher, a student (passwords equal to the usernames) and
// one course with a module.
func SeedDemo(ctx context.Context, s Store) error {
	for _, u := range []struct{ name, role string }{
		{"teacher", rbac.RoleTeacher},
		{"student", rbac.RoleStudent},
	} {
		h, err := bcrypt.GenerateFromPassword([]byte(u.name), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if err := s.PutUser(ctx, User{ID: "demo-" + u.name, Username: u.name, Role: u.role, PassHash: string(h)}); err != nil {
			return fmt.Errorf("seed %s: %w", u.name, err)
		}
	}
	if err := s.PutCourse(ctx, Course{
		ID:           DemoCourseID,
		Title:        "Demo course",
		Description:  "Sample course for local development",
		InstructorID: "demo-teacher",
		Published:    true,
	}); err != nil {
		return fmt.Errorf("seed course: %w", err)
	}
	return s.PutModule(ctx, Module{ID: DemoModuleID, CourseID: DemoCourseID, Title: "Week 1", Order: 1})
}

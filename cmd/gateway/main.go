package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/mind-engage/mindengage-exams/internal/api/http"
	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/config"
	"github.com/mind-engage/mindengage-exams/internal/db"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	storage "github.com/mind-engage/mindengage-exams/internal/storage"
	syncx "github.com/mind-engage/mindengage-exams/internal/sync"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.FromEnv().Server

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := exam.NewSQLStore(dbh, cfg.DBDriver)

	if err := exam.SeedAdmin(ctx, store, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if cfg.Mode == config.ModeOffline {
		if err := exam.SeedDemo(ctx, store); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		log.Printf("demo users: teacher/teacher, student/student (course %s)", exam.DemoCourseID)
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	r := api.NewRouter(api.Deps{
		Store:           store,
		Blobs:           bs,
		Events:          syncx.NewEventRepo(dbh, string(cfg.Mode)),
		Auth:            auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		EnableLocalAuth: cfg.EnableLocalAuth,
		CORSOrigins:     cfg.CORSOrigins,
		UploadMax:       cfg.UploadMax,
	})

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(s.ListenAndServe())
}

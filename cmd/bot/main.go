package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PoluyanbIch/StudyQuizBot/internal/config"
	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
	"github.com/PoluyanbIch/StudyQuizBot/internal/httpapi"
	"github.com/PoluyanbIch/StudyQuizBot/internal/service"
	"github.com/PoluyanbIch/StudyQuizBot/internal/storage"
	"github.com/PoluyanbIch/StudyQuizBot/internal/telegram"
	"github.com/redis/go-redis/v9"
)

// admissionTTL bounds how long a crashed replica can keep a user locked out.
const admissionTTL = 2 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	courses, err := content.Load(cfg.CoursesPath)
	if err != nil {
		log.Fatalf("Error loading courses: %v", err)
	}
	if len(courses) == 0 {
		log.Fatalf("No courses in %s", cfg.CoursesPath)
	}
	course := courses[0]
	log.Printf("Loaded course %q with %d sections", course.Name, len(course.Sections))

	db, err := storage.Open(storage.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	if db != nil {
		if err := db.AutoMigrate(&service.LeaderboardEntry{}); err != nil {
			log.Fatalf("Error migrating database: %v", err)
		}
	}
	// Uses the database if configured, memory otherwise
	leaderboardService := service.NewLeaderboardService(db)

	var guard service.AdmissionGuard = service.NewMemoryAdmission()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Error connecting to redis: %v", err)
		}
		guard = service.NewRedisAdmission(rdb, admissionTTL)
		log.Printf("Using redis admission at %s", cfg.RedisAddr)
	}

	var bot *telegram.Bot
	manager := service.NewManager(course.Sections, service.ManagerConfig{
		SetCount:        cfg.QuizSetCount,
		TimePerQuestion: cfg.TimePerQuestion,
		Guard:           guard,
		OnExpire:        func(s *service.QuizSession) { bot.OnExpire(s) },
	})
	defer manager.Close()

	bot, err = telegram.NewBot(cfg.BotToken, cfg.BotDebug, manager, leaderboardService, course)
	if err != nil {
		log.Fatal(err)
	}

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.NewHandler(courses, leaderboardService, manager).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("Status API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Error serving status API: %v", err)
			}
		}()
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Println("Shutting down...")
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}
		bot.Stop()
	}()

	log.Println("🤖 Bot is starting...")
	bot.Start()
}

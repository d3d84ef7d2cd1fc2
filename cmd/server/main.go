package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	queuepublisher "github.com/iliyamo/event-ticketing/internal/service"
	"github.com/iliyamo/event-ticketing/internal/ticketing"
)

func main() {
	// Missing .env is fine in deployed environments where config
	// comes from real environment variables.
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	attending := repository.NewAttendingRepo(db)
	invoices := repository.NewInvoiceRepo(db)

	validator := &ticketing.Validator{EmailCapEnabled: cfg.EmailTicketCap}

	h := router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, users, tokens),
		Events: handler.NewEventHandler(events, users),
		Attending: &handler.AttendingHandler{
			Events:    events,
			Attending: attending,
			Users:     users,
			Validator: validator,
			Publish:   queuepublisher.PublishTicketConfirmed,
		},
		Invoices: handler.NewInvoiceHandler(events, attending, invoices),
	}

	go queue.StartTicketConsumer()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e)
	router.RegisterAPI(e, h, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")
	if err := e.Start(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

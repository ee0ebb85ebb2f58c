package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/secmun/podium/apps/api/echo"
	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/event"
	"github.com/secmun/podium/core/finance"
	"github.com/secmun/podium/core/member"
	"github.com/secmun/podium/core/notification"
	emailsvc "github.com/secmun/podium/services/email"
	logsvc "github.com/secmun/podium/services/logger"
	pushsvc "github.com/secmun/podium/services/push"
	"github.com/secmun/podium/storage/database"
	sqlxrepos "github.com/secmun/podium/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var pushSvc core.PushService
	if conf.FCMCredentials != "" {
		if pushSvc, err = pushsvc.NewFCMService(context.Background(), conf, logger); err != nil {
			logger.Fatal(fmt.Sprintf("setting up push service: %v", err), err)
		}
	} else {
		pushSvc = pushsvc.NewConsoleService()
	}

	mbrSvc := member.NewService(sqlxrepos.NewMemberRepository(db), mailSvc, conf)
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), logger, conf)
	evtSvc := event.NewService(sqlxrepos.NewEventRepository(db), pushSvc, logger, conf)
	finSvc := finance.NewService(sqlxrepos.NewFinanceRepository(db))
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), pushSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	member.InitValidators(validate, translator)

	member.InitTokenGenerator(conf)
	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /debug/metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	http.Handle("/debug/metrics", promhttp.Handler())

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			MemberSvc:       mbrSvc,
			AttendanceSvc:   attSvc,
			EventSvc:        evtSvc,
			FinanceSvc:      finSvc,
			NotificationSvc: notifSvc,
			Validate:        validate,
			Translator:      translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

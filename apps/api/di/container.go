// Package di builds the dependency graph of the API with dig.
package di

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/jorgefranciscopaz/E-Learning-English-Platform/apps/api/echo"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/report"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
	emailsvc "github.com/jorgefranciscopaz/E-Learning-English-Platform/services/email"
	logsvc "github.com/jorgefranciscopaz/E-Learning-English-Platform/services/logger"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/services/tokenstore"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database"
	inmemdb "github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database/inmem"
	sqlxrepos "github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	serverParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		TokenStore    tokenstore.Store
		UserSvc       *user.Service
		CurriculumSvc *curriculum.Service
		ClassSvc      *class.Service
		ProgressSvc   *progress.Service
		ReportSvc     *report.Service
	}

	closerFunc func() error
)

func (f closerFunc) Close() error { return f() }

func newRollbarLogger(conf *core.Config, name string) core.Logger {
	zl, err := logsvc.NewZapLogger(conf, name)
	if err != nil {
		log.Fatalf("creating %s logger: %v", name, err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "API")
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "DB")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, io.Closer) {
	setUp := func() (*sqlx.DB, error) {
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

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newInmemDB(loggerParam DBLoggerParam) (*inmemdb.DB, io.Closer) {
	loggerParam.Logger.Warn("using the in-memory database: data is lost on shutdown")
	return inmemdb.Open(), closerFunc(func() error { return nil })
}

func newTokenStore(conf *core.Config, logger core.Logger) tokenstore.Store {
	if conf.Redis.Address == "" {
		logger.Warn("redis address not configured: revoked tokens are kept in memory")
		return tokenstore.NewMemoryStore()
	}
	return tokenstore.NewRedisStore(tokenstore.NewRedisClient(conf))
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	return echoapi.NewServer(p.Conf.Server.Address, shutdown, &echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		TokenStore:    p.TokenStore,
		UserSvc:       p.UserSvc,
		CurriculumSvc: p.CurriculumSvc,
		ClassSvc:      p.ClassSvc,
		ProgressSvc:   p.ProgressSvc,
		ReportSvc:     p.ReportSvc,
	})
}

func provideSQLRepositories(c *dig.Container) {
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository), new(user.Finder))))
	must(c.Provide(sqlxrepos.NewCurriculumRepository, dig.As(new(curriculum.Repository))))
	must(c.Provide(sqlxrepos.NewClassRepository, dig.As(new(class.Repository), new(report.ClassFinder))))
	must(c.Provide(sqlxrepos.NewProgressRepository, dig.As(new(progress.Repository))))
	must(c.Provide(sqlxrepos.NewReportRepository, dig.As(new(report.Repository))))
}

func provideInmemRepositories(c *dig.Container) {
	must(c.Provide(newInmemDB))
	must(c.Provide(inmemdb.NewUserRepository, dig.As(new(user.Repository), new(user.Finder))))
	must(c.Provide(inmemdb.NewCurriculumRepository, dig.As(new(curriculum.Repository))))
	must(c.Provide(inmemdb.NewClassRepository, dig.As(new(class.Repository), new(report.ClassFinder))))
	must(c.Provide(inmemdb.NewProgressRepository, dig.As(new(progress.Repository))))
	must(c.Provide(inmemdb.NewReportRepository, dig.As(new(report.Repository))))
}

// New returns a new dependency injection dig.Container.
// With inmem set, the repositories are backed by the in-memory database instead of postgres.
func New(inmem bool) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	if inmem {
		provideInmemRepositories(c)
	} else {
		provideSQLRepositories(c)
	}
	must(c.Provide(newTokenStore))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(curriculum.NewService))
	must(c.Provide(class.NewService))
	must(c.Provide(progress.NewService))
	must(c.Provide(report.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

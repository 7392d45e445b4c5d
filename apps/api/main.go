package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/apps/api/di"
	echoapi "github.com/mmarronetravels-sudo/tiertrak-sub001/apps/api/echo"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
)

// api holds what the API process needs once the container is built.
type api struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	DBLogger   core.Logger `name:"dbLogger"`
	DB         *sqlx.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Server     *echoapi.Server
}

func main() {
	if err := di.New().Invoke(serve); err != nil {
		log.Fatal(err)
	}
}

// serve runs the API until it fails or is asked to shut down.
func serve(a api) error {
	a.Logger.Info(fmt.Sprintf(
		"%s API starting: version %q, env %s, %s database, school timezone %s",
		a.Conf.AppName, a.Conf.Build, a.Conf.Env, a.Conf.Database.Engine, a.Conf.Location(),
	))
	defer a.Logger.Info("API stopped")

	core.InitValidators(a.Validate, a.Translator)
	progress.InitValidators(a.Validate, a.Translator)

	defer func() {
		if err := a.DB.Close(); err != nil {
			a.DBLogger.Error("closing database", err)
		}
	}()

	go serveDebug(a.Conf, a.Logger)
	go a.Server.Start()

	select {
	case err := <-a.Server.Errors():
		return errors.Wrap(err, "serving API")
	case sig := <-a.Server.ShutdownSignal():
		a.Logger.Info(fmt.Sprintf("%v: shutting down", sig))
		return shutdown(a.Server, a.Conf.Server.ShutdownTimeout, a.Logger)
	}
}

// serveDebug exposes /debug/pprof (net/http/pprof) and /debug/vars (expvar) on the default mux.
func serveDebug(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("db_engine").Set(conf.Database.Engine)
	expvar.NewString("timezone").Set(conf.Location().String())

	if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
		logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
	}
}

// shutdown gives in-flight requests until timeout, then closes the server.
func shutdown(server *echoapi.Server, timeout time.Duration, logger core.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		return errors.Wrap(server.Close(), "forcing server to stop")
	}
	return nil
}

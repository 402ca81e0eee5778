package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/stellar/go-stellar-sdk/support/http/mutil"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/monitor"
	"github.com/gaslift/gaslift-backend/internal/serve/httperror"
	"github.com/gaslift/gaslift-backend/internal/utils"
)

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// No need to recover when the client has disconnected:
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.Ctx(ctx).WithStack(err).Error(err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler is a middleware that monitors http requests, and export the data
// to the metrics server
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := middleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			duration := time.Since(then)

			labels := monitor.HTTPRequestLabels{
				Status: fmt.Sprintf("%d", mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}

			err := monitorService.MonitorHttpRequestDuration(duration, labels)
			if err != nil {
				log.Ctx(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		cors := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		})

		return cors.Handler(next)
	}
}

// LoggingMiddleware is a middleware that logs requests to the logger.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := mutil.WrapWriter(rw)

		reqCtx := req.Context()
		logFields := log.F{
			"method": req.Method,
			"path":   req.URL.String(),
			"req":    middleware.GetReqID(reqCtx),
		}
		logCtx := log.Set(reqCtx, log.Ctx(reqCtx).WithFields(logFields))

		req = req.WithContext(logCtx)

		logRequestStart(req)
		started := time.Now()

		next.ServeHTTP(mw, req)
		ended := time.Since(started)
		logRequestEnd(req, mw, ended)
	})
}

func logRequestStart(req *http.Request) {
	l := log.Ctx(req.Context()).WithFields(
		log.F{
			"subsys":    "http",
			"ip":        req.RemoteAddr,
			"host":      req.Host,
			"useragent": req.Header.Get("User-Agent"),
		},
	)

	l.Info("starting request")
}

func logRequestEnd(req *http.Request, mw mutil.WriterProxy, duration time.Duration) {
	l := log.Ctx(req.Context()).WithFields(log.F{
		"subsys":   "http",
		"status":   mw.Status(),
		"bytes":    mw.BytesWritten(),
		"duration": duration,
	})
	if routeContext := chi.RouteContext(req.Context()); routeContext != nil {
		l = l.WithField("route", routeContext.RoutePattern())
	}

	l.Info("finished request")
}

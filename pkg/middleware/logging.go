package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/configuration"
)

type LoggerOptions struct {
	RequestIDHeader string
	RealIPHeader    string
	Repanic         bool
}

func DefaultLoggerOptions() LoggerOptions {
	conf := configuration.Use()
	return LoggerOptions{
		RequestIDHeader: conf.RequestIDHeader,
		RealIPHeader:    conf.RealIPHeader,
	}
}

type responseCaptureWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
	bytes         int
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

// Status returns the HTTP status code
func (w *responseCaptureWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *responseCaptureWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func headerOr(r *http.Request, header, fallback string) string {
	if header == "" {
		return fallback
	}
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}
	return fallback
}

var tracer = otel.Tracer("orghierarchy-middleware")

func TracedMiddleware(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(
				r.Context(),
				"middleware."+name,
				trace.WithAttributes(
					attribute.String("middleware.name", name),
					attribute.String("http.method", r.Method),
				),
			)
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLogger attaches a request-scoped logrus entry and a root span to every request.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := headerOr(r, opts.RequestIDHeader, "")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			if opts.RequestIDHeader != "" {
				w.Header().Set(opts.RequestIDHeader, requestID)
			}

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.URL.Path,
				"method":     r.Method,
			})

			propagator := propagation.TraceContext{}
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(
				ctx,
				"http.request",
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", r.URL.Path),
					attribute.String("http.request_id", requestID),
					attribute.String("net.peer.ip", headerOr(r, opts.RealIPHeader, r.RemoteAddr)),
				),
			)
			defer span.End()

			ctx = composables.WithLogger(ctx, fieldsLogger)
			ctx = composables.WithRequestID(ctx, requestID)

			rw := &responseCaptureWriter{ResponseWriter: w}
			defer func() {
				if rec := recover(); rec != nil {
					span.SetStatus(codes.Error, "panic")
					fieldsLogger.WithField("panic", rec).WithField("stack", string(debug.Stack())).Error("request panicked")
					if opts.Repanic {
						panic(rec)
					}
					if !rw.statusWritten {
						http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					}
				}
				duration := time.Since(start)
				span.SetAttributes(attribute.Int("http.status_code", rw.Status()))
				if rw.Status() >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(rw.Status()))
				}
				fieldsLogger.WithFields(logrus.Fields{
					"status":      rw.Status(),
					"bytes":       rw.bytes,
					"duration-ms": duration.Milliseconds(),
				}).Info("request completed")
			}()

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

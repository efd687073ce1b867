package apiclient

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// LevelError is the severity used for every forwarded failure.
const LevelError = "error"

// ReportContext carries structured context for a monitoring report.
type ReportContext struct {
	Level string
	Extra map[string]any
}

// Reporter is the external monitoring collaborator.
type Reporter interface {
	Report(err error, ctx ReportContext)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(err error, ctx ReportContext)

func (f ReporterFunc) Report(err error, ctx ReportContext) {
	f(err, ctx)
}

// UserContextSetter is implemented by reporters that can tag reports with
// the signed-in user. A nil map clears the context.
type UserContextSetter interface {
	SetUserContext(user map[string]any)
}

// LogReporter forwards reports to a logrus logger at error level. It is
// safe for concurrent use.
type LogReporter struct {
	logger logrus.FieldLogger

	mu   sync.RWMutex
	user map[string]any
}

// NewLogReporter returns a Reporter writing to logger.
func NewLogReporter(logger logrus.FieldLogger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(err error, ctx ReportContext) {
	fields := logrus.Fields{"level_hint": ctx.Level}
	for k, v := range ctx.Extra {
		fields[k] = v
	}
	r.mu.RLock()
	if r.user != nil {
		fields["user"] = r.user
	}
	r.mu.RUnlock()
	r.logger.WithFields(fields).WithError(err).Error("api error reported")
}

// SetUserContext tags later reports with user. A nil map clears it.
func (r *LogReporter) SetUserContext(user map[string]any) {
	r.mu.Lock()
	r.user = user
	r.mu.Unlock()
}

// errorReporter decides which normalized errors reach the Reporter.
type errorReporter struct {
	reporter Reporter
	metrics  *MetricsCollector
}

// report forwards err unless it is expected noise: no reporter configured,
// an authorization denial, or a plain network failure.
func (r *errorReporter) report(err *Error) bool {
	if r.reporter == nil || err.Forbidden() || err.Message == MessageNetworkError {
		r.metrics.RecordReport(false)
		return false
	}

	r.reporter.Report(err, ReportContext{
		Level: LevelError,
		Extra: map[string]any{
			"method":   err.Request.Method,
			"url":      err.Request.URL,
			"params":   err.Request.Params,
			"headers":  err.Request.Headers,
			"response": err.Response,
		},
	})
	r.metrics.RecordReport(true)
	return true
}

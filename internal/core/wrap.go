package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/JonMunkholm/catalog/internal/bitacora"
)

// Envelope messages set by the wrapper.
const (
	MsgSuccessUSR = "Operation completed successfully."
	MsgSuccessDEV = "Operation completed successfully (dev)."
	MsgFailureUSR = "The operation could not be completed."
)

// HandlerFunc does the work of one operation and returns its result payload.
type HandlerFunc func(ctx context.Context) (any, error)

// Recorder observes every wrapped operation.
type Recorder interface {
	Observe(entity string, method Verb, status int, success bool, elapsed time.Duration)
}

// WrapperConfig is resolved once at startup.
type WrapperConfig struct {
	DBServer string       // database label reported in every envelope
	Server   string       // server label reported in every envelope
	Debug    bool         // print a tabular ledger summary per operation
	DebugOut io.Writer    // destination for the summary (default os.Stdout)
	Logger   *slog.Logger // default slog.Default()
	Recorder Recorder     // optional
}

// Wrapper runs operation handlers and shapes their outcome into envelopes.
type Wrapper struct {
	cfg WrapperConfig
}

// NewWrapper creates a Wrapper from cfg.
func NewWrapper(cfg WrapperConfig) *Wrapper {
	if cfg.DebugOut == nil {
		cfg.DebugOut = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Wrapper{cfg: cfg}
}

// Op describes one wrapped invocation.
type Op struct {
	Request Request
	Method  Verb
	API     string
	Process string
	Entity  string
	Handler HandlerFunc
}

// Wrap runs op.Handler and returns the success or failure envelope. Handler
// errors and panics both become failure envelopes; Wrap itself never fails.
func (w *Wrapper) Wrap(ctx context.Context, op Op) bitacora.Response {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}

	ledger := bitacora.NewLedger()
	ledger.Process = op.Process
	ledger.DBServer = w.cfg.DBServer
	ledger.Server = w.cfg.Server
	ledger.Session = GetSessionFromContext(ctx)
	ledger.LoggedUser = GetUserFromContext(ctx)

	entry := bitacora.NewEntry()
	entry.Process = op.Process
	entry.Method = string(op.Method)
	entry.API = op.API
	if op.Request != nil {
		entry.DataReq = requestPayload(op.Request)
	} else {
		entry.DataReq = Record{}
	}

	result, err := w.run(ctx, op)

	var resp bitacora.Response
	if err == nil {
		entry.Status = successStatus(op.Method)
		entry.MessageUSR = MsgSuccessUSR
		entry.MessageDEV = MsgSuccessDEV
		entry.DataRes = result
		bitacora.AddEntry(ledger, entry, bitacora.OutcomeOK, entry.Status, true)
		resp = bitacora.OK(ledger)
	} else {
		entry.Status = StatusOf(err)
		entry.MessageUSR = MsgFailureUSR
		entry.MessageDEV = err.Error()
		entry.DataRes = Record{"error": fmt.Sprintf("%+v", err)}
		bitacora.AddEntry(ledger, entry, bitacora.OutcomeFail, entry.Status, true)
		resp = bitacora.Fail(ledger)

		level := slog.LevelWarn
		if entry.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		w.cfg.Logger.Log(ctx, level, "operation failed",
			"api", op.API,
			"status", entry.Status,
			"ip", GetIPAddressFromContext(ctx),
			"error", err,
		)
	}

	if w.cfg.Debug {
		w.debug(ctx, ledger)
	}

	if w.cfg.Recorder != nil {
		w.cfg.Recorder.Observe(op.Entity, op.Method, resp.Status, resp.Success, time.Since(start))
	}

	return resp
}

// run invokes the handler, converting a panic into an error.
func (w *Wrapper) run(ctx context.Context, op Op) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.cfg.Logger.Error("panic in handler",
				"api", op.API,
				"panic", r,
			)
			result = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if op.Handler == nil {
		return nil, errors.New("no handler for " + op.API)
	}
	return op.Handler(ctx)
}

func (w *Wrapper) debug(ctx context.Context, l *bitacora.Ledger) {
	w.cfg.Logger.DebugContext(ctx, "ledger",
		"process", l.Process,
		"status", l.Status,
		"success", l.Success,
		"entries", l.CountData,
	)
	if err := bitacora.WriteTable(w.cfg.DebugOut, l); err != nil {
		w.cfg.Logger.Warn("write ledger table", "error", err)
	}
}

func successStatus(method Verb) int {
	if method == VerbCreate {
		return http.StatusCreated
	}
	return http.StatusOK
}

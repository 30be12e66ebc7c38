package reporter

import (
	"sync"

	"github.com/pulp-platform/svpickle/span"
)

// ErrorReporter is invoked for every hard error encountered during a run.
// Returning a non-nil error aborts the run immediately with that error;
// returning nil lets the run continue collecting further diagnostics (this
// is how a caller can choose to keep going past the first error, e.g. to
// report every syntax error in a bundle instead of just the first one).
type ErrorReporter func(err ErrorWithPos) error

// WarningReporter is invoked for every warning. Warnings never abort a run.
type WarningReporter func(err ErrorWithPos)

// Reporter bundles the two callbacks a caller can supply to customize
// error/warning handling. Either field may be nil, in which case Handler
// applies its own default (abort on first error, ignore warnings).
type Reporter struct {
	Error   ErrorReporter
	Warning WarningReporter
}

// Handler accumulates diagnostics for one pickle run (or sub-task) and
// enforces the reporting policy configured via Reporter. It is safe for
// concurrent use by multiple goroutines.
type Handler struct {
	mu       sync.Mutex
	reporter Reporter
	errs     []ErrorWithPos
	warns    []ErrorWithPos
	aborted  error
}

// NewHandler constructs a Handler. A zero-value Reporter gets the default
// policy: the first error reported aborts the run, and warnings are kept
// but never printed by the handler itself (callers inspect Warnings()).
func NewHandler(r Reporter) *Handler {
	return &Handler{reporter: r}
}

// SubHandler returns a new Handler with the same Reporter policy. Its
// error state is its own: a fatal error reported through it does not
// abort h.
func (h *Handler) SubHandler() *Handler {
	return &Handler{reporter: h.reporter}
}

// HandleError reports a hard error. It returns non-nil once the handler
// has aborted (either because this call's error was fatal per the
// configured Reporter, or because a previous call already aborted it);
// callers should stop processing and propagate that error.
func (h *Handler) HandleError(err ErrorWithPos) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.aborted != nil {
		return h.aborted
	}
	h.errs = append(h.errs, err)
	if h.reporter.Error != nil {
		if repErr := h.reporter.Error(err); repErr != nil {
			h.aborted = repErr
			return repErr
		}
		return nil
	}
	h.aborted = ErrInvalidSource
	return h.aborted
}

// HandleErrorf builds an error via Errorf and reports it through HandleError.
func (h *Handler) HandleErrorf(path string, pos span.Pos, format string, args ...interface{}) error {
	return h.HandleError(Errorf(path, pos, format, args...))
}

// HandleWarning reports a non-fatal diagnostic.
func (h *Handler) HandleWarning(err ErrorWithPos) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warns = append(h.warns, err)
	if h.reporter.Warning != nil {
		h.reporter.Warning(err)
	}
}

// Errors returns every hard error reported so far, in report order.
func (h *Handler) Errors() []ErrorWithPos {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ErrorWithPos(nil), h.errs...)
}

// Warnings returns every warning reported so far, in report order.
func (h *Handler) Warnings() []ErrorWithPos {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ErrorWithPos(nil), h.warns...)
}

// Error returns the error that aborted the run, if any.
func (h *Handler) Error() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

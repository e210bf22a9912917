package errors

import (
	"carrierhub/pkg/logger"
)

// Action is the affordance offered next to a notice.
type Action string

const (
	ActionNone           Action = ""
	ActionReload         Action = "reload"
	ActionLogin          Action = "login"
	ActionContactSupport Action = "contact_support"
)

const supportHint = "If money was deducted, please contact support."

var defaultMessages = map[Kind]string{
	KindNetwork:    "Unable to connect to the server. Please check your internet connection and try again.",
	KindValidation: "Please check the highlighted fields and try again.",
	KindAuth:       "Your session has expired. Please log in again.",
	KindPayment:    "We could not complete your payment. " + supportHint,
	KindServer:     "Something went wrong on our side. Please try again in a moment.",
	KindClient:     "Something went wrong. Please try again.",
}

var titles = map[Kind]string{
	KindNetwork:    "Connection problem",
	KindValidation: "Invalid input",
	KindAuth:       "Authentication required",
	KindPayment:    "Payment issue",
	KindServer:     "Server error",
	KindClient:     "Request failed",
}

var fieldSuggestions = map[string]string{
	"email":          "Enter an email address like name@example.com.",
	"password":       "Use at least 6 characters.",
	"name":           "Enter your full name (at least 2 characters).",
	"phone":          "Enter a 10 digit mobile number without the country code.",
	"amount":         "Amount must be greater than zero.",
	"details":        "Describe what you need help with in a few sentences.",
	"consultantType": "Pick one of the listed consultation categories.",
	"status":         "Choose a valid booking status.",
}

// DefaultMessage returns the non-technical message shown for kind.
func DefaultMessage(kind Kind) string {
	if msg, ok := defaultMessages[kind]; ok {
		return msg
	}
	return defaultMessages[KindClient]
}

// ActionFor returns the affordance attached to kind.
func ActionFor(kind Kind) Action {
	switch kind {
	case KindNetwork, KindServer:
		return ActionReload
	case KindAuth:
		return ActionLogin
	case KindPayment:
		return ActionContactSupport
	default:
		return ActionNone
	}
}

// FieldSuggestion returns a canned hint for a field, or "" if none exists.
func FieldSuggestion(field string) string {
	return fieldSuggestions[field]
}

type FieldNotice struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Notice is a transient, user-facing rendering of an error.
type Notice struct {
	Kind    Kind          `json:"kind"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Action  Action        `json:"action,omitempty"`
	Fields  []FieldNotice `json:"fields,omitempty"`
}

type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type HandleOptions struct {
	Payment bool
	// Context names the operation in logs, e.g. "create booking".
	Context string
	// Silent skips the notifier; the notice is still returned.
	Silent bool
}

type Handler struct {
	notifier Notifier
	log      *logger.Logger
}

func NewHandler(notifier Notifier, log *logger.Logger) *Handler {
	return &Handler{notifier: notifier, log: log}
}

// Handle classifies err, logs the technical detail and hands a friendly
// notice to the notifier.
func (h *Handler) Handle(err error, opts HandleOptions) Notice {
	appErr := Classify(err, opts.Payment)
	if appErr == nil {
		return Notice{}
	}

	h.log.Error("Operation failed",
		"context", opts.Context,
		"kind", appErr.Kind,
		"code", appErr.Code,
		"status", appErr.HTTPStatus,
		"error", appErr.Error(),
	)

	n := NoticeFor(appErr)
	if !opts.Silent && h.notifier != nil {
		h.notifier.Notify(n)
	}
	return n
}

// NoticeFor renders an AppError without side effects. Validation and client
// errors keep the server's message since it is written for the user; other
// kinds get the canned message.
func NoticeFor(appErr *AppError) Notice {
	message := DefaultMessage(appErr.Kind)
	if (appErr.Kind == KindValidation || appErr.Kind == KindClient) && appErr.Message != "" {
		message = appErr.Message
	}
	if appErr.Kind == KindPayment && appErr.Message != "" && appErr.Message != message {
		message = appErr.Message + " " + supportHint
	}

	n := Notice{
		Kind:    appErr.Kind,
		Title:   titles[appErr.Kind],
		Message: message,
		Action:  ActionFor(appErr.Kind),
	}
	for _, f := range appErr.Fields {
		n.Fields = append(n.Fields, FieldNotice{
			Field:      f.Field,
			Message:    f.Message,
			Suggestion: FieldSuggestion(f.Field),
		})
	}
	return n
}

// LogNotifier writes notices to the logger; used by the CLI and as the
// default sink when no UI is attached.
func LogNotifier(log *logger.Logger) Notifier {
	return NotifierFunc(func(n Notice) {
		log.Warn(n.Title,
			"kind", n.Kind,
			"message", n.Message,
			"action", n.Action,
			"fields", len(n.Fields),
		)
	})
}

package engine

// Level classifies a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier shows sync outcomes to the user. It is optional; silent
// operations never call it.
type Notifier interface {
	Notify(level Level, msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

func (e *Engine) notify(silent bool, level Level, msg string) {
	if silent || e.notifier == nil {
		return
	}
	e.notifier.Notify(level, msg)
}

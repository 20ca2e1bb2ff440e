package relay

// Logger is the logging contract every relay component writes through.
// Components prefix their lines with their own name; the backend is supplied
// by the caller (relay-server adapts a zap SugaredLogger).
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// Info is Infof for fixed lines.
	Info(message string)
}

// NoopLogger discards everything. Handy in tests.
type NoopLogger struct{}

var _ Logger = (*NoopLogger)(nil)

func (*NoopLogger) Debugf(string, ...interface{}) {}
func (*NoopLogger) Infof(string, ...interface{})  {}
func (*NoopLogger) Warnf(string, ...interface{})  {}
func (*NoopLogger) Errorf(string, ...interface{}) {}
func (*NoopLogger) Info(string)                   {}

// componentLogger tags every line with the emitting component, e.g. "[pipeline]".
type componentLogger struct {
	name string
	next Logger
}

// withComponent wraps l so every line is prefixed with the component name.
func withComponent(l Logger, name string) Logger {
	if l == nil {
		l = &NoopLogger{}
	}
	return &componentLogger{name: "[" + name + "] ", next: l}
}

func (l *componentLogger) Debugf(format string, args ...interface{}) {
	l.next.Debugf(l.name+format, args...)
}

func (l *componentLogger) Infof(format string, args ...interface{}) {
	l.next.Infof(l.name+format, args...)
}

func (l *componentLogger) Warnf(format string, args ...interface{}) {
	l.next.Warnf(l.name+format, args...)
}

func (l *componentLogger) Errorf(format string, args ...interface{}) {
	l.next.Errorf(l.name+format, args...)
}

func (l *componentLogger) Info(message string) {
	l.next.Info(l.name + message)
}

package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Setter adjusts the root logger.
type Setter func(*logrus.Logger) error

var root = struct {
	logger *logrus.Logger
	mutex  *sync.Mutex
}{
	logger: newRoot(),
	mutex:  &sync.Mutex{},
}

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

type Logger interface {
	logrus.FieldLogger
}

// New returns a logger tagged with the component it belongs to. Output and
// level are shared and adjusted through Set.
func New(component string) Logger {
	return root.logger.WithField("component", component)
}

func Set(setter Setter) error {
	root.mutex.Lock()
	err := setter(root.logger)
	root.mutex.Unlock()
	return err
}

func Level(lvl string) Setter {
	l, err := logrus.ParseLevel(lvl)
	if err != nil {
		root.logger.WithError(err).Errorf("unable to parse provided level %q", lvl)
		l = logrus.InfoLevel
	}
	return func(r *logrus.Logger) error {
		r.SetLevel(l)
		return nil
	}
}

// File tees log output into the file at path, truncating it first the way
// the bot has always started a fresh bot.log per run.
func File(path string) Setter {
	return func(r *logrus.Logger) error {
		if path == "" {
			return nil
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		r.SetOutput(io.MultiWriter(os.Stderr, f))
		return nil
	}
}

// Output redirects the root logger, mostly for tests.
func Output(w io.Writer) Setter {
	return func(r *logrus.Logger) error {
		r.SetOutput(w)
		return nil
	}
}

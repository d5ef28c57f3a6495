package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	configErr error
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
}

func newApplication(opts []Option) *application {
	app := &application{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigError hands Check a failure from loading the configuration so it
// is reported instead of the store checks.
func WithConfigError(err error) Option {
	return func(a *application) {
		a.configErr = err
	}
}

// WithIO replaces the protocol streams and the log/report output.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
	}
}

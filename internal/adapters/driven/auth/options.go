package auth

import (
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/layerpull/internal/adapters/driven/oauth"
	"github.com/custodia-labs/layerpull/internal/connectors/arcgis"
)

const (
	// DefaultCallbackPortStart is the first port tried for the OAuth callback.
	DefaultCallbackPortStart = 8765

	// DefaultCallbackPortEnd is the last port tried for the OAuth callback.
	DefaultCallbackPortEnd = 8775

	// DefaultLoginTimeout bounds how long the browser sign-in may take.
	DefaultLoginTimeout = 5 * time.Minute
)

type options struct {
	getenv       func(string) string
	readEnvFile  func(path string) (map[string]string, error)
	prompter     PasswordPrompter
	openBrowser  func(url string) error
	portStart    int
	portEnd      int
	loginTimeout time.Duration
	out          io.Writer
	clientOpts   []arcgis.Option
}

func defaultOptions() options {
	return options{
		getenv: os.Getenv,
		readEnvFile: func(path string) (map[string]string, error) {
			return godotenv.Read(path)
		},
		prompter:     NewTerminalPrompter(),
		openBrowser:  oauth.OpenBrowser,
		portStart:    DefaultCallbackPortStart,
		portEnd:      DefaultCallbackPortEnd,
		loginTimeout: DefaultLoginTimeout,
		out:          os.Stderr,
	}
}

// Option configures an authenticator.
type Option func(*options)

// WithGetenv replaces process environment lookup.
func WithGetenv(fn func(string) string) Option {
	return func(o *options) {
		o.getenv = fn
	}
}

// WithPrompter sets the password prompter used by ambient mode.
// A nil prompter disables prompting.
func WithPrompter(p PasswordPrompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

// WithBrowser replaces the function that opens the sign-in page.
func WithBrowser(fn func(url string) error) Option {
	return func(o *options) {
		o.openBrowser = fn
	}
}

// WithCallbackPorts sets the port range for the OAuth callback server.
// A range of 0-0 listens on an ephemeral port; the redirect URI carries the
// port actually bound. The config file only accepts ports 1-65535.
func WithCallbackPorts(start, end int) Option {
	return func(o *options) {
		o.portStart, o.portEnd = start, end
	}
}

// WithLoginTimeout bounds the interactive sign-in.
func WithLoginTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loginTimeout = d
		}
	}
}

// WithOutput sets where sign-in instructions are printed.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithClientOptions passes options to every portal client created.
func WithClientOptions(opts ...arcgis.Option) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

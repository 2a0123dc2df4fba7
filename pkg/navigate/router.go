package navigate

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
)

// Env names the host routing environment.
type Env string

const (
	EnvServer  Env = "server"
	EnvApp     Env = "app"
	EnvPages   Env = "pages"
	EnvUnknown Env = "unknown"
)

// ParseEnv maps a tag to an Env. Unrecognized tags yield EnvUnknown.
func ParseEnv(s string) Env {
	switch Env(s) {
	case EnvServer, EnvApp, EnvPages:
		return Env(s)
	}
	return EnvUnknown
}

// Primitive is the host router's navigation API.
type Primitive interface {
	Push(href string) error
	Replace(href string) error
	Back() error
}

// Redirector is implemented by primitives that can end the current
// request with a redirect, such as a server-side render.
type Redirector interface {
	Redirect(href string) error
}

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// Query holds query parameters to add to the URL.
	Query map[string]any
}

// NavigateOption is a functional option for Push.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithQuery adds query parameters to the navigation URL.
func WithQuery(query map[string]any) NavigateOption {
	return func(o *NavigateOptions) {
		o.Query = query
	}
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for no-op warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// Router navigates to typed routes through a host Primitive.
type Router struct {
	env    Env
	prim   Primitive
	logger *slog.Logger
}

// New creates a router for env. With an environment other than app or
// pages, or a nil primitive, navigation calls only log a warning.
func New(env Env, prim Primitive, opts ...Option) *Router {
	r := &Router{
		env:    env,
		prim:   prim,
		logger: slog.Default().With("component", "navigate"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Env returns the environment the router was created for.
func (r *Router) Env() Env {
	return r.env
}

// Active reports whether navigation calls reach the primitive.
func (r *Router) Active() bool {
	return r.prim != nil && (r.env == EnvApp || r.env == EnvPages)
}

// Href resolves route into a URL, including any query options.
func (r *Router) Href(route Route, opts ...NavigateOption) (string, error) {
	var options NavigateOptions
	for _, opt := range opts {
		opt(&options)
	}
	return buildHref(route, options)
}

// Push navigates to route.
func (r *Router) Push(route Route, opts ...NavigateOption) error {
	var options NavigateOptions
	for _, opt := range opts {
		opt(&options)
	}
	href, err := buildHref(route, options)
	if err != nil {
		return err
	}

	op := "push"
	if options.Replace {
		op = "replace"
	}
	if !r.Active() {
		r.warn(op, href)
		return nil
	}
	if options.Replace {
		return r.prim.Replace(href)
	}
	return r.prim.Push(href)
}

// Replace navigates to route, replacing the current history entry.
func (r *Router) Replace(route Route, opts ...NavigateOption) error {
	return r.Push(route, append(opts, WithReplace())...)
}

// Back navigates back in history.
func (r *Router) Back() error {
	if !r.Active() {
		r.warn("back", "")
		return nil
	}
	return r.prim.Back()
}

// Redirect resolves route and hands it to the primitive's Redirect. It
// works in the server and app environments when the primitive implements
// Redirector; anywhere else it only logs a warning.
func (r *Router) Redirect(route Route, opts ...NavigateOption) error {
	href, err := r.Href(route, opts...)
	if err != nil {
		return err
	}
	red, ok := r.prim.(Redirector)
	if !ok || (r.env != EnvServer && r.env != EnvApp) {
		r.warn("redirect", href)
		return nil
	}
	return red.Redirect(href)
}

func (r *Router) warn(op, href string) {
	r.logger.Warn("navigation unavailable, call ignored",
		"op", op,
		"env", string(r.env),
		"href", href,
	)
}

// buildHref resolves the route and appends query parameters.
func buildHref(route Route, options NavigateOptions) (string, error) {
	path, err := route.Resolve()
	if err != nil {
		return "", err
	}
	if len(options.Query) == 0 {
		return path, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %s", path)
	}
	keys := make([]string, 0, len(options.Query))
	for k := range options.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := u.Query()
	for _, k := range keys {
		q.Set(k, fmt.Sprintf("%v", options.Query[k]))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

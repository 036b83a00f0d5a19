package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/payload"
	"github.com/valyala/fasthttp"
)

// DefaultTimeout bounds a single module request.
const DefaultTimeout = 10 * time.Second

// HTTPOptions configures an HTTPChannel.
type HTTPOptions struct {
	// BaseURL is the agent root, e.g. http://localhost:80.
	BaseURL string
	Timeout time.Duration
	// Dial overrides how TCP connections are opened (SSH tunnel).
	Dial DialFunc
	Log  logger.Logger
}

// HTTPChannel is the request/response transport. Every Send is an
// independent GET <base>/server/?module=<name>.
type HTTPChannel struct {
	base    string
	client  *fasthttp.Client
	timeout time.Duration
	poster  Poster
	log     logger.Logger
	closed  atomic.Bool
}

// NewHTTPChannel creates a request/response channel posting results to loop.
func NewHTTPChannel(loop Poster, opts HTTPOptions) (*HTTPChannel, error) {
	base, err := normalizeBase(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &fasthttp.Client{
		Name:                "ldash",
		MaxConnsPerHost:     64,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: 30 * time.Second,
	}
	if opts.Dial != nil {
		dial := opts.Dial
		client.Dial = func(addr string) (net.Conn, error) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return dial(ctx, "tcp", addr)
		}
	}

	return &HTTPChannel{
		base:    base,
		client:  client,
		timeout: timeout,
		poster:  loop,
		log:     logger.OrDefault(opts.Log),
	}, nil
}

// Mode always reports ModeRequestResponse.
func (c *HTTPChannel) Mode() Mode {
	return ModeRequestResponse
}

// Ready is true until Close. There is no connection to wait for.
func (c *HTTPChannel) Ready() bool {
	return !c.closed.Load()
}

// Send fetches module on its own goroutine and posts h exactly once with
// the payload or the error.
func (c *HTTPChannel) Send(module string, h Handler) {
	if c.closed.Load() {
		c.post(h, Response{Module: module, Err: ErrNotConnected})
		return
	}
	go func() {
		resp := c.Fetch(context.Background(), module)
		c.post(h, resp)
	}()
}

// Fetch performs one module request synchronously.
func (c *HTTPChannel) Fetch(ctx context.Context, module string) Response {
	uri := c.base + ModulePath + "?" + ModuleKey + "=" + url.QueryEscape(module)

	status, body, err := c.get(ctx, uri)
	if err != nil {
		c.log.Debug("module %s: %v", module, err)
		return Response{Module: module, Err: errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Request for %s failed", module),
			"Check that the agent is running and agent.url is correct")}
	}
	if status < 200 || status > 299 {
		return Response{Module: module, Err: errors.New(errors.ErrAgent,
			fmt.Sprintf("Agent returned status %d for %s", status, module),
			"Check the module name and the agent logs")}
	}

	p, err := payload.Parse(body)
	if err != nil {
		return Response{Module: module, Err: err}
	}
	return Response{Module: module, Payload: p}
}

// Probe asks the agent whether it accepts push connections. A transport
// failure is returned as an error; a reachable agent without the flag
// reports false.
func (c *HTTPChannel) Probe(ctx context.Context) (bool, error) {
	status, body, err := c.get(ctx, c.base+ProbePath)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrProbe,
			"Capability probe failed",
			"Falling back to request/response polling")
	}
	if status < 200 || status > 299 {
		return false, errors.New(errors.ErrProbe,
			fmt.Sprintf("Capability probe returned status %d", status),
			"Falling back to request/response polling")
	}
	return ProbeSupported(body), nil
}

// Modules lists the module names the agent serves, read from the
// {"modules": [...]} document at the agent root. Agents that do not serve
// the listing return an error.
func (c *HTTPChannel) Modules(ctx context.Context) ([]string, error) {
	status, body, err := c.get(ctx, c.base+"/")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Module listing failed",
			"Check that the agent is running and agent.url is correct")
	}
	if status < 200 || status > 299 {
		return nil, errors.New(errors.ErrAgent,
			fmt.Sprintf("Agent returned status %d for the module listing", status),
			"Only ldash agents serve the listing; pass a module name instead")
	}
	p, err := payload.Parse(body)
	if err != nil {
		return nil, err
	}
	list := p.Result().Get("modules")
	if !list.IsArray() {
		return nil, errors.New(errors.ErrPayload,
			"Agent root does not list modules",
			"Only ldash agents serve the listing; pass a module name instead")
	}
	var names []string
	for _, n := range list.Array() {
		names = append(names, n.String())
	}
	return names, nil
}

// Close rejects further sends and drops idle connections.
func (c *HTTPChannel) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPChannel) get(ctx context.Context, uri string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return 0, nil, err
	}

	// The response buffer goes back to the pool, keep a copy.
	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}

func (c *HTTPChannel) post(h Handler, resp Response) {
	if h == nil {
		return
	}
	if !c.poster.Post(func() { h(resp) }) {
		c.log.Debug("dropping %s result, event loop closed", resp.Module)
	}
}

// SPDX-License-Identifier: MIT

package eagle

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	xlog "github.com/neggles/eagle3d/internal/log"
	"github.com/neggles/eagle3d/internal/telemetry"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "eagle3d/1.0"

	// The hub firmware gets unstable when commands arrive back to back,
	// so requests are spaced out by default.
	defaultMinSpacing = 500 * time.Millisecond

	// Response documents are small; anything bigger is garbage.
	maxResponseBytes = 4 * 1024 * 1024
)

// Options configures a hub client.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	MinSpacing time.Duration // minimum spacing between commands to the hub
	HTTPClient *http.Client  // optional transport override (tests)
}

// Client talks to a single Eagle hub over its local XML API.
type Client struct {
	host        string
	cloudID     string
	installCode string
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
	online      atomic.Bool
	logger      zerolog.Logger
}

// NewClient creates a hub client. host may be empty, in which case the
// conventional "eagle-<cloudid>" hostname is used.
func NewClient(host, cloudID, installCode string, opts Options) *Client {
	cloudID = strings.ToLower(strings.TrimSpace(cloudID))
	if host == "" {
		host = DefaultHostname(cloudID)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	spacing := opts.MinSpacing
	if spacing <= 0 {
		spacing = defaultMinSpacing
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		host:        host,
		cloudID:     cloudID,
		installCode: installCode,
		userAgent:   ua,
		http:        hc,
		limiter:     rate.NewLimiter(rate.Every(spacing), 1),
		logger:      xlog.WithComponent("eagle"),
	}
}

// DefaultHostname returns the conventional mDNS hostname of a hub.
func DefaultHostname(cloudID string) string {
	return "eagle-" + strings.ToLower(strings.TrimSpace(cloudID))
}

// Host returns the hostname or address the client targets.
func (c *Client) Host() string { return c.host }

// Online reports whether the last command to the hub succeeded.
func (c *Client) Online() bool { return c.online.Load() }

// Execute sends a command document to the hub and decodes the XML response
// into out (which may be nil to discard the response body).
func (c *Client) Execute(ctx context.Context, cmd Command, out any) error {
	ctx, span := telemetry.Tracer("eagle3d/eagle").Start(ctx, "hub."+cmd.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.HubAttributes(c.host, cmd.Name)...))
	defer span.End()

	err := c.execute(ctx, cmd, out)
	if err != nil {
		var hubErr *HubError
		if errors.As(err, &hubErr) {
			span.SetAttributes(telemetry.ErrorAttributes(hubErr.Sentinel.Error())...)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) execute(ctx context.Context, cmd Command, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &HubError{Sentinel: ErrTimeout, Command: cmd.Name, Err: err}
	}

	body, err := xml.Marshal(cmd)
	if err != nil {
		return &HubError{Sentinel: ErrBadResponse, Command: cmd.Name, Err: err}
	}

	url := "http://" + c.host + "/cgi-bin/post_manager"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &HubError{Sentinel: ErrUnavailable, Command: cmd.Name, Err: err}
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", c.userAgent)
	req.SetBasicAuth(c.cloudID, c.installCode)

	res, err := c.http.Do(req)
	if err != nil {
		c.markOffline(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return &HubError{Sentinel: ErrTimeout, Command: cmd.Name, Err: err}
		}
		return &HubError{Sentinel: ErrUnavailable, Command: cmd.Name, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		c.markOffline(fmt.Errorf("status %d", res.StatusCode))
		return &HubError{Sentinel: ErrAuth, Command: cmd.Name, Status: res.StatusCode}
	case res.StatusCode == http.StatusNotFound:
		// The hub answered, it just has no such device.
		c.markOnline()
		return &HubError{Sentinel: ErrNotFound, Command: cmd.Name, Status: res.StatusCode}
	case res.StatusCode < 200 || res.StatusCode > 299:
		c.markOffline(fmt.Errorf("status %d", res.StatusCode))
		return &HubError{Sentinel: ErrUnavailable, Command: cmd.Name, Status: res.StatusCode}
	}

	c.markOnline()

	if out == nil {
		return nil
	}

	dec := xml.NewDecoder(io.LimitReader(res.Body, maxResponseBytes))
	dec.Strict = true
	// Disable entity expansion; the hub never uses entities.
	dec.Entity = make(map[string]string)
	if err := dec.Decode(out); err != nil {
		return &HubError{Sentinel: ErrBadResponse, Command: cmd.Name, Err: err}
	}
	return nil
}

// DeviceList enumerates the devices paired with the hub.
func (c *Client) DeviceList(ctx context.Context) ([]Device, error) {
	var list DeviceList
	if err := c.Execute(ctx, DeviceListCommand(), &list); err != nil {
		return nil, err
	}
	return list.Devices, nil
}

// QueryDevice fetches current readings for one device. With no variable
// names it requests everything the device exposes.
func (c *Client) QueryDevice(ctx context.Context, hardwareAddress string, variables ...string) (*DeviceQueryResponse, error) {
	var resp DeviceQueryResponse
	if err := c.Execute(ctx, DeviceQueryCommand(hardwareAddress, variables...), &resp); err != nil {
		return nil, err
	}
	if resp.Details.HardwareAddress == "" {
		resp.Details.HardwareAddress = hardwareAddress
	}
	return &resp, nil
}

// markOnline records a successful exchange with the hub, logging the
// transition the first time.
func (c *Client) markOnline() {
	if c.online.CompareAndSwap(false, true) {
		c.logger.Info().
			Str(xlog.FieldEvent, "hub.online").
			Str(xlog.FieldHost, c.host).
			Msg("hub is online")
	}
}

// markOffline records a failed exchange, logging the transition once.
func (c *Client) markOffline(err error) {
	if c.online.CompareAndSwap(true, false) {
		c.logger.Error().
			Err(err).
			Str(xlog.FieldEvent, "hub.offline").
			Str(xlog.FieldHost, c.host).
			Msg("hub went offline")
	}
}

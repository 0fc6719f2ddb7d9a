// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/neggles/eagle3d/internal/eagle"
)

// HubChecker reports the hub connection state. In strict mode it issues a
// device_list command to the hub; otherwise it only reads the online flag
// from the last poll, which costs nothing.
type HubChecker struct {
	hub    *eagle.Hub
	strict bool
}

// NewHubChecker creates a hub connectivity checker.
func NewHubChecker(hub *eagle.Hub, strict bool) *HubChecker {
	return &HubChecker{hub: hub, strict: strict}
}

func (c *HubChecker) Name() string { return "hub" }

func (c *HubChecker) Check(ctx context.Context) CheckResult {
	if c.strict {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := c.hub.Client().DeviceList(ctx); err != nil {
			return CheckResult{
				Status: StatusUnhealthy,
				Error:  err.Error(),
			}
		}
		return CheckResult{Status: StatusHealthy, Message: "hub answered device_list"}
	}

	if !c.hub.Online() {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "hub did not answer the last command",
		}
	}
	return CheckResult{Status: StatusHealthy}
}

// LastPollChecker degrades when the last successful poll is older than the
// allowed age, and reports unhealthy when no poll ever succeeded.
type LastPollChecker struct {
	lastRun func() time.Time
	maxAge  time.Duration
}

// NewLastPollChecker creates a poll freshness checker. lastRun returns the
// time of the last successful poll (zero when none happened yet).
func NewLastPollChecker(lastRun func() time.Time, maxAge time.Duration) *LastPollChecker {
	return &LastPollChecker{lastRun: lastRun, maxAge: maxAge}
}

func (c *LastPollChecker) Name() string { return "poller" }

func (c *LastPollChecker) Check(_ context.Context) CheckResult {
	last := c.lastRun()
	if last.IsZero() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "no successful poll yet",
		}
	}
	age := time.Since(last)
	if age > c.maxAge {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last successful poll %s ago (max %s)", age.Round(time.Second), c.maxAge),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("last successful poll %s ago", age.Round(time.Second)),
	}
}

// DirChecker verifies that a directory exists and is writable. Used for
// the manifest export directory.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a directory checker with the given probe name.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  fmt.Sprintf("%s is not a directory", c.path),
		}
	}

	probe, err := os.CreateTemp(c.path, ".healthcheck-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: fmt.Sprintf("not writable: %v", err)}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return CheckResult{Status: StatusHealthy}
}

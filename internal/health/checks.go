// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
)

// ConnectionState is implemented by *connection.Manager.
type ConnectionState interface {
	Service() string
	Connected() bool
	Generation() uint64
}

// ConnectionChecker reports one platform service connection. An optional
// service is degraded rather than unhealthy while disconnected.
type ConnectionChecker struct {
	conn     ConnectionState
	optional bool
}

// NewConnectionChecker creates a checker for conn.
func NewConnectionChecker(conn ConnectionState, optional bool) *ConnectionChecker {
	return &ConnectionChecker{conn: conn, optional: optional}
}

func (c *ConnectionChecker) Name() string { return "connection." + c.conn.Service() }

func (c *ConnectionChecker) Check(context.Context) CheckResult {
	gen := c.conn.Generation()
	if c.conn.Connected() {
		return CheckResult{Status: StatusHealthy, Message: "connected, generation " + strconv.FormatUint(gen, 10)}
	}
	res := CheckResult{Status: StatusUnhealthy, Error: "not connected", Message: "waiting for service"}
	if c.optional {
		res.Status = StatusDegraded
	}
	if gen > 0 {
		res.Message = "reconnecting after generation " + strconv.FormatUint(gen, 10)
	}
	return res
}

// DirChecker requires path to be an existing directory. An empty path is
// reported healthy as unconfigured.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a checker named name for path.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured"}
	}
	info, err := os.Stat(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return CheckResult{Status: StatusUnhealthy, Message: c.path, Error: "directory not found"}
	case err != nil:
		return CheckResult{Status: StatusUnhealthy, Message: c.path, Error: err.Error()}
	case !info.IsDir():
		return CheckResult{Status: StatusUnhealthy, Message: c.path, Error: "not a directory"}
	}
	return CheckResult{Status: StatusHealthy, Message: c.path}
}

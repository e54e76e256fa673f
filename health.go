package redisclient

import (
	"fmt"
	"time"

	"github.com/pior/redisclient/resp"
)

const healthCheckTimeout = time.Second

var pingCommand = resp.Strings("PING")

// healthCheckLoop periodically checks idle connections for health and lifecycle limits.
func (c *Client) healthCheckLoop() {
	defer close(c.healthCheckDone)

	ticker := time.NewTicker(c.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkPoolConnections()
		}
	}
}

// checkPoolConnections checks all idle connections and destroys those that are stale or unhealthy.
func (c *Client) checkPoolConnections() {
	now := time.Now()

	for _, res := range c.pool.AcquireAllIdle() {
		conn := res.Value()

		// Check max connection lifetime
		if c.maxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.maxConnLifetime {
			c.logger.Debug("redisclient: closing connection past max lifetime", "endpoint", conn.Addr())
			res.Destroy()
			continue
		}

		// Check max idle time
		if c.maxConnIdleTime > 0 && res.IdleDuration() > c.maxConnIdleTime {
			c.logger.Debug("redisclient: closing idle connection", "endpoint", conn.Addr())
			res.Destroy()
			continue
		}

		if err := c.ping(conn); err != nil {
			c.logger.Warn("redisclient: health check failed", "endpoint", conn.Addr(), "error", err)
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// ping sends PING on an idle connection and expects PONG.
func (c *Client) ping(conn *Connection) error {
	if err := conn.SetDeadline(time.Now().Add(healthCheckTimeout)); err != nil {
		return err
	}

	reply, err := c.protocol.Execute(conn, pingCommand)
	if err != nil {
		return err
	}
	if reply == nil {
		return ErrNoReply
	}
	defer c.protocol.Free(reply)

	if reply.Kind != resp.KindStatus || reply.Str != "PONG" {
		return fmt.Errorf("unexpected reply to PING: %s", reply)
	}

	return conn.SetDeadline(time.Time{})
}

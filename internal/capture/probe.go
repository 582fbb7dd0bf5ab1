package capture

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Probe checks TCP reachability of a camera's stream endpoint. Used when the
// vision capability is unavailable and the monitor degrades to
// connectivity-only checks.
func Probe(ctx context.Context, streamURL string, timeout time.Duration) error {
	u, err := url.Parse(streamURL)
	if err != nil {
		return fmt.Errorf("parse stream url: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), defaultPort(u.Scheme))
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return fmt.Errorf("dial %s: %w", host, err)
	}
	_ = conn.Close()
	return nil
}

func defaultPort(scheme string) string {
	switch scheme {
	case "rtsp", "rtsps":
		return "554"
	case "https":
		return "443"
	default:
		return "80"
	}
}

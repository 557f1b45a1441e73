package client

import (
	"net"
	"net/url"
	"strings"

	"github.com/bobesa/go-domain-util/domainutil"
	"github.com/sirupsen/logrus"
)

func parseTrackerDomain(log *logrus.Entry, trackerHost string) string {
	// return empty host
	if trackerHost == "" {
		return trackerHost
	}

	// deluge reports a bare host
	raw := trackerHost
	if !strings.Contains(raw, "://") {
		raw = "udp://" + raw
	}

	// parse url components
	u, err := url.Parse(raw)
	if err != nil {
		log.WithError(err).Warnf("Failed parsing tracker host: %q", trackerHost)
		return trackerHost
	}

	// parse host
	host := u.Host
	if strings.Contains(host, ":") {
		// remove port
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}

	// remove subdomain
	if domain := domainutil.Domain(host); domain != "" {
		return domain
	}

	return host
}

package client

import (
	"fmt"
	"net"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/l3uddz/delugetools/config"
)

const DefaultPort = 58846

var (
	ErrMalformedEndpoint = errors.New("does not match user:pass@host[:port]")
	ErrDuplicateEndpoint = errors.New("endpoint listed more than once")

	endpointRegex = regexp.MustCompile(`^([^:@]+):([^@]+)@([^:@/]+)(?::([0-9]+))?$`)
)

// Endpoint identifies one daemon. Two endpoints are the same daemon when host and port match.
type Endpoint struct {
	Host     string `validate:"required"`
	Port     uint   `validate:"required"`
	Login    string `validate:"required"`
	Password string `validate:"required"`
}

// ParseEndpoint parses user:password@host[:port], defaulting the port to 58846.
func ParseEndpoint(s string) (Endpoint, error) {
	m := endpointRegex.FindStringSubmatch(s)
	if m == nil {
		return Endpoint{}, fmt.Errorf("%q %w", redact(s), ErrMalformedEndpoint)
	}

	port := uint64(DefaultPort)
	if m[4] != "" {
		p, err := strconv.ParseUint(m[4], 10, 16)
		if err != nil || p == 0 {
			return Endpoint{}, fmt.Errorf("%q: invalid port %q: %w", redact(s), m[4], ErrMalformedEndpoint)
		}
		port = p
	}

	ep := Endpoint{
		Host:     m[3],
		Port:     uint(port),
		Login:    m[1],
		Password: m[2],
	}

	if errs := config.ValidateStruct(ep); errs != nil {
		return Endpoint{}, fmt.Errorf("validate endpoint %q: %v", redact(s), errs)
	}

	return ep, nil
}

// ParseEndpoints parses every address, keeping their order. The list must be non-empty and free of duplicates.
func ParseEndpoints(servers []string) ([]Endpoint, error) {
	if len(servers) == 0 {
		return nil, errors.New("no servers configured")
	}

	seen := make(map[string]struct{}, len(servers))
	endpoints := make([]Endpoint, 0, len(servers))
	for _, s := range servers {
		ep, err := ParseEndpoint(s)
		if err != nil {
			return nil, err
		}

		if _, exists := seen[ep.String()]; exists {
			return nil, fmt.Errorf("%s: %w", ep, ErrDuplicateEndpoint)
		}
		seen[ep.String()] = struct{}{}

		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

// String is the endpoint identity, host:port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.FormatUint(uint64(e.Port), 10))
}

func redact(s string) string {
	m := endpointRegex.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return fmt.Sprintf("%s:***@%s", m[1], s[len(m[1])+1+len(m[2])+1:])
}

package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Settings struct {
	// Timeout bounds every read and write on the daemon connection.
	Timeout time.Duration
}

func NewClient(clientType string, ep Endpoint, settings Settings, log *logrus.Entry) (Interface, error) {
	switch strings.ToLower(clientType) {
	case "deluge":
		return NewDeluge(ep, settings, log), nil
	default:
		break
	}

	return nil, fmt.Errorf("client type not implemented: %q", clientType)
}

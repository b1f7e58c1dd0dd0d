package app

import (
	"strings"

	"github.com/charlesng35/tronobserver/internal/tron"
)

// ClientConfig converts the tron section into tron.Config.
func (c TronConfig) ClientConfig() tron.Config {
	return tron.Config{
		BaseURL: strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"),
		APIKey:  strings.TrimSpace(c.APIKey),
		Timeout: c.Timeout,
	}
}

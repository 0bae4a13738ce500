package messaging

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultPollTimeout = 30 * time.Second
	// pollGrace covers the round trip on top of the time the Bot API holds
	// a getUpdates request open.
	pollGrace = 15 * time.Second
)

// NewLongPollClient returns the HTTP client shared by the Telegram sender and
// the getUpdates loop. Its deadlines must outlast the server-side poll, or
// every idle poll would end in a client timeout.
func NewLongPollClient(pollTimeout time.Duration) *http.Client {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	timeout := pollTimeout + pollGrace
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		// One connection is held by the poll, another serves sendMessage.
		MaxIdleConns:        2,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     timeout + pollGrace,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

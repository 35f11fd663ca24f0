package configuration

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Host owns the lifecycle of one listening HTTP server. The socket is bound
// before StartHost returns so the server is reachable as soon as it exists.
type Host struct {
	server *http.Server
	url    *url.URL
	done   chan struct{}
}

// StartHost serves handler on address. A missing or zero port is replaced
// by one the kernel picks when binding.
func StartHost(address string, handler http.Handler) (*Host, error) {
	hostname, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid address %s", address)
	}
	if port == "" {
		port = "0"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(hostname, port))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", address)
	}
	port = strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)

	if hostname == "" {
		hostname = "localhost"
	}
	h := &Host{
		server: &http.Server{Handler: handler},
		url:    &url.URL{Scheme: "http", Host: net.JoinHostPort(hostname, port)},
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error(err)
		}
	}()

	log.Infof("listening on %s", h.url)
	return h, nil
}

func (h *Host) URL() *url.URL {
	u := *h.url
	return &u
}

// Shutdown stops accepting connections, waits for in-flight requests and
// releases the listening socket.
func (h *Host) Shutdown(ctx context.Context) error {
	err := h.server.Shutdown(ctx)
	<-h.done
	if err != nil {
		return errors.Wrapf(err, "shutdown %s", h.url)
	}
	return nil
}

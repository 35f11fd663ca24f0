package consumer

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/form3tech-oss/pact-orders/internal/app/configuration"
	"github.com/form3tech-oss/pact-orders/internal/app/httpresponse"
	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type mockInteraction struct {
	interaction  contract.Interaction
	requestCount int
}

func (i *mockInteraction) match(path, method string) bool {
	return i.interaction.Request.Method == method && i.interaction.Request.Path == path
}

// evaluate compares a received request with the recorded one.
func (i *mockInteraction) evaluate(header http.Header, body []byte) []contract.Mismatch {
	request := i.interaction.Request
	mismatches := contract.CompareHeaders(request.Headers, header)
	bodyMismatches := contract.CompareBody(request.Body, body, request.MatchingRules.Body())
	return append(mismatches, contract.Rebase(bodyMismatches, "$.body")...)
}

type mockServer struct {
	url          *url.URL
	host         *configuration.Host
	mu           sync.Mutex
	interactions []*mockInteraction
	unexpected   []string
	mismatches   map[string][]contract.Mismatch
}

func startMockServer(interactions []contract.Interaction) (*mockServer, error) {
	s := &mockServer{
		mismatches: map[string][]contract.Mismatch{},
	}
	for _, interaction := range interactions {
		s.interactions = append(s.interactions, &mockInteraction{interaction: interaction})
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Any("/", s.handle)
	e.Any("/*", s.handle)

	host, err := configuration.StartHost("127.0.0.1:0", e)
	if err != nil {
		return nil, err
	}
	s.host = host
	s.url = host.URL()

	log.Debugf("mock server listening on %s", s.url)
	return s, nil
}

func (s *mockServer) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.host.Shutdown(ctx); err != nil {
		log.Error(err)
	}
}

func (s *mockServer) handle(c echo.Context) error {
	req := c.Request()
	log.Infof("mock server received %s %s", req.Method, req.URL.Path)

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to read request body. %s", err.Error()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*mockInteraction
	for _, i := range s.interactions {
		if i.match(req.URL.Path, req.Method) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		s.unexpected = append(s.unexpected, req.Method+" "+req.URL.Path)
		return c.JSON(http.StatusInternalServerError, httpresponse.Errorf("unable to find interaction to match '%s %s'", req.Method, req.URL.Path))
	}

	unmatched := make(map[string][]contract.Mismatch)
	for _, candidate := range candidates {
		mismatches := candidate.evaluate(req.Header, body)
		if len(mismatches) == 0 {
			candidate.requestCount++
			return respond(c, candidate.interaction.Response)
		}
		unmatched[candidate.interaction.Description] = mismatches
	}

	for description, mismatches := range unmatched {
		for _, m := range mismatches {
			log.Infof("request does not match '%s'. %s", description, m)
		}
		s.mismatches[description] = append(s.mismatches[description], mismatches...)
	}
	return c.JSON(http.StatusInternalServerError, httpresponse.Error("request does not match any interaction"))
}

func respond(c echo.Context, response *contract.Response) error {
	header := c.Response().Header()
	for name, value := range response.Headers {
		header.Set(name, value)
	}
	if len(response.Body) == 0 {
		return c.NoContent(response.Status)
	}

	contentType := header.Get(headerContentType)
	if contentType == "" {
		contentType = mediaTypeJSON
	}
	return c.Blob(response.Status, contentType, response.Body)
}

func (s *mockServer) verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &MockServerError{
		Unexpected: append([]string(nil), s.unexpected...),
		Mismatches: make(map[string][]contract.Mismatch, len(s.mismatches)),
	}
	for description, mismatches := range s.mismatches {
		result.Mismatches[description] = mismatches
	}
	for _, i := range s.interactions {
		if i.requestCount == 0 {
			result.Missing = append(result.Missing, i.interaction.Description)
		}
	}

	if len(result.Unexpected) == 0 && len(result.Missing) == 0 && len(result.Mismatches) == 0 {
		return nil
	}
	return result
}

package rest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/manta-community/manta-go/httpsig"
)

// TestAccount is the account test clients created via 'NewTestClient' sign requests for.
const TestAccount = "test-account"

// TestHandlers is a readability wrapper around the endpoint handlers for a test server.
type TestHandlers map[string]http.HandlerFunc

// Add a new handler to the endpoint handlers, note that the method is required to ensure unique handlers for each
// endpoint.
func (e TestHandlers) Add(method, endpoint string, handler http.HandlerFunc) {
	e[fmt.Sprintf("%s:%s", method, endpoint)] = handler
}

// Handle the provided request, returning a boolean indicating whether a handler was found.
func (e TestHandlers) Handle(writer http.ResponseWriter, request *http.Request) bool {
	handler, ok := e[fmt.Sprintf("%s:%s", request.Method, request.URL.Path)]
	if !ok {
		return false
	}

	handler(writer, request)

	return true
}

// TestServerOptions encapsulates the options which can be passed when creating a new test server.
type TestServerOptions struct {
	// Handlers run to handle a request dispatched to the server.
	Handlers TestHandlers

	// A non-nil TLS config indicates that the server should use TLS.
	TLSConfig *tls.Config
}

// TestServer is a mock service used for unit testing functionality which relies on the REST client.
type TestServer struct {
	t       *testing.T
	server  *httptest.Server
	options TestServerOptions
}

// NewTestServer creates a new test server using the provided options.
func NewTestServer(t *testing.T, options TestServerOptions) *TestServer {
	if options.Handlers == nil {
		options.Handlers = make(TestHandlers)
	}

	server := &TestServer{
		t:       t,
		options: options,
	}

	if options.TLSConfig != nil {
		server.server = httptest.NewUnstartedServer(http.HandlerFunc(server.Handler))
		server.server.TLS = options.TLSConfig
		server.server.StartTLS()
	} else {
		server.server = httptest.NewServer(http.HandlerFunc(server.Handler))
	}

	return server
}

// URL returns the fully qualified URL which can be used to connect to the server.
func (t *TestServer) URL() string {
	return t.server.URL
}

// Certificate returns the certificate which can be used to authenticate the server.
//
// NOTE: This will be <nil> if the server is not running with TLS enabled.
func (t *TestServer) Certificate() *x509.Certificate {
	return t.server.Certificate()
}

// Handler is the base handler function for requests, endpoint handlers are added using the 'Handlers' attribute of the
// server options.
//
// NOTE: The current test will fatally terminate if no valid handler is found.
func (t *TestServer) Handler(writer http.ResponseWriter, request *http.Request) {
	// The service tags every response with a request id, useful when debugging test failures
	writer.Header().Set("x-request-id", uuid.NewString())

	if t.options.Handlers.Handle(writer, request) {
		return
	}

	t.t.Fatalf("Endpoint '%s' does not have a handler", request.URL.Path)
}

// Close stops the server releasing any held resources.
func (t *TestServer) Close() {
	t.server.Close()
}

// NewTestSigner returns a signer backed by a freshly generated key, suitable for unit testing.
func NewTestSigner(t *testing.T) httpsig.Signer {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	signer, err := httpsig.NewPrivateKeySigner(httpsig.PrivateKeySignerOptions{
		Account:    TestAccount,
		PrivateKey: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}),
	})
	require.NoError(t, err)

	return signer
}

// NewTestClient returns a client configured to dispatch requests to the given test server.
func NewTestClient(t *testing.T, server *TestServer, options ClientOptions) *Client {
	options.URL = server.URL()

	if options.Signer == nil {
		options.Signer = NewTestSigner(t)
	}

	client, err := NewClient(options)
	require.NoError(t, err)

	return client
}

// NewTestHandler creates the most basic type of handler which will respond with the provided status/body.
func NewTestHandler(t *testing.T, status int, body []byte) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(status)

		_, err := writer.Write(body)
		require.NoError(t, err)
	}
}

// NewTestHandlerWithRetries builds upon the basic handler by simulating a flaky/busy endpoint which forces retries a
// configurable number of times before providing a valid response.
func NewTestHandlerWithRetries(t *testing.T, numRetries, retryStatus, successStatus int,
	after string, body []byte,
) http.HandlerFunc {
	var retries int

	return func(writer http.ResponseWriter, request *http.Request) {
		defer func() { retries++ }()

		status := retryStatus
		if retries >= numRetries {
			status = successStatus
		}

		if after != "" {
			writer.Header().Set("Retry-After", after)
		}

		writer.WriteHeader(status)

		_, err := writer.Write(body)
		require.NoError(t, err)
	}
}

// NewTestHandlerWithServiceError creates a handler which responds with a service style JSON error body.
func NewTestHandlerWithServiceError(t *testing.T, status int, code, message string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", string(ContentTypeJSON))
		writer.WriteHeader(status)

		err := json.NewEncoder(writer).Encode(struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}{Code: code, Message: message})
		require.NoError(t, err)
	}
}

// NewTestHandlerWithEOF creates a handler which will cause an EOF error when attempting to read the body.
func NewTestHandlerWithEOF(t *testing.T) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Length", "1")

		writer.WriteHeader(http.StatusOK)

		_, err := writer.Write(make([]byte, 0))
		require.NoError(t, err)
	}
}

// NewTestHandlerWithHijack creates a handler which will hijack the connection and immediately close it; this is
// simulating a socket closed in flight error.
func NewTestHandlerWithHijack(t *testing.T) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		hijacker, ok := writer.(http.Hijacker)
		require.True(t, ok)

		conn, _, err := hijacker.Hijack()
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}
}

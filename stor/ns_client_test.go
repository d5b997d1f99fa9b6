package stor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manta-community/manta-go/rest"
)

const testDirectory = "/" + rest.TestAccount + "/stor"

// newListingHandler serves marker based pages over the given names, the way the service does; the marker entry itself
// is repeated at the start of each follow-up page.
func newListingHandler(t *testing.T, names []string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		var (
			query  = request.URL.Query()
			marker = query.Get("marker")
			limit  = len(names)
		)

		if rawLimit := query.Get("limit"); rawLimit != "" {
			var err error

			limit, err = strconv.Atoi(rawLimit)
			require.NoError(t, err)
		}

		writer.Header().Set("Result-Set-Size", strconv.Itoa(len(names)))
		writer.WriteHeader(http.StatusOK)

		var written int

		for _, name := range names {
			if name < marker || written >= limit {
				continue
			}

			entry := DirEntry{Name: name, Type: EntryTypeObject, MTime: time.Now().UTC()}

			require.NoError(t, json.NewEncoder(writer).Encode(entry))

			written++
		}
	}
}

func TestNSClientPutObject(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodPut, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, request *http.Request) {
		body, err := io.ReadAll(request.Body)
		require.NoError(t, err)
		require.Equal(t, "Hello, World!", string(body))

		require.Equal(t, "ZajifYh5KDgxtmS9i38K1A==", request.Header.Get("Content-MD5"))
		require.Equal(t, "3", request.Header.Get("x-durability-level"))
		require.Equal(t, "text/plain", request.Header.Get("Content-Type"))

		writer.Header().Set("Etag", "etag-1")
		writer.Header().Set("Computed-Md5", "ZajifYh5KDgxtmS9i38K1A==")
		writer.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		writer.WriteHeader(http.StatusNoContent)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	attrs, err := client.PutObject(context.Background(), PutObjectOptions{
		Path:            testDirectory + "/greeting.txt",
		Body:            strings.NewReader("Hello, World!"),
		ContentLength:   13,
		ContentType:     "text/plain",
		DurabilityLevel: 3,
	})
	require.NoError(t, err)

	expected := &ObjectAttrs{
		Path:         testDirectory + "/greeting.txt",
		ETag:         "etag-1",
		Size:         13,
		ContentType:  "text/plain",
		ContentMD5:   "ZajifYh5KDgxtmS9i38K1A==",
		Durability:   3,
		LastModified: time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC),
	}

	require.Equal(t, expected, attrs)
}

func TestNSClientPutObjectDefaultContentType(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodPut, testDirectory+"/raw.bin", func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "application/octet-stream", request.Header.Get("Content-Type"))
		require.Empty(t, request.Header.Get("x-durability-level"))

		writer.WriteHeader(http.StatusNoContent)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	attrs, err := client.PutObject(context.Background(), PutObjectOptions{
		Path:          testDirectory + "/raw.bin",
		Body:          strings.NewReader("raw"),
		ContentLength: 3,
	})
	require.NoError(t, err)

	// No service digest returned, fall back to the locally computed one
	require.NotEmpty(t, attrs.ContentMD5)
}

func TestNSClientPutObjectIfMatch(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodPut, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "etag-1", request.Header.Get("If-Match"))

		writer.WriteHeader(http.StatusNoContent)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	_, err := client.PutObject(context.Background(), PutObjectOptions{
		Path:          testDirectory + "/greeting.txt",
		Body:          strings.NewReader("Hello, World!"),
		ContentLength: 13,
		IfMatch:       "etag-1",
	})
	require.NoError(t, err)
}

func TestNSClientPutObjectDurabilityFromResponse(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodPut, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Durability-Level", "5")
		writer.WriteHeader(http.StatusNoContent)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	attrs, err := client.PutObject(context.Background(), PutObjectOptions{
		Path:            testDirectory + "/greeting.txt",
		Body:            strings.NewReader("Hello, World!"),
		ContentLength:   13,
		DurabilityLevel: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 5, attrs.Durability)
}

func TestNSClientPutObjectRetriesAfterConnectionDrop(t *testing.T) {
	var attempts int

	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodPut, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, request *http.Request) {
		attempts++

		// Drop the connection mid-transfer on the first attempt
		if attempts == 1 {
			conn, _, err := writer.(http.Hijacker).Hijack()
			require.NoError(t, err)
			require.NoError(t, conn.Close())

			return
		}

		body, err := io.ReadAll(request.Body)
		require.NoError(t, err)
		require.Equal(t, "Hello, World!", string(body))
		require.Equal(t, "ZajifYh5KDgxtmS9i38K1A==", request.Header.Get("Content-MD5"))

		writer.WriteHeader(http.StatusNoContent)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	_, err := client.PutObject(context.Background(), PutObjectOptions{
		Path:          testDirectory + "/greeting.txt",
		Body:          strings.NewReader("Hello, World!"),
		ContentLength: 13,
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestNSClientGetObject(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodGet, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Etag", "etag-1")
		writer.Header().Set("Content-Type", "text/plain")
		writer.WriteHeader(http.StatusOK)

		_, err := writer.Write([]byte("Hello, World!"))
		require.NoError(t, err)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	object, err := client.GetObject(context.Background(), GetObjectOptions{Path: testDirectory + "/greeting.txt"})
	require.NoError(t, err)

	defer object.Body.Close()

	body, err := io.ReadAll(object.Body)
	require.NoError(t, err)

	require.Equal(t, "Hello, World!", string(body))
	require.Equal(t, "etag-1", object.ETag)
	require.Equal(t, "text/plain", object.ContentType)
	require.Equal(t, int64(13), object.Size)
}

func TestNSClientGetObjectUnknownLength(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodGet, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)

		// Flushing before the body forces a chunked response without a known length
		writer.(http.Flusher).Flush()

		_, err := writer.Write([]byte("Hello, World!"))
		require.NoError(t, err)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	object, err := client.GetObject(context.Background(), GetObjectOptions{Path: testDirectory + "/greeting.txt"})
	require.NoError(t, err)

	defer object.Body.Close()

	body, err := io.ReadAll(object.Body)
	require.NoError(t, err)

	require.Equal(t, "Hello, World!", string(body))
	require.Zero(t, object.Size)
}

func TestNSClientGetObjectByteRange(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodGet, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "bytes=7-11", request.Header.Get("Range"))

		writer.WriteHeader(http.StatusPartialContent)

		_, err := writer.Write([]byte("World"))
		require.NoError(t, err)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	object, err := client.GetObject(context.Background(), GetObjectOptions{
		Path:      testDirectory + "/greeting.txt",
		ByteRange: &ByteRange{Start: 7, End: 11},
	})
	require.NoError(t, err)

	defer object.Body.Close()

	body, err := io.ReadAll(object.Body)
	require.NoError(t, err)
	require.Equal(t, "World", string(body))
}

func TestNSClientGetObjectNotFound(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(
		http.MethodGet,
		testDirectory+"/missing.txt",
		rest.NewTestHandlerWithServiceError(t, http.StatusNotFound, CodeResourceNotFound, "missing.txt was not found"),
	)

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	_, err := client.GetObject(context.Background(), GetObjectOptions{Path: testDirectory + "/missing.txt"})
	require.True(t, IsNotFoundError(err))

	serviceError, ok := rest.IsServiceError(err)
	require.True(t, ok)
	require.Equal(t, CodeResourceNotFound, serviceError.Code)
}

func TestNSClientGetObjectAttrs(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodHead, testDirectory+"/greeting.txt", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Etag", "etag-1")
		writer.Header().Set("Content-Type", "text/plain")
		writer.Header().Set("Content-Length", "13")
		writer.Header().Set("Durability-Level", "2")
		writer.WriteHeader(http.StatusOK)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	attrs, err := client.GetObjectAttrs(context.Background(), GetObjectAttrsOptions{Path: testDirectory + "/greeting.txt"})
	require.NoError(t, err)

	require.Equal(t, "etag-1", attrs.ETag)
	require.Equal(t, "text/plain", attrs.ContentType)
	require.Equal(t, int64(13), attrs.Size)
	require.Equal(t, 2, attrs.Durability)
}

func TestNSClientGetObjectAttrsNotFound(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodHead, testDirectory+"/missing.txt", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	_, err := client.GetObjectAttrs(context.Background(), GetObjectAttrsOptions{Path: testDirectory + "/missing.txt"})

	var notFound *NotFoundError

	require.ErrorAs(t, err, &notFound)
	require.Equal(t, testDirectory+"/missing.txt", notFound.Path)
}

func TestNSClientDeleteObject(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(
		http.MethodDelete,
		testDirectory+"/greeting.txt",
		rest.NewTestHandler(t, http.StatusNoContent, nil),
	)

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	require.NoError(t, client.DeleteObject(context.Background(), DeleteObjectOptions{Path: testDirectory + "/greeting.txt"}))
}

func TestNSClientPutDirectory(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodPut, testDirectory+"/nested", func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "application/json; type=directory", request.Header.Get("Content-Type"))

		writer.WriteHeader(http.StatusNoContent)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	require.NoError(t, client.PutDirectory(context.Background(), PutDirectoryOptions{Path: testDirectory + "/nested"}))
}

func TestNSClientDeleteDirectoryNotEmpty(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(
		http.MethodDelete,
		testDirectory+"/nested",
		rest.NewTestHandlerWithServiceError(t, http.StatusBadRequest, CodeDirectoryNotEmpty, "directory not empty"),
	)

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	err := client.DeleteDirectory(context.Background(), DeleteDirectoryOptions{Path: testDirectory + "/nested"})

	serviceError, ok := rest.IsServiceError(err)
	require.True(t, ok)
	require.Equal(t, CodeDirectoryNotEmpty, serviceError.Code)
}

func TestNSClientPutSnapLink(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodPut, testDirectory+"/link.txt", func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "application/json; type=link", request.Header.Get("Content-Type"))
		require.Equal(t, testDirectory+"/greeting.txt", request.Header.Get("Location"))

		writer.WriteHeader(http.StatusNoContent)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	err := client.PutSnapLink(context.Background(), PutSnapLinkOptions{
		SourcePath: testDirectory + "/greeting.txt",
		LinkPath:   testDirectory + "/link.txt",
	})
	require.NoError(t, err)
}

func TestNSClientListDirectory(t *testing.T) {
	handlers := make(rest.TestHandlers)

	handlers.Add(http.MethodGet, testDirectory, func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "256", request.URL.Query().Get("limit"))
		require.Equal(t, "banana", request.URL.Query().Get("marker"))

		writer.Header().Set("Result-Set-Size", "42")
		writer.WriteHeader(http.StatusOK)

		entries := `{"name":"banana","type":"object","size":3,"mtime":"2024-01-01T00:00:00Z"}
{"name":"cherry","type":"directory","mtime":"2024-01-01T00:00:00Z"}
`

		_, err := writer.Write([]byte(entries))
		require.NoError(t, err)
	})

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	listing, err := client.ListDirectory(context.Background(), ListDirectoryOptions{
		Path:   testDirectory,
		Limit:  256,
		Marker: "banana",
	})
	require.NoError(t, err)

	require.Equal(t, 42, listing.ResultSetSize)
	require.Len(t, listing.Entries, 2)
	require.Equal(t, "banana", listing.Entries[0].Name)
	require.Equal(t, EntryTypeObject, listing.Entries[0].Type)
	require.Equal(t, int64(3), listing.Entries[0].Size)
	require.Equal(t, "cherry", listing.Entries[1].Name)
	require.True(t, listing.Entries[1].IsDir())
}

func TestNSClientListDirectoryInvalidEntry(t *testing.T) {
	type test struct {
		name string
		body string
	}

	tests := []*test{
		{name: "NotJSON", body: "not json at all"},
		{name: "MissingName", body: `{"type":"object"}`},
		{name: "UnknownType", body: `{"name":"a","type":"bucket"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			handlers := make(rest.TestHandlers)
			handlers.Add(http.MethodGet, testDirectory, rest.NewTestHandler(t, http.StatusOK, []byte(test.body)))

			server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
			defer server.Close()

			client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

			_, err := client.ListDirectory(context.Background(), ListDirectoryOptions{Path: testDirectory})

			serviceError, ok := rest.IsServiceError(err)
			require.True(t, ok)
			require.Equal(t, rest.ServiceErrorCodeDecode, serviceError.Code)
		})
	}
}

func TestNSClientIterateDirectory(t *testing.T) {
	names := []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"}

	handlers := make(rest.TestHandlers)
	handlers.Add(http.MethodGet, testDirectory, newListingHandler(t, names))

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	seen := make([]string, 0, len(names))

	err := client.IterateDirectory(context.Background(), IterateDirectoryOptions{
		Path:      testDirectory,
		PageLimit: 2,
		Func:      func(entry *DirEntry) error { seen = append(seen, entry.Name); return nil },
	})
	require.NoError(t, err)

	// Each entry exactly once, in service order, despite the marker entry repeating on every page
	require.Equal(t, names, seen)
}

func TestNSClientIterateDirectorySinglePage(t *testing.T) {
	names := []string{"a.txt", "b.txt"}

	handlers := make(rest.TestHandlers)
	handlers.Add(http.MethodGet, testDirectory, newListingHandler(t, names))

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	seen := make([]string, 0, len(names))

	err := client.IterateDirectory(context.Background(), IterateDirectoryOptions{
		Path: testDirectory,
		Func: func(entry *DirEntry) error { seen = append(seen, entry.Name); return nil },
	})
	require.NoError(t, err)
	require.Equal(t, names, seen)
}

func TestNSClientIterateDirectoryCallbackError(t *testing.T) {
	handlers := make(rest.TestHandlers)
	handlers.Add(http.MethodGet, testDirectory, newListingHandler(t, []string{"a.txt", "b.txt", "c.txt"}))

	server := rest.NewTestServer(t, rest.TestServerOptions{Handlers: handlers})
	defer server.Close()

	client := NewNSClient(rest.NewTestClient(t, server, rest.ClientOptions{}))

	var calls int

	err := client.IterateDirectory(context.Background(), IterateDirectoryOptions{
		Path: testDirectory,
		Func: func(_ *DirEntry) error { calls++; return fmt.Errorf("stop") },
	})
	require.EqualError(t, err, "stop")
	require.Equal(t, 1, calls)
}

func TestNSClientIterateDirectoryNoFunction(t *testing.T) {
	client := NewNSClient(nil)

	err := client.IterateDirectory(context.Background(), IterateDirectoryOptions{Path: testDirectory})
	require.Error(t, err)
}

package devices

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/brettbedarf/treefs/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_NewDevice(t *testing.T) {
	provider := &HTTPProvider{Client: &mocks.MockHTTPClient{}}

	t.Run("URL validation", func(t *testing.T) {
		tests := []struct {
			url     string
			wantErr bool
			desc    string
		}{
			// Valid cases
			{"http://test.com", false, "basic HTTP URL"},
			{"https://test.com", false, "basic HTTPS URL"},
			{"  http://test.com   ", false, "URL with whitespace"},
			{"http://test.com/path?arg=1&arg2=2", false, "URL with path and query"},
			{"http://test.com:8080", false, "URL with port"},
			{"http://localhost:8080/test", false, "localhost with port"},
			{"http://123.123.123.123/test", false, "IP address"},
			{"http://mylocalnet/test", false, "single label hostname"},

			// Invalid cases
			{"", true, "empty string"},
			{" ", true, "whitespace only"},
			{"_", true, "invalid character"},
			{"ftp://test.com", true, "different scheme rejected"},
			{"test.com", true, "missing scheme"},
			{"http://user@test.com/path", true, "URL with user info"},
		}

		for _, tt := range tests {
			t.Run(tt.desc, func(t *testing.T) {
				dev, err := provider.NewDevice(map[string]any{"url": tt.url})

				if tt.wantErr {
					assert.Error(t, err)
					assert.Nil(t, dev)
				} else {
					require.NoError(t, err)
					require.NotNil(t, dev)
					assert.IsType(t, &HTTPDevice{}, dev.Payload())
				}
			})
		}
	})
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        make(http.Header),
	}
}

func TestHTTPDevice_Size(t *testing.T) {
	t.Parallel()
	client := &mocks.MockHTTPClient{}
	dev, err := (&HTTPProvider{Client: client}).NewHTTPDevice(HTTPSource{
		URL:     "http://test.com/blob",
		Headers: map[string]string{"Authorization": "Bearer t"},
	})
	require.NoError(t, err)

	client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodHead && req.Header.Get("Authorization") == "Bearer t"
	})).Return(newResponse(http.StatusOK, "0123456789"), nil)

	size, err := dev.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
	client.AssertExpectations(t)
}

func TestHTTPDevice_ReadAt(t *testing.T) {
	t.Parallel()

	t.Run("PartialContent", func(t *testing.T) {
		t.Parallel()
		client := &mocks.MockHTTPClient{}
		dev, err := (&HTTPProvider{Client: client}).NewHTTPDevice(HTTPSource{URL: "http://test.com/blob"})
		require.NoError(t, err)

		client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
			return req.Header.Get("Range") == "bytes=2-5"
		})).Return(newResponse(http.StatusPartialContent, "2345"), nil)

		p := make([]byte, 4)
		n, err := dev.ReadAt(context.Background(), p, 2)
		require.NoError(t, err)
		assert.Equal(t, "2345", string(p[:n]))
	})

	t.Run("RangeIgnored", func(t *testing.T) {
		t.Parallel()
		client := &mocks.MockHTTPClient{}
		dev, err := (&HTTPProvider{Client: client}).NewHTTPDevice(HTTPSource{URL: "http://test.com/blob"})
		require.NoError(t, err)

		client.On("Do", mock.Anything).Return(newResponse(http.StatusOK, "0123456789"), nil)

		p := make([]byte, 4)
		n, err := dev.ReadAt(context.Background(), p, 8)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "89", string(p[:n]))
	})

	t.Run("PastEnd", func(t *testing.T) {
		t.Parallel()
		client := &mocks.MockHTTPClient{}
		dev, err := (&HTTPProvider{Client: client}).NewHTTPDevice(HTTPSource{URL: "http://test.com/blob"})
		require.NoError(t, err)

		client.On("Do", mock.Anything).Return(newResponse(http.StatusRequestedRangeNotSatisfiable, ""), nil)

		_, err = dev.ReadAt(context.Background(), make([]byte, 4), 100)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("ServerError", func(t *testing.T) {
		t.Parallel()
		client := &mocks.MockHTTPClient{}
		dev, err := (&HTTPProvider{Client: client}).NewHTTPDevice(HTTPSource{URL: "http://test.com/blob"})
		require.NoError(t, err)

		client.On("Do", mock.Anything).Return(newResponse(http.StatusInternalServerError, ""), nil)

		_, err = dev.ReadAt(context.Background(), make([]byte, 4), 0)
		require.Error(t, err)
		assert.NotErrorIs(t, err, io.EOF)
	})
}

func TestHTTPDevice_WriteAt(t *testing.T) {
	t.Parallel()
	dev, err := (&HTTPProvider{}).NewHTTPDevice(HTTPSource{URL: "https://test.com"})
	require.NoError(t, err)

	_, err = dev.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, ErrReadOnly)
}

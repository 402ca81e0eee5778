package mocks

import (
	"net/http"
	"net/url"

	"github.com/stretchr/testify/mock"

	httpclient "github.com/gaslift/gaslift-backend/internal/serve/httpclient"
)

type HTTPClientMock struct {
	mock.Mock
}

func (h *HTTPClientMock) Do(req *http.Request) (*http.Response, error) {
	args := h.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func (h *HTTPClientMock) Get(url string) (*http.Response, error) {
	args := h.Called(url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func (h *HTTPClientMock) PostForm(url string, data url.Values) (*http.Response, error) {
	args := h.Called(url, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

var _ httpclient.HTTPClientInterface = (*HTTPClientMock)(nil)

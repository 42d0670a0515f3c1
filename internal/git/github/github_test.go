package github

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	gh "github.com/google/go-github/v60/github"
)

func errorResponse(statusCode int) *gh.ErrorResponse {
	return &gh.ErrorResponse{
		Response: &http.Response{
			StatusCode: statusCode,
			Request: &http.Request{
				Method: http.MethodGet,
				URL:    &url.URL{Path: "/repos/o/r/pulls/7"},
			},
		},
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"plain error", errors.New("boom"), false},
		{"404 response", errorResponse(http.StatusNotFound), true},
		{"wrapped 404 response", fmt.Errorf("get pull request: %w", errorResponse(http.StatusNotFound)), true},
		{"500 response", errorResponse(http.StatusInternalServerError), false},
		{"error response without http response", &gh.ErrorResponse{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

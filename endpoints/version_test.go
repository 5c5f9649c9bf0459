package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionEndpoint(t *testing.T) {
	testCases := []struct {
		description  string
		version      string
		revision     string
		expectedBody string
	}{
		{
			description:  "Empty",
			expectedBody: `{"revision":"not-set","version":"not-set"}`,
		},
		{
			description:  "Populated",
			version:      "1.2.3",
			revision:     "abcd",
			expectedBody: `{"revision":"abcd","version":"1.2.3"}`,
		},
	}

	for _, test := range testCases {
		t.Run(test.description, func(t *testing.T) {
			handler := NewVersionEndpoint(test.version, test.revision)
			w := httptest.NewRecorder()

			handler(w, httptest.NewRequest(http.MethodGet, "/version", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, test.expectedBody, w.Body.String())
		})
	}
}

package inference

import (
	"context"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Request)
		ok   bool
	}{
		{"valid", func(*Request) {}, true},
		{"tagged model", func(r *Request) { r.Model = "mistral:7b-instruct_q4.0" }, true},
		{"temperature bounds", func(r *Request) { r.Temperature = 1 }, true},
		{"max tokens upper bound", func(r *Request) { r.MaxTokens = 4000 }, true},
		{"empty model", func(r *Request) { r.Model = "" }, false},
		{"model with space", func(r *Request) { r.Model = "llama 3" }, false},
		{"model with shell meta", func(r *Request) { r.Model = "llama3;rm" }, false},
		{"model with slash", func(r *Request) { r.Model = "../llama3" }, false},
		{"blank prompt", func(r *Request) { r.Prompt = "  \n" }, false},
		{"negative temperature", func(r *Request) { r.Temperature = -0.1 }, false},
		{"temperature above one", func(r *Request) { r.Temperature = 1.01 }, false},
		{"NaN temperature", func(r *Request) { r.Temperature = math.NaN() }, false},
		{"zero max tokens", func(r *Request) { r.MaxTokens = 0 }, false},
		{"too many tokens", func(r *Request) { r.MaxTokens = 4001 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequest()
			tc.mut(&r)
			err := r.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsInvalidRequest(err), "got %v", err)
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 2, EstimateTokens("hi there"))
	assert.Equal(t, 0, EstimateTokens("   "))
	assert.Equal(t, 3, EstimateTokens(" a\tb\nc "))
}

func TestErrorMessagesAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		want   string
	}{
		{invalid("m", "bad"), http.StatusBadRequest, "invalid request"},
		{unavailable("m", "localhost:11434", nil), http.StatusServiceUnavailable, "not running at localhost:11434"},
		{notFound("m", nil), http.StatusNotFound, "pull it first"},
		{timedOut("m", "1s", nil), http.StatusGatewayTimeout, "timed out after 1s"},
		{cancelled("m", context.Canceled), http.StatusGatewayTimeout, "cancelled before completion: context canceled"},
		{transportFailure("m", assert.AnError), http.StatusBadGateway, "unexpected transport failure"},
	}
	for _, tc := range cases {
		e := tc.err.(*Error)
		assert.Equal(t, tc.status, e.StatusCode())
		assert.True(t, strings.Contains(e.Error(), tc.want), "%q lacks %q", e.Error(), tc.want)
	}
	assert.Equal(t, KindUnknown, KindOf(assert.AnError))
}

func TestAccumulator(t *testing.T) {
	var a Accumulator
	a.Add("Hel")
	a.Add("")
	a.Add("lo")
	a.MarkDone()
	assert.Equal(t, "Hello", a.Text())
	assert.Equal(t, 2, a.Count())
	assert.True(t, a.Done())
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/nexus/domain"
)

type sample struct {
	Title      string            `json:"title" validate:"required"`
	Price      float64           `json:"price" validate:"gte=0"`
	Deployment domain.Deployment `json:"deployment"`
}

func TestStruct_DeploymentURL(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{name: "absolute https", url: "https://codewhiz.ai/app", ok: true},
		{name: "in-product path", url: "/apps/legal-eagle", ok: true},
		{name: "protocol relative", url: "//evil.example", ok: false},
		{name: "missing scheme", url: "codewhiz.ai", ok: false},
		{name: "ftp", url: "ftp://files.example.com", ok: false},
		{name: "empty", url: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(sample{
				Title:      "x",
				Deployment: domain.Deployment{Kind: domain.DeploymentWebApp, URL: tt.url},
			})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		})
	}
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	err := New().Struct(sample{
		Price:      -1,
		Deployment: domain.Deployment{Kind: "mainframe", URL: "/x"},
	})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "field title is a required field")
	assert.Contains(t, msg, "field price must be at least 0")
	assert.Contains(t, msg, "field kind must be one of")
}

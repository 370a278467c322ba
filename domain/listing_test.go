package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextVersion(t *testing.T) {
	tests := map[string]string{
		"2.1.0":      "2.2.0",
		"1.5.2":      "1.6.0",
		"2.9.1":      "3.0.0",
		"0.9.0-beta": "1.0.0",
		"3":          "3.1.0",
		"2.15.0":     "2.16.0",
		"":           "1.0.0",
		"v2.0.0":     "1.0.0",
	}
	for in, want := range tests {
		assert.Equal(t, want, NextVersion(in), "NextVersion(%q)", in)
	}
}

func TestListing_ApproveFreshCreationResetsHistory(t *testing.T) {
	l := &Listing{
		ID:             "n1",
		Status:         StatusUnderReview,
		CurrentVersion: "1.0.0",
		VersionHistory: []VersionEntry{{Version: "0.1.0"}},
	}

	require.True(t, l.Approve(false, "2026-10-15"))
	assert.Equal(t, StatusPublished, l.Status)
	assert.NotNil(t, l.VersionHistory)
	assert.Empty(t, l.VersionHistory)
}

func TestListing_ApproveUpdatePrependsEntry(t *testing.T) {
	l := &Listing{
		ID:             "1",
		Status:         StatusUnderReview,
		CurrentVersion: "2.1.0",
		VersionHistory: []VersionEntry{{Version: "2.1.0", Date: "2023-10-25"}, {Version: "2.0.0", Date: "2023-10-15"}},
	}

	require.True(t, l.Approve(true, "2026-10-15", "General update and optimization"))
	require.Len(t, l.VersionHistory, 3)
	assert.Equal(t, VersionEntry{Version: "2.1.0", Date: "2026-10-15", Changes: []string{"General update and optimization"}}, l.VersionHistory[0])
	assert.Equal(t, "2.0.0", l.VersionHistory[2].Version)
}

func TestListing_ApproveOnlyFromReview(t *testing.T) {
	l := &Listing{Status: StatusPublished, VersionHistory: []VersionEntry{{Version: "1.0.0"}}}
	assert.False(t, l.Approve(true, "2026-10-15", "x"))
	assert.Len(t, l.VersionHistory, 1)

	var missing *Listing
	assert.False(t, missing.Approve(false, ""))
}

func TestListing_CloneIsDeep(t *testing.T) {
	l := &Listing{
		ID:             "1",
		Features:       []string{"a"},
		Tags:           []string{"t"},
		Reviews:        []Review{{ID: "r"}},
		VersionHistory: []VersionEntry{{Version: "1.0.0", Changes: []string{"init"}}},
	}
	c := l.Clone()
	c.Features[0] = "changed"
	c.Tags[0] = "changed"
	c.Reviews[0].ID = "changed"
	c.VersionHistory[0].Changes[0] = "changed"

	assert.Equal(t, "a", l.Features[0])
	assert.Equal(t, "t", l.Tags[0])
	assert.Equal(t, "r", l.Reviews[0].ID)
	assert.Equal(t, "init", l.VersionHistory[0].Changes[0])
}

func TestDeploymentKind_TrialEligible(t *testing.T) {
	assert.True(t, DeploymentWebApp.TrialEligible())
	assert.True(t, DeploymentSandbox.TrialEligible())
	assert.False(t, DeploymentAPI.TrialEligible())
	assert.False(t, DeploymentNotebook.TrialEligible())
}

func TestListing_Popularity(t *testing.T) {
	l := &Listing{Downloads: 100, Rating: 4.5}
	assert.InDelta(t, 450.0, l.Popularity(), 1e-9)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidMeetingLink(t *testing.T) {
	valid := []string{
		"https://meet.google.com/abc-defg-hij",
		"https://meet.google.com/ABC-DEFG-HIJ",
	}
	invalid := []string{
		"",
		"http://meet.google.com/abc-defg-hij",
		"https://meet.google.com/abc-defg-hi",
		"https://meet.google.com/abc-defg-hij/extra",
		"https://meet.google.com.evil.com/abc-defg-hij",
		"https://meet.google.com/ab1-defg-hij",
	}
	for _, link := range valid {
		assert.True(t, ValidMeetingLink(link), link)
	}
	for _, link := range invalid {
		assert.False(t, ValidMeetingLink(link), link)
	}
}

func TestCreateMeetingLink(t *testing.T) {
	svc := NewMeetingService("https://meet.google.com/")
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		link, err := svc.CreateMeetingLink(context.Background())
		require.NoError(t, err)
		require.NoError(t, svc.Validate(link))
		seen[link] = true
	}
	assert.Greater(t, len(seen), 1)
}

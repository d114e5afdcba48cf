package util

import (
	"edu_platform_backend/internal/model"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "t@example.com", Role: model.Teacher}
	user.ID = 42

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Teacher, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.RemainingTTL().Seconds(), 5)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestExpiredJWTRejected(t *testing.T) {
	user := &model.User{Role: model.Student}
	token, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.Error(t, err)
}

func TestKindAndStatusMapping(t *testing.T) {
	wrapped := fmt.Errorf("start exam: %w", ErrAttemptInProgress)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrAttemptInProgress))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))

	assert.Equal(t, http.StatusNotFound, StatusOf(KindNotFound))
	assert.Equal(t, http.StatusForbidden, StatusOf(KindForbidden))
	assert.Equal(t, http.StatusBadRequest, StatusOf(KindInvalidState))
	assert.Equal(t, http.StatusBadRequest, StatusOf(KindValidation))
	assert.Equal(t, http.StatusConflict, StatusOf(KindConflict))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(KindUnauthenticated))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(""))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	require.NoError(t, err)
	assert.Equal(t, uint(17), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := ParseID(bad)
		assert.Equal(t, KindValidation, KindOf(err), bad)
	}
}

func TestValidateMimeType(t *testing.T) {
	pdf := strings.NewReader("%PDF-1.4\n%âãÏÓ\n1 0 obj")
	mime, err := ValidateMimeType(pdf, []string{MimePDF})
	require.NoError(t, err)
	assert.Equal(t, MimePDF, mime)
	assert.Equal(t, model.ContentPDF, ContentTypeOf(mime, "notes.pdf"))

	_, err = ValidateMimeType(strings.NewReader("plain words"), []string{MimePDF, MimeVideo})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	assert.Equal(t, model.ContentEbook, ContentTypeOf("application/zip", "book.epub"))
	assert.Equal(t, model.ContentVideo, ContentTypeOf("video/mp4", "a.mp4"))
	assert.Equal(t, model.ContentOther, ContentTypeOf("text/plain; charset=utf-8", "a.txt"))
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{
		"streams": [
			{"codec_type": "video", "duration": "12.0"},
			{"codec_type": "audio", "duration": "12.4"}
		],
		"format": {"duration": "12.6"}
	}`))
	require.NoError(t, err)
	assert.True(t, info.HasVideo)
	assert.True(t, info.HasAudio)
	assert.Equal(t, 13, info.DurationSeconds)

	// format 缺少时长时退回流时长
	info, err = parseProbe([]byte(`{"streams": [{"codec_type": "audio", "duration": "61.2"}], "format": {}}`))
	require.NoError(t, err)
	assert.False(t, info.HasVideo)
	assert.Equal(t, 61, info.DurationSeconds)

	_, err = parseProbe([]byte(`not json`))
	assert.Error(t, err)
}

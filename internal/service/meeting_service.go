package service

import (
	"context"
	"crypto/rand"
	"edu_platform_backend/internal/util"
	"math/big"
	"regexp"
	"strings"
)

var meetLinkPattern = regexp.MustCompile(`(?i)^https://meet\.google\.com/[a-z]{3}-[a-z]{4}-[a-z]{3}$`)

// ValidMeetingLink 会议链接格式：https://meet.google.com/xxx-xxxx-xxx
func ValidMeetingLink(link string) bool {
	return meetLinkPattern.MatchString(link)
}

// MeetingLinkGenerator 生成视频会议链接
type MeetingLinkGenerator interface {
	CreateMeetingLink(ctx context.Context) (string, error)
}

type MeetingService struct {
	BaseURL string
}

func NewMeetingService(baseURL string) *MeetingService {
	if baseURL == "" {
		baseURL = "https://meet.google.com"
	}
	return &MeetingService{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *MeetingService) Validate(link string) error {
	if !ValidMeetingLink(link) {
		return util.ErrInvalidMeetingLink
	}
	return nil
}

// CreateMeetingLink 生成 xxx-xxxx-xxx 形式的会议码
func (s *MeetingService) CreateMeetingLink(ctx context.Context) (string, error) {
	var parts [3]string
	for i, n := range []int{3, 4, 3} {
		part, err := randomLetters(n)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	return s.BaseURL + "/" + strings.Join(parts[:], "-"), nil
}

const meetAlphabet = "abcdefghijklmnopqrstuvwxyz"

func randomLetters(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(meetAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = meetAlphabet[idx.Int64()]
	}
	return string(b), nil
}

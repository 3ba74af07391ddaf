package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fight Club (1999)", "Fight Club (1999)"},
		{`a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"trailing dots...", "trailing dots"},
		{"  many   spaces  ", "many spaces"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestSubtitleFilename(t *testing.T) {
	assert.Equal(t, "Fight Club.srt", SubtitleFilename("Fight Club", "srt", "x"))
	assert.Equal(t, "Fight Club.vtt", SubtitleFilename("Fight Club", ".VTT", "x"))
	assert.Equal(t, "movie.srt", SubtitleFilename("", "", "movie"))
	assert.Equal(t, "Fight Club.srt", SubtitleFilename("Fight Club.srt", "srt", "x"))
	assert.Equal(t, "subtitle.srt", SubtitleFilename("???", "srt", "***"))
}

func TestConvertSRTToVTT(t *testing.T) {
	srt := "\xef\xbb\xbf1\r\n00:00:01,000 --> 00:00:04,500\r\nHello\r\nworld\r\n\r\n2\r\n00:00:05,000 --> 00:00:06,000\r\nBye\r\n"

	got := string(ConvertSRTToVTT([]byte(srt)))

	want := "WEBVTT\n\n" +
		"00:00:01.000 --> 00:00:04.500\nHello\nworld\n\n" +
		"00:00:05.000 --> 00:00:06.000\nBye\n\n"
	assert.Equal(t, want, got)
}

func TestConvertSRTToVTT_NumericDialogue(t *testing.T) {
	srt := "1\n00:00:01,000 --> 00:00:02,000\nHow many?\n42\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\n7\n" +
		"3\n00:00:05,000 --> 00:00:06,000\nDone\n"

	got := string(ConvertSRTToVTT([]byte(srt)))

	want := "WEBVTT\n\n" +
		"00:00:01.000 --> 00:00:02.000\nHow many?\n42\n\n" +
		"00:00:03.000 --> 00:00:04.000\n7\n\n" +
		"00:00:05.000 --> 00:00:06.000\nDone\n\n"
	assert.Equal(t, want, got)
}

func TestLooksLikeSRT(t *testing.T) {
	assert.True(t, LooksLikeSRT([]byte("1\n00:00:01,000 --> 00:00:02,000\nhi\n")))
	assert.False(t, LooksLikeSRT([]byte("PK\x03\x04 zip payload")))
}

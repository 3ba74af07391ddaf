package utils

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	srtTimestamp   = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}),(\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}),(\d{3})`)
	sequenceNumber = regexp.MustCompile(`^\d+$`)
)

// LooksLikeSRT reports whether content contains at least one SRT cue timestamp.
func LooksLikeSRT(content []byte) bool {
	return srtTimestamp.Match(content)
}

// ConvertSRTToVTT converts SRT subtitle content to WebVTT.
func ConvertSRTToVTT(content []byte) []byte {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return []byte(convertSRTLinesToVTT(strings.Split(text, "\n")))
}

func convertSRTLinesToVTT(lines []string) string {
	var result strings.Builder
	result.WriteString("WEBVTT\n\n")

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		if line == "" || isSequenceNumber(line) {
			i++
			continue
		}

		if !srtTimestamp.MatchString(line) {
			i++
			continue
		}

		result.WriteString(srtTimestamp.ReplaceAllString(line, "$1.$2 --> $3.$4"))
		result.WriteString("\n")
		i++

		// Cue text runs until a blank line, or a sequence number directly
		// followed by the next timestamp. A numeric dialogue line is text.
		for i < len(lines) {
			textLine := strings.TrimSpace(lines[i])
			if textLine == "" || startsCue(lines, i) {
				break
			}
			result.WriteString(textLine + "\n")
			i++
		}
		result.WriteString("\n")
	}

	return result.String()
}

func startsCue(lines []string, i int) bool {
	return isSequenceNumber(lines[i]) && i+1 < len(lines) && srtTimestamp.MatchString(lines[i+1])
}

func isSequenceNumber(line string) bool {
	return sequenceNumber.MatchString(strings.TrimSpace(line))
}

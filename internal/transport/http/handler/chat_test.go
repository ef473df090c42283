package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSEDataFramePreservesNewlines(t *testing.T) {
	cases := []struct {
		name  string
		chunk string
		want  string
	}{
		{"single line", "hello", "data: hello\n\n"},
		{"embedded newline", "first\nsecond", "data: first\ndata: second\n\n"},
		{"crlf normalized", "first\r\nsecond", "data: first\ndata: second\n\n"},
		{"trailing newline", "line\n", "data: line\ndata: \n\n"},
		{"empty chunk", "", "data: \n\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sseDataFrame(tc.chunk))
		})
	}
}

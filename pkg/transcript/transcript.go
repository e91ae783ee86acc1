// Package transcript reads plain text conversation transcripts, one
// "speaker: text" turn per line.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/gleaner/pkg/taskqueue"
)

// DefaultSpeaker is used for lines without a speaker prefix.
const DefaultSpeaker = "user"

const maxLineSize = 1024 * 1024

// ParseLine parses a single transcript line. Blank lines and lines
// starting with '#' carry no turn and return false.
func ParseLine(line string) (taskqueue.Turn, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return taskqueue.Turn{}, false
	}

	speaker, text, found := strings.Cut(line, ":")
	if !found || !validSpeaker(speaker) || (text != "" && !strings.HasPrefix(text, " ")) {
		return taskqueue.Turn{Speaker: DefaultSpeaker, Text: line}, true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return taskqueue.Turn{}, false
	}
	return taskqueue.Turn{Speaker: speaker, Text: text}, true
}

// a speaker is one token, so "note to self: ..." stays text
func validSpeaker(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t")
}

// Parse reads every turn from r, including a final line without a newline.
func Parse(r io.Reader) ([]taskqueue.Turn, error) {
	var turns []taskqueue.Turn
	_, err := scan(r, true, func(t taskqueue.Turn) error {
		turns = append(turns, t)
		return nil
	})
	return turns, err
}

// Scan calls fn for each turn in r and returns the number of bytes consumed
// through the last line fn accepted. A trailing line without a newline is
// left unread so a tailer can pick it up once it is finished.
func Scan(r io.Reader, fn func(taskqueue.Turn) error) (int64, error) {
	return scan(r, false, fn)
}

func scan(r io.Reader, partial bool, fn func(taskqueue.Turn) error) (int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var consumed int64
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return consumed, fmt.Errorf("reading transcript: %w", err)
		}
		if err == io.EOF && (line == "" || !partial) {
			return consumed, nil
		}
		if len(line) > maxLineSize {
			return consumed, fmt.Errorf("transcript line exceeds %d bytes", maxLineSize)
		}

		if turn, ok := ParseLine(line); ok {
			if err := fn(turn); err != nil {
				return consumed, err
			}
		}
		consumed += int64(len(line))

		if err == io.EOF {
			return consumed, nil
		}
	}
}

package recorder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// maxLineSize bounds a single JSON-lines command.
const maxLineSize = 4 << 20

// DecodeCommands reads newline-delimited CreateAudit commands from r and calls
// fn for each one. Blank lines are skipped. Decoding stops at the first
// malformed line or the first error returned by fn.
func DecodeCommands(r io.Reader, fn func(line int, cmd *CreateAudit) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var cmd CreateAudit
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(line, &cmd); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}

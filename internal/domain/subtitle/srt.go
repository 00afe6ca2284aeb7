package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"autosubrt-server-go/internal/platform/errors"
)

// Render formats cues as SubRip. Indices are reassigned 1..n in input order.
func Render(cues []Cue) []byte {
	var b bytes.Buffer
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", ToSubtitleTime(cue.StartMs), ToSubtitleTime(cue.EndMs))
		b.WriteString(cue.Text)
		b.WriteString("\n\n")
	}
	return b.Bytes()
}

// WriteFile renders cues and replaces path atomically (temp file + rename in
// the same directory). The directory must already exist.
func WriteFile(path string, cues []Cue) error {
	const op = "subtitle.write"
	if strings.TrimSpace(path) == "" {
		return errors.New(errors.KindSerialization, op, "empty subtitle path")
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".srt-*.tmp")
	if err != nil {
		return errors.Wrap(errors.KindSerialization, op, "create temp file in "+dir, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(Render(cues)); err != nil {
		return errors.Wrap(errors.KindSerialization, op, "write subtitle", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return errors.Wrap(errors.KindSerialization, op, "sync subtitle", err)
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(errors.KindSerialization, op, "close subtitle", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(errors.KindSerialization, op, "chmod subtitle", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(errors.KindSerialization, op, "rename subtitle to "+path, err)
	}
	return nil
}

// Parse reads SubRip content back into cues, keeping the file's indices.
func Parse(data []byte) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var block []string
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		defer func() { block = block[:0] }()
		if len(block) < 2 {
			return fmt.Errorf("incomplete cue block %q", strings.Join(block, "\n"))
		}
		index, err := strconv.Atoi(strings.TrimSpace(block[0]))
		if err != nil {
			return fmt.Errorf("invalid cue index %q", block[0])
		}
		startText, endText, ok := strings.Cut(block[1], "-->")
		if !ok {
			return fmt.Errorf("invalid time range %q", block[1])
		}
		start, err := ParseTime(startText)
		if err != nil {
			return err
		}
		end, err := ParseTime(endText)
		if err != nil {
			return err
		}
		cues = append(cues, Cue{
			Index:   index,
			StartMs: start.Milliseconds(),
			EndMs:   end.Milliseconds(),
			Text:    strings.Join(block[2:], "\n"),
		})
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cues, nil
}

// ParseFile reads and parses an .srt file.
func ParseFile(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	return Parse(data)
}

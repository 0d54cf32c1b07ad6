package session

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"deskagent/internal/wire"

	"github.com/zeebo/blake3"
)

// CLI-sourced sessions are never created by this process. They are
// discovered under <cliRoot>/<digest>[_<envTag>]/<session-id>/, where each
// session directory holds context.jsonl (presence and mtime) and wire.jsonl
// (the replayable event log).

const (
	contextLogName = "context.jsonl"
	wireLogName    = "wire.jsonl"

	// titleScanLines bounds how far into wire.jsonl the title scan looks.
	titleScanLines = 50
	titleMaxChars  = 50
)

// WorkDirDigest returns the fixed-width hex digest naming the transcript
// directory for a working directory. The input is the absolute path string;
// relative inputs are made absolute first so both spellings land in the same
// bucket.
func WorkDirDigest(workDir string) string {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		abs = workDir
	}
	sum := blake3.Sum256([]byte(abs))
	return fmt.Sprintf("%016x", sum[:8])
}

func (s *Store) digestDir(workDir string) string {
	name := WorkDirDigest(workDir)
	if s.envTag != "" {
		name += "_" + s.envTag
	}
	return filepath.Join(s.cliRoot, name)
}

func (s *Store) transcriptDir(workDir, id string) string {
	return filepath.Join(s.digestDir(workDir), id)
}

// listCLI scans the transcript tree for sessions of workDir. A subdirectory
// counts as a session only when it contains context.jsonl; updated_at is the
// context log's mtime.
func (s *Store) listCLI(workDir string) []Info {
	if s.cliRoot == "" {
		return nil
	}
	entries, err := os.ReadDir(s.digestDir(workDir))
	if err != nil {
		return nil
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		dir := filepath.Join(s.digestDir(workDir), id)
		stat, err := os.Stat(filepath.Join(dir, contextLogName))
		if err != nil {
			continue
		}
		title := extractTitle(filepath.Join(dir, wireLogName))
		if title == "" {
			title = "Session " + shortID(id)
		}
		infos = append(infos, Info{
			ID:        id,
			Title:     title,
			WorkDir:   workDir,
			UpdatedAt: stat.ModTime().Unix(),
		})
	}
	return infos
}

// extractTitle scans the first lines of a wire log for the opening turn's
// user input.
func extractTitle(wirePath string) string {
	f, err := os.Open(wirePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; i < titleScanLines && scanner.Scan(); i++ {
		ev, ok := wire.Decode(scanner.Text())
		if !ok {
			continue
		}
		if ev.Kind == wire.KindTurnBegin && strings.TrimSpace(ev.Text) != "" {
			return truncateWithEllipsis(ev.Text, titleMaxChars)
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

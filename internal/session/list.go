package session

import (
	"os"
	"path/filepath"
	"sort"

	"deskagent/internal/chat"
	"deskagent/internal/transcript"
)

// Info is the listing view shared by both backends.
type Info struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	WorkDir   string `json:"work_dir"`
	UpdatedAt int64  `json:"updated_at"`
}

// List returns the union of CLI-discovered and GUI-owned sessions for
// workDir, newest first, deduplicated by id (first occurrence wins). An
// empty workDir lists every GUI session and no CLI sessions.
func (s *Store) List(workDir string) ([]Info, error) {
	var infos []Info
	if workDir != "" {
		infos = s.listCLI(workDir)
	}

	guiSessions, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, sess := range guiSessions {
		if workDir != "" && !sameWorkDir(sess.WorkDir, workDir) {
			continue
		}
		infos = append(infos, Info{
			ID:        sess.ID,
			Title:     sess.Title,
			WorkDir:   sess.WorkDir,
			UpdatedAt: sess.UpdatedAt,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].UpdatedAt > infos[j].UpdatedAt
	})

	seen := map[string]bool{}
	unique := infos[:0]
	for _, info := range infos {
		if seen[info.ID] {
			continue
		}
		seen[info.ID] = true
		unique = append(unique, info)
	}
	return unique, nil
}

// sameWorkDir matches by canonicalized path equality or raw string equality,
// tolerating directories that no longer resolve.
func sameWorkDir(recorded, requested string) bool {
	if recorded == requested {
		return true
	}
	rec, err1 := filepath.EvalSymlinks(recorded)
	req, err2 := filepath.EvalSymlinks(requested)
	if err1 != nil || err2 != nil {
		return false
	}
	return rec == req
}

// Messages resolves a session's conversation: the in-memory cache first,
// then the GUI disk records, and finally a replay of the CLI wire log.
func (s *Store) Messages(workDir, id string) ([]chat.Message, error) {
	s.mu.Lock()
	if sess, ok := s.cache[id]; ok && len(sess.Messages) > 0 {
		out := append([]chat.Message(nil), sess.Messages...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	if messages := s.loadMessages(id); len(messages) > 0 {
		return messages, nil
	}

	return s.replayWireLog(workDir, id)
}

// replayWireLog reconstructs messages from the externally produced
// wire.jsonl. A missing log is an empty conversation, not an error.
func (s *Store) replayWireLog(workDir, id string) ([]chat.Message, error) {
	if s.cliRoot == "" {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(s.transcriptDir(workDir, id), wireLogName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return transcript.FoldReader(f)
}

// Package session persists conversations in two independent on-disk shapes:
// the GUI's own per-session record plus append-only message log, and the
// externally produced transcript tree keyed by a digest of the working
// directory. The two formats are reconciled only at listing time.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"deskagent/internal/chat"
)

// Session is a GUI-owned conversation. Identity is the caller-supplied id;
// the title is derived once at creation time and never recomputed.
type Session struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	WorkDir   string `json:"work_dir"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`

	Messages []chat.Message `json:"-"`
}

// metaRecord is the on-disk shape of <id>.json. Messages live in a separate
// append-only <id>_messages.jsonl file.
type metaRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	WorkDir   string `json:"work_dir"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store is the GUI-sourced session backend plus the read-only view over the
// CLI transcript tree. The in-memory cache is guarded by mu.
type Store struct {
	mu      sync.Mutex
	cache   map[string]*Session
	root    string
	cliRoot string
	envTag  string
	log     *slog.Logger
}

func NewStore(root, cliRoot, envTag string, log *slog.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("session store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create session store root: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		cache:   map[string]*Session{},
		root:    root,
		cliRoot: cliRoot,
		envTag:  envTag,
		log:     log,
	}, nil
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.root, id+".json")
}

func (s *Store) messagesPath(id string) string {
	return filepath.Join(s.root, id+"_messages.jsonl")
}

// GetOrCreate returns the cached session for id, or creates, persists, and
// caches a fresh one. Title and work dir are fixed at creation.
func (s *Store) GetOrCreate(id, title, workDir string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.cache[id]; ok {
		return *existing
	}

	now := time.Now().Unix()
	sess := &Session{
		ID:        id,
		Title:     title,
		WorkDir:   workDir,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cache[id] = sess
	if err := s.persist(sess); err != nil {
		s.log.Warn("persist new session failed", "session_id", id, "error", err)
	}
	return *sess
}

// SaveMessage appends one message to the session's jsonl log. Best effort:
// the caller may combine it with AddMessage to keep the cache current.
func (s *Store) SaveMessage(id string, msg chat.Message) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	f, err := os.OpenFile(s.messagesPath(id), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// AddMessage records msg on the cached session, appends it to the message
// log, and bumps updated_at. The in-memory update always happens;
// persistence failures are logged, not returned.
func (s *Store) AddMessage(id string, msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.cache[id]
	if !ok {
		return
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now().Unix()
	if err := s.SaveMessage(id, msg); err != nil {
		s.log.Warn("append message failed", "session_id", id, "error", err)
	}
	if err := s.persist(sess); err != nil {
		s.log.Warn("persist session update failed", "session_id", id, "error", err)
	}
}

// Touch bumps updated_at after a completed turn.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.cache[id]
	if !ok {
		return
	}
	sess.UpdatedAt = time.Now().Unix()
	if err := s.persist(sess); err != nil {
		s.log.Warn("persist session touch failed", "session_id", id, "error", err)
	}
}

// Delete removes the session's metadata record and message log, plus any
// CLI transcript directory for the same (work dir, id) pair.
func (s *Store) Delete(workDir, id string) error {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	for _, path := range []string{s.metaPath(id), s.messagesPath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	if s.cliRoot != "" {
		dir := s.transcriptDir(workDir, id)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("delete transcript dir %s: %w", dir, err)
		}
	}
	return nil
}

// LoadAll reads every metadata record under the store root, attaches its
// message log, and refreshes the cache. Unreadable records are skipped.
func (s *Store) LoadAll() ([]Session, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read session store root: %w", err)
	}

	var sessions []Session
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, name))
		if err != nil {
			s.log.Warn("read session record failed", "file", name, "error", err)
			continue
		}
		var meta metaRecord
		if err := json.Unmarshal(data, &meta); err != nil || meta.ID == "" {
			continue
		}
		sess := Session{
			ID:        meta.ID,
			Title:     meta.Title,
			WorkDir:   meta.WorkDir,
			CreatedAt: meta.CreatedAt,
			UpdatedAt: meta.UpdatedAt,
		}
		sess.Messages = s.loadMessages(meta.ID)
		sessions = append(sessions, sess)
	}

	s.mu.Lock()
	for i := range sessions {
		copied := sessions[i]
		s.cache[copied.ID] = &copied
	}
	s.mu.Unlock()
	return sessions, nil
}

func (s *Store) loadMessages(id string) []chat.Message {
	f, err := os.Open(s.messagesPath(id))
	if err != nil {
		return nil
	}
	defer f.Close()

	var messages []chat.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg chat.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// persist writes the metadata record. Caller holds mu.
func (s *Store) persist(sess *Session) error {
	meta := metaRecord{
		ID:        sess.ID,
		Title:     sess.Title,
		WorkDir:   sess.WorkDir,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	if err := os.WriteFile(s.metaPath(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	return nil
}

// DeriveTitle truncates the first user prompt into a session title.
func DeriveTitle(prompt string) string {
	return truncateWithEllipsis(prompt, 50)
}

func truncateWithEllipsis(input string, maxChars int) string {
	runes := []rune(input)
	if len(runes) <= maxChars {
		return input
	}
	if maxChars <= 3 {
		return string(runes[:maxChars])
	}
	return string(runes[:maxChars-3]) + "..."
}

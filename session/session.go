// SPDX-License-Identifier: ISC

// Package session implements the minter's open/close lifecycle (C10):
// resolving the on-disk directory, opening the backend, prefetching
// the admin cache, and handing callers a locked handle for the
// duration of one mutating operation. A session is single-threaded —
// the mutex here is process-local, not a cross-process lock.
package session

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/Daniel-KM/Noid4Php/admincache"
	"github.com/Daniel-KM/Noid4Php/counter"
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/lcg"
	"github.com/Daniel-KM/Noid4Php/noidlog"
	"github.com/Daniel-KM/Noid4Php/storage"
	"github.com/Daniel-KM/Noid4Php/template"
	"github.com/Daniel-KM/Noid4Php/util"
)

// activeSessions counts sessions currently open across this process,
// the way rpc.connectionCount tracks live connections: a lock-free
// stat read independently of registryMu.
var activeSessions counter.Counter

// ActiveSessionCount reports how many sessions are currently open in
// this process, across every database.
func ActiveSessionCount() uint64 {
	return activeSessions.Uint64()
}

// Settings describes where and how to open a minter. It stands in
// for the out-of-scope config-file loader: callers build one however
// they like (flags, a parsed file, a literal) and pass it to Open.
type Settings struct {
	DataDir string
	DBName  string
	Backend string // "bolt" (default), "leveldb", "sql", "xml"
}

func (s Settings) dir() string {
	return filepath.Join(s.DataDir, s.DBName)
}

func (s Settings) dbPath() string {
	ext := map[string]string{"bolt": "bolt", "leveldb": "leveldb", "sql": "sqlite3", "xml": "xml"}[s.backend()]
	return filepath.Join(s.dir(), "noid."+ext)
}

func (s Settings) backend() string {
	if s.Backend == "" {
		return "bolt"
	}
	return s.Backend
}

func (s Settings) canonical() string {
	cwd, err := os.Getwd()
	if err != nil {
		return s.dir()
	}
	return util.EnsureAbsolute(cwd, s.dir())
}

// Session is one open minter database.
type Session struct {
	mu       sync.Mutex
	settings Settings
	handle   storage.Handle
	cache    *admincache.Cache
	template *template.Template
	prng     *lcg.Generator
	log      *noidlog.Log

	errMu  sync.Mutex
	errMsg string
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Session{}
	persistent bool
)

// Persist enables the optional persistent-connection mode: a
// matching Close becomes a no-op and a matching Open reuses the
// stored session. Create-mode opens are never reused.
func Persist(on bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	persistent = on
}

// Unpersist clears persistent mode and force-closes every session
// currently held open by it.
func Unpersist() {
	registryMu.Lock()
	sessions := make([]*Session, 0, len(registry))
	for _, s := range registry {
		sessions = append(sessions, s)
	}
	registry = map[string]*Session{}
	persistent = false
	registryMu.Unlock()

	for _, s := range sessions {
		s.closeNow()
	}
}

// Open resolves settings.dir(), opens the backend in mode, prefetches
// the admin cache, and returns a ready Session. In persistent mode, a
// read-write open of a path that is already registered reuses the
// existing Session instead of opening the backend again.
func Open(settings Settings, mode storage.Mode) (*Session, error) {
	if settings.DataDir == "" {
		return nil, fault.ErrMissingDataDir
	}
	key := settings.canonical()

	if mode != storage.ModeCreate {
		registryMu.Lock()
		if persistent {
			if existing, ok := registry[key]; ok {
				registryMu.Unlock()
				return existing, nil
			}
		}
		registryMu.Unlock()
	}

	if mode == storage.ModeCreate {
		if err := os.MkdirAll(settings.dir(), 0o700); err != nil {
			return nil, fault.ErrIO
		}
	} else if !util.EnsureFileExists(settings.dir()) {
		return nil, fault.ErrIO
	}

	h, err := storage.Open(settings.backend(), settings.dbPath(), mode)
	if err != nil {
		return nil, err
	}

	s := &Session{settings: settings, handle: storage.Cached(h)}

	if mode != storage.ModeCreate {
		cache, err := admincache.Load(s.handle)
		if err != nil {
			s.handle.Close()
			return nil, err
		}
		s.cache = cache

		rawTmpl, ok := cache.GetString("R/template")
		if ok && rawTmpl != "" {
			tmpl, err := template.Parse(rawTmpl)
			if err != nil {
				s.handle.Close()
				return nil, err
			}
			s.template = tmpl
		}
		s.prng = lcg.New(0)
	}

	logHandle, err := noidlog.Open(settings.dir(), settings.backend())
	if err != nil {
		s.handle.Close()
		return nil, err
	}
	s.log = logHandle

	if mode != storage.ModeCreate {
		registryMu.Lock()
		if persistent {
			registry[key] = s
		}
		registryMu.Unlock()
	}

	activeSessions.Increment()
	return s, nil
}

// Close tears the session down in reverse of Open, unless persistent
// mode is active for this path, in which case Close is a no-op.
func (s *Session) Close() error {
	registryMu.Lock()
	if persistent {
		if _, ok := registry[s.settings.canonical()]; ok {
			registryMu.Unlock()
			return nil
		}
	}
	registryMu.Unlock()
	return s.closeNow()
}

func (s *Session) closeNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		s.cache.Clear()
	}
	s.log.Close()
	activeSessions.Decrement()
	return s.handle.Close()
}

// Lock acquires the session's process-local mutex; callers must
// Unlock before returning. Every mutating operation wraps its
// read-modify-write sequence in this pair.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Handle returns the session's storage handle.
func (s *Session) Handle() storage.Handle { return s.handle }

// Cache returns the session's admin-state cache.
func (s *Session) Cache() *admincache.Cache { return s.cache }

// Template returns the session's parsed template, or nil for a
// bind-only minter created with an empty template.
func (s *Session) Template() *template.Template { return s.template }

// PRNG returns the session-local LCG generator used for random-mode
// minting.
func (s *Session) PRNG() *lcg.Generator { return s.prng }

// Log returns the session's append-only log sink.
func (s *Session) Log() *noidlog.Log { return s.log }

// Settings returns the settings this session was opened with.
func (s *Session) Settings() Settings { return s.settings }

// ErrMsg returns the last human-readable message recorded by
// RecordError, or "" if no recoverable operation has failed since the
// session opened. This is the per-session error buffer §7 describes
// as readable via "errmsg".
func (s *Session) ErrMsg() string {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.errMsg
}

// RecordError stores a non-nil err's message in the per-session error
// buffer and returns err unchanged, so callers can wrap a return
// statement directly: return "", s.RecordError(err).
func (s *Session) RecordError(err error) error {
	if err == nil {
		return nil
	}
	s.errMu.Lock()
	s.errMsg = err.Error()
	s.errMu.Unlock()
	return err
}

// Package audit records vault activity in an HMAC-chained JSONL log.
//
// Each vault keeps its own log directory holding one file per month. Every
// record carries the HMAC of the previous record, so removing, reordering or
// editing a line breaks the chain and is reported by Verify. Profile names
// never reach the log in clear text; only their HMAC is stored.
package audit

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/forest6511/vaultkeeper/internal/diskspace"
)

const (
	// MinDiskSpace is the free space required before a record is appended.
	MinDiskSpace = 1024 * 1024

	schemaVersion = 1
	genesis       = "genesis"
	chainFile     = "audit.meta"
	hkdfInfo      = "vaultkeeper-audit-v1"
)

// Operation types
const (
	OpVaultCreate     = "vault.create"
	OpVaultOpen       = "vault.open"
	OpVaultOpenFailed = "vault.open_failed"
	OpVaultClose      = "vault.close"

	OpProfileAdd    = "profile.add"
	OpProfileGet    = "profile.get"
	OpProfileUpdate = "profile.update"
	OpProfileDelete = "profile.delete"
	OpProfileList   = "profile.list"
	OpProfileExists = "profile.exists"
	OpProfileImport = "profile.import"
)

// Sources
const (
	SourceCLI = "cli"
	SourceMCP = "mcp"
)

// Results
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// ErrKeyNotSet is returned when the logger is used before SetHMACKey.
var ErrKeyNotSet = errors.New("audit: HMAC key not set")

// Event is a single audit record.
type Event struct {
	Version   int    `json:"v"`
	ID        string `json:"id"` // UUIDv7, time ordered
	Timestamp string `json:"ts"` // RFC 3339, nanoseconds
	Operation string `json:"op"`
	Profile   string `json:"profile,omitempty"` // HMAC of the profile name
	Source    string `json:"source"`
	SessionID string `json:"session_id"`
	Result    string `json:"result"`

	Error *ErrorInfo `json:"error,omitempty"`
	Chain Chain      `json:"chain"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Chain links a record to its predecessor.
type Chain struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
	HMAC     string `json:"hmac"`
}

// VerifyResult contains the results of chain verification
type VerifyResult struct {
	Valid        bool     `json:"valid"`
	RecordsTotal int      `json:"records_total"`
	Errors       []string `json:"errors,omitempty"`
}

type chainState struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
}

// Logger appends audit records for one vault.
type Logger struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	hmacKey   []byte
	sequence  int64
	prevHash  string
	sessionID string
}

// NewLogger returns a logger writing under path. Diagnostics about the log
// itself go to logger, which may be nil.
func NewLogger(path string, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Logger{
		path:      path,
		logger:    logger,
		prevHash:  genesis,
		sessionID: uuid.NewString(),
	}
}

// Path returns the audit log directory.
func (l *Logger) Path() string {
	return l.path
}

// SetHMACKey derives the chain key from the vault key with HKDF-SHA256 and
// loads the persisted chain state.
func (l *Logger) SetHMACKey(vaultKey []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, vaultKey, nil, []byte(hkdfInfo)), key); err != nil {
		return fmt.Errorf("audit: failed to derive HMAC key: %w", err)
	}
	l.hmacKey = key

	if err := l.loadChainState(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("audit chain state unreadable, starting a new chain", "error", err)
		}
		l.sequence = 0
		l.prevHash = genesis
	}
	return nil
}

// Log appends one record.
func (l *Logger) Log(op, source, result, profile string, errInfo *ErrorInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hmacKey == nil {
		return ErrKeyNotSet
	}

	if err := os.MkdirAll(l.path, 0700); err != nil {
		return fmt.Errorf("audit: failed to create directory: %w", err)
	}
	if _, err := diskspace.Require(l.path, MinDiskSpace, 0); err != nil {
		if errors.Is(err, diskspace.ErrInsufficient) {
			return fmt.Errorf("audit: %w", err)
		}
		l.logger.Warn("failed to check disk space for audit log", "error", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("audit: failed to generate event id: %w", err)
	}

	event := Event{
		Version:   schemaVersion,
		ID:        id.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Operation: op,
		Source:    source,
		SessionID: l.sessionID,
		Result:    result,
		Error:     errInfo,
	}
	if profile != "" {
		event.Profile = l.sum([]byte(profile))
	}

	event.Chain.Sequence = l.sequence + 1
	event.Chain.PrevHash = l.prevHash
	event.Chain.HMAC = l.sum(recordData(&event))

	if err := l.writeEvent(&event); err != nil {
		return err
	}
	l.sequence = event.Chain.Sequence
	l.prevHash = event.Chain.HMAC

	return l.saveChainState()
}

// LogSuccess records a successful operation.
func (l *Logger) LogSuccess(op, source, profile string) error {
	return l.Log(op, source, ResultSuccess, profile, nil)
}

// LogError records a failed operation.
func (l *Logger) LogError(op, source, profile, code, msg string) error {
	return l.Log(op, source, ResultError, profile, &ErrorInfo{Code: code, Message: msg})
}

func (l *Logger) sum(data []byte) string {
	mac := hmac.New(sha256.New, l.hmacKey)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// recordData is the canonical byte form covered by a record's HMAC.
func recordData(e *Event) []byte {
	var errCode, errMsg string
	if e.Error != nil {
		errCode, errMsg = e.Error.Code, e.Error.Message
	}
	return []byte(strings.Join([]string{
		fmt.Sprint(e.Version),
		e.ID,
		e.Timestamp,
		e.Operation,
		e.Profile,
		e.Source,
		e.SessionID,
		e.Result,
		errCode,
		errMsg,
		fmt.Sprint(e.Chain.Sequence),
		e.Chain.PrevHash,
	}, "|"))
}

// writeEvent appends an event to the current month's file.
func (l *Logger) writeEvent(event *Event) error {
	name := filepath.Join(l.path, time.Now().UTC().Format("2006-01")+".jsonl")

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal event: %w", err)
	}

	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: failed to write event: %w", err)
	}
	return nil
}

func (l *Logger) loadChainState() error {
	data, err := os.ReadFile(filepath.Join(l.path, chainFile))
	if err != nil {
		return err
	}

	var state chainState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	l.sequence = state.Sequence
	l.prevHash = state.PrevHash
	return nil
}

func (l *Logger) saveChainState() error {
	data, err := json.Marshal(chainState{Sequence: l.sequence, PrevHash: l.prevHash})
	if err != nil {
		return fmt.Errorf("audit: failed to marshal chain state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.path, chainFile), data, 0600); err != nil {
		return fmt.Errorf("audit: failed to save chain state: %w", err)
	}
	return nil
}

// Verify walks every log file in order and checks sequence numbers, chain
// links and record HMACs.
func (l *Logger) Verify() (*VerifyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hmacKey == nil {
		return nil, ErrKeyNotSet
	}

	events, err := l.readAll()
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Valid: true, RecordsTotal: len(events)}
	prev := genesis
	var seq int64 = 1

	for i := range events {
		event := &events[i]

		if event.Chain.Sequence != seq {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"sequence gap at record %s: expected %d, got %d", event.ID, seq, event.Chain.Sequence))
		}
		if event.Chain.PrevHash != prev {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"chain broken at record %s", event.ID))
		}
		if !hmac.Equal([]byte(event.Chain.HMAC), []byte(l.sum(recordData(event)))) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"HMAC mismatch at record %s: possible tampering", event.ID))
		}

		prev = event.Chain.HMAC
		seq = event.Chain.Sequence + 1
	}

	return result, nil
}

// ListEvents returns recorded events, oldest first. A positive limit keeps
// only the most recent events; a non-zero since drops events at or before it.
func (l *Logger) ListEvents(limit int, since time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readAll()
	if err != nil {
		return nil, err
	}

	if !since.IsZero() {
		filtered := events[:0]
		for _, event := range events {
			ts, err := time.Parse(time.RFC3339Nano, event.Timestamp)
			if err != nil {
				continue
			}
			if ts.After(since) {
				filtered = append(filtered, event)
			}
		}
		events = filtered
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// readAll reads every monthly file. File names sort chronologically.
func (l *Logger) readAll() ([]Event, error) {
	files, err := filepath.Glob(filepath.Join(l.path, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("audit: failed to list log files: %w", err)
	}
	sort.Strings(files)

	events := []Event{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("audit: failed to read %s: %w", file, err)
		}
		for n, line := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var event Event
			if err := json.Unmarshal(line, &event); err != nil {
				return nil, fmt.Errorf("audit: %s line %d: %w", filepath.Base(file), n+1, err)
			}
			events = append(events, event)
		}
	}
	return events, nil
}

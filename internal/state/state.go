// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
)

// DefaultSessionPath returns the session file inside stateDir.
func DefaultSessionPath(stateDir string) string {
	return filepath.Join(stateDir, "session.json")
}

// SaveSession atomically saves the session to disk with integrity validation.
// It uses a write-to-temp-and-rename pattern to ensure atomicity.
func SaveSession(st *SessionState, path string) error {
	st.Version = CurrentVersion
	if st.SavedAt.IsZero() {
		st.SavedAt = time.Now().UTC()
	}

	checksum, err := calculateChecksum(st)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	st.Checksum = checksum

	if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o700); mkdirErr != nil {
		return fmt.Errorf("failed to create state directory: %w", mkdirErr)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tempFile := path + ".tmp"
	if writeErr := writeSynced(tempFile, data); writeErr != nil {
		_ = os.Remove(tempFile)
		return writeErr
	}

	// Atomic rename
	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// writeSynced writes data with restricted permissions and flushes it to disk.
func writeSynced(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write temporary session file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return nil
}

// LoadSession reads and validates the session file. A missing file yields an
// error wrapping errors.ErrNoSession.
func LoadSession(path string) (*SessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, trackerrors.ErrNoSession)
		}
		return nil, fmt.Errorf("failed to read session file %s: %w", path, err)
	}

	var st SessionState
	if unmarshalErr := json.Unmarshal(data, &st); unmarshalErr != nil {
		return nil, fmt.Errorf("session file is corrupted (invalid JSON): %w", unmarshalErr)
	}

	if st.Version != CurrentVersion {
		return nil, fmt.Errorf("session file version (%d) is incompatible with current version (%d)",
			st.Version, CurrentVersion)
	}

	calculated, err := calculateChecksum(&st)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum for validation: %w", err)
	}
	if st.Checksum != calculated {
		return nil, fmt.Errorf("session file is corrupted (checksum mismatch)")
	}

	return &st, nil
}

// DeleteSession removes the session file. A missing file is not an error.
func DeleteSession(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// calculateChecksum computes the SHA256 hash of the state content.
// The checksum field itself is excluded from the calculation.
func calculateChecksum(st *SessionState) (string, error) {
	stateCopy := *st
	stateCopy.Checksum = ""

	data, err := json.Marshal(stateCopy)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// FileStore keeps the last-used handle in a session file.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// LoadHandle returns the persisted handle, or "" when none was saved.
func (s *FileStore) LoadHandle() (string, error) {
	st, err := LoadSession(s.path)
	if errors.Is(err, trackerrors.ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return st.LastHandle, nil
}

// SaveHandle persists handle.
func (s *FileStore) SaveHandle(handle string) error {
	return SaveSession(&SessionState{LastHandle: handle}, s.path)
}

// ClearHandle removes the persisted handle.
func (s *FileStore) ClearHandle() error {
	return DeleteSession(s.path)
}

// Package deck persists decks as JSON documents per user. The format
// is a plain load/save/export/import contract; export and import move
// the same serialization as one blob.
package deck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deckgen/deckgen/pkg/logger"
	"github.com/deckgen/deckgen/pkg/models"
)

type Store struct {
	baseDir string
	log     *logger.Logger
}

func NewStore(baseDir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{baseDir: baseDir, log: log}, nil
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.baseDir, userID+".json")
}

// LoadDecks returns the user's decks; a user with no file yet has no
// decks, not an error.
func (s *Store) LoadDecks(userID string) ([]models.Deck, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read decks for %s: %w", userID, err)
	}

	var decks []models.Deck
	if err := json.Unmarshal(data, &decks); err != nil {
		return nil, fmt.Errorf("failed to parse decks for %s: %w", userID, err)
	}
	return decks, nil
}

func (s *Store) SaveDecks(userID string, decks []models.Deck) error {
	data, err := json.MarshalIndent(decks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize decks: %w", err)
	}

	tmp := s.path(userID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write decks: %w", err)
	}
	if err := os.Rename(tmp, s.path(userID)); err != nil {
		return fmt.Errorf("failed to replace decks file: %w", err)
	}

	s.log.Debug("Saved %d decks for %s", len(decks), userID)
	return nil
}

// ExportBackup returns the user's whole deck set as one serialized
// blob.
func (s *Store) ExportBackup(userID string) ([]byte, error) {
	decks, err := s.LoadDecks(userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(decks, "", "  ")
}

// ImportBackup replaces the user's decks with the blob's content and
// returns the imported set.
func (s *Store) ImportBackup(userID string, blob []byte) ([]models.Deck, error) {
	var decks []models.Deck
	if err := json.Unmarshal(blob, &decks); err != nil {
		return nil, fmt.Errorf("failed to parse backup: %w", err)
	}
	if err := s.SaveDecks(userID, decks); err != nil {
		return nil, err
	}
	return decks, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/mapelo/forecast-api/internal/models"
)

var tournamentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// FileTournaments loads tournament configs from <dir>/<id>.yaml
type FileTournaments struct {
	dir string
}

func NewFileTournaments(dir string) *FileTournaments {
	return &FileTournaments{dir: dir}
}

func (f *FileTournaments) Tournament(_ context.Context, id string) (*models.TournamentConfig, error) {
	if !tournamentIDPattern.MatchString(id) {
		return nil, fmt.Errorf("tournament %q: %w", id, ErrNotFound)
	}

	raw, err := os.ReadFile(filepath.Join(f.dir, id+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("tournament %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return ParseTournament(raw, id)
}

// ParseTournament decodes a YAML tournament config. The id defaults to fallbackID.
func ParseTournament(raw []byte, fallbackID string) (*models.TournamentConfig, error) {
	var cfg models.TournamentConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse tournament %q: %w", fallbackID, err)
	}
	if cfg.ID == "" {
		cfg.ID = fallbackID
	}
	return &cfg, nil
}

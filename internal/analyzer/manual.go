package analyzer

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/apperr"
	"github.com/fluxbase-eu/pageweight/internal/collect"
)

// ManualService manages the manual collection estimates attached to a
// project. All mutations validate before touching state, so a rejected
// call leaves the stored set unchanged. Safe for concurrent use.
type ManualService struct {
	mu      sync.Mutex
	entries []collect.ManualEstimate
}

// NewManualService creates an empty service.
func NewManualService() *ManualService {
	return &ManualService{}
}

// Add stores a new estimate and returns it with a generated ID.
func (s *ManualService) Add(entry collect.ManualEstimate) (collect.ManualEstimate, error) {
	if err := validateEstimate(entry); err != nil {
		return collect.ManualEstimate{}, err
	}
	entry.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if strings.EqualFold(existing.CollectionName, entry.CollectionName) {
			return collect.ManualEstimate{}, apperr.Newf(apperr.KindValidation, "manual.Add",
				"estimate for collection %q already exists", entry.CollectionName)
		}
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

// Update replaces the estimate with the given ID.
func (s *ManualService) Update(entry collect.ManualEstimate) error {
	if entry.ID == "" {
		return apperr.New(apperr.KindValidation, "manual.Update", "estimate id is required")
	}
	if err := validateEstimate(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.entries {
		if existing.ID == entry.ID {
			s.entries[i] = entry
			return nil
		}
	}
	return apperr.Newf(apperr.KindNotFound, "manual.Update", "no estimate with id %q", entry.ID)
}

// Remove deletes the estimate with the given ID. Removing an unknown ID is
// a no-op so callers can retry deletions safely.
func (s *ManualService) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.entries {
		if existing.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
	log.Warn().Str("id", id).Msg("Manual estimate not found, nothing removed")
}

// List returns a copy of the stored estimates in insertion order.
func (s *ManualService) List() []collect.ManualEstimate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]collect.ManualEstimate(nil), s.entries...)
}

func validateEstimate(entry collect.ManualEstimate) error {
	const op = "manual.validate"
	if strings.TrimSpace(entry.CollectionName) == "" {
		return apperr.New(apperr.KindValidation, op, "collection name is required")
	}
	if entry.ImageCount <= 0 {
		return apperr.New(apperr.KindValidation, op, "image count must be positive")
	}
	if entry.AvgWidth <= 0 || entry.AvgHeight <= 0 {
		return apperr.New(apperr.KindValidation, op, "average dimensions must be positive")
	}
	return nil
}

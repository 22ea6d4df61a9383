// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrRunNotFound is returned when no run matches an id
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an id prefix matches several runs
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")
)

// minPrefix is the shortest id prefix accepted by lookups
const minPrefix = 4

// RunFilter narrows ListRuns. Zero fields do not filter.
type RunFilter struct {
	Limit   int
	Site    string
	Outcome string
	// Query matches the entry or final URL
	Query string
}

// RunStats counts stored runs by outcome
type RunStats struct {
	Total    int64 `json:"total"`
	Resolved int64 `json:"resolved"`
	Failed   int64 `json:"failed"`
	TimedOut int64 `json:"timedOut"`
}

// CreateRun stores run with its links and trail. A UUID is assigned when
// run has none, and link and step ordinals follow slice order.
func (s *Store) CreateRun(run *Run) error {
	if run.UUID == "" {
		run.UUID = uuid.NewString()
	}
	for i := range run.Links {
		run.Links[i].Ordinal = i
	}
	for i := range run.Trail {
		run.Trail[i].Ordinal = i
	}
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun returns the run whose UUID is id or starts with id, with links and
// trail loaded in order.
func (s *Store) GetRun(id string) (*Run, error) {
	uid, err := s.resolveID(id)
	if err != nil {
		return nil, err
	}
	var run Run
	result := s.db.
		Preload("Links", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal ASC") }).
		Preload("Trail", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal ASC") }).
		Where("uuid = ?", uid).First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", result.Error)
	}
	return &run, nil
}

// ListRuns returns runs newest first, with links loaded
func (s *Store) ListRuns(filter RunFilter) ([]Run, error) {
	var runs []Run
	db := s.db.Preload("Links", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal ASC") })
	if filter.Site != "" {
		db = db.Where("site = ?", filter.Site)
	}
	if filter.Outcome != "" && filter.Outcome != "all" {
		db = db.Where("outcome = ?", filter.Outcome)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		db = db.Where("(entry_url LIKE ? OR final_url LIKE ?)", pattern, pattern)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	if err := db.Order("created_at DESC").Order("id DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun deletes a run with its links and trail
func (s *Store) DeleteRun(id string) error {
	uid, err := s.resolveID(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var run Run
		if err := tx.Where("uuid = ?", uid).First(&run).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrRunNotFound, id)
			}
			return err
		}
		if err := tx.Where("run_id = ?", run.ID).Delete(&RunLink{}).Error; err != nil {
			return fmt.Errorf("failed to delete run links: %w", err)
		}
		if err := tx.Where("run_id = ?", run.ID).Delete(&RunStep{}).Error; err != nil {
			return fmt.Errorf("failed to delete run trail: %w", err)
		}
		return tx.Delete(&run).Error
	})
}

// Stats counts runs by outcome
func (s *Store) Stats() (*RunStats, error) {
	var rows []struct {
		Outcome string
		Count   int64
	}
	if err := s.db.Model(&Run{}).Select("outcome, COUNT(*) AS count").Group("outcome").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	stats := &RunStats{}
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Outcome {
		case OutcomeResolved:
			stats.Resolved = r.Count
		case OutcomeFailed:
			stats.Failed = r.Count
		case OutcomeTimedOut:
			stats.TimedOut = r.Count
		}
	}
	return stats, nil
}

// resolveID expands an id prefix to a full UUID
func (s *Store) resolveID(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) < minPrefix {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	if _, err := uuid.Parse(id); err == nil {
		return id, nil
	}
	var ids []string
	if err := s.db.Model(&Run{}).Where("uuid LIKE ?", id+"%").Limit(2).Pluck("uuid", &ids).Error; err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("%w: %s", ErrAmbiguousID, id)
}

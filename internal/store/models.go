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

// Run outcome constants, matching the engine's Outcome strings
const (
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
	OutcomeTimedOut = "timed_out"
)

// Run is one resolution of an entry URL
type Run struct {
	ID         uint      `gorm:"primaryKey"`
	UUID       string    `gorm:"uniqueIndex;not null"`
	EntryURL   string    `gorm:"not null;index"`
	FinalURL   string    `gorm:"type:text"`
	Site       string    `gorm:"index"`
	Outcome    string    `gorm:"not null;index"` // resolved, failed, timed_out
	Reason     string    `gorm:"type:text"`      // failure kind, empty unless failed
	Error      string    `gorm:"type:text"`
	Steps      int       `gorm:"not null;default:0"`
	DurationMs int64     `gorm:"not null;default:0"`
	Links      []RunLink `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	Trail      []RunStep `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt  int64     `gorm:"autoCreateTime;index"`
}

// RunLink is one link extracted from a run's terminal page
type RunLink struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    uint   `gorm:"not null;index"`
	Ordinal  int    `gorm:"not null"` // extraction order
	Label    string `gorm:"type:text"`
	URL      string `gorm:"not null"`
	Context  string `gorm:"type:text"`
	Position string `gorm:"type:text"` // layout region of the anchor
	Quality  string `gorm:"type:text"` // 480p, 720p, 1080p, 2160p or Other
}

// RunStep is one page of a run's trail
type RunStep struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       uint   `gorm:"not null;index"`
	Ordinal     int    `gorm:"not null"`
	URL         string `gorm:"not null"`
	Status      int    `gorm:"default:0"`
	Strategy    string `gorm:"type:text"`
	Action      string `gorm:"type:text"`
	Rendered    bool   `gorm:"default:false"`
	AtMs        int64  `gorm:"not null"` // unix milliseconds
	FirstByteMs int64  `gorm:"default:0"`
}

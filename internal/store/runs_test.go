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
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := newStoreWithPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func resolvedRun(entry string) *Run {
	return &Run{
		EntryURL: entry,
		FinalURL: "https://hubcloud.example/drive/1",
		Site:     "shortener",
		Outcome:  OutcomeResolved,
		Steps:    2,
		Links: []RunLink{
			{Label: "Download 1080p", URL: "https://gofile.io/d/a", Quality: "1080p"},
			{Label: "Download 720p", URL: "https://gofile.io/d/b", Quality: "720p"},
		},
		Trail: []RunStep{
			{URL: entry, Status: 200, AtMs: 1},
			{URL: "https://short.example/go", Status: 200, Strategy: "meta-refresh", Action: "follow https://short.example/go", AtMs: 2},
			{URL: "https://hubcloud.example/drive/1", Status: 200, Strategy: "form", Action: "submit POST https://hubcloud.example/drive/1", AtMs: 3},
		},
	}
}

func TestCreateAndGetRun(t *testing.T) {
	st := newTestStore(t)

	run := resolvedRun("https://short.example/a")
	if err := st.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	if run.UUID == "" || run.ID == 0 {
		t.Fatalf("Expected UUID and ID to be assigned, got %q %d", run.UUID, run.ID)
	}

	t.Run("FullUUID", func(t *testing.T) {
		got, err := st.GetRun(run.UUID)
		if err != nil {
			t.Fatalf("GetRun() failed: %v", err)
		}
		if got.EntryURL != run.EntryURL || got.Outcome != OutcomeResolved {
			t.Errorf("Unexpected run %+v", got)
		}
		if len(got.Links) != 2 || got.Links[0].Quality != "1080p" || got.Links[1].Ordinal != 1 {
			t.Errorf("Expected links in extraction order, got %+v", got.Links)
		}
		if len(got.Trail) != 3 || got.Trail[2].Strategy != "form" {
			t.Errorf("Expected trail in order, got %+v", got.Trail)
		}
	})

	t.Run("Prefix", func(t *testing.T) {
		got, err := st.GetRun(run.UUID[:8])
		if err != nil {
			t.Fatalf("GetRun() by prefix failed: %v", err)
		}
		if got.ID != run.ID {
			t.Errorf("Expected run %d, got %d", run.ID, got.ID)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := st.GetRun("ffffffff-ffff-ffff-ffff-ffffffffffff"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("Expected ErrRunNotFound, got %v", err)
		}
		if _, err := st.GetRun("ab"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("Expected ErrRunNotFound for a short prefix, got %v", err)
		}
	})
}

func TestGetRunAmbiguousPrefix(t *testing.T) {
	st := newTestStore(t)
	for _, id := range []string{"abcd0000-0000-4000-8000-000000000001", "abcd0000-0000-4000-8000-000000000002"} {
		run := resolvedRun("https://short.example/" + id)
		run.UUID = id
		if err := st.CreateRun(run); err != nil {
			t.Fatalf("CreateRun() failed: %v", err)
		}
	}
	if _, err := st.GetRun("abcd"); !errors.Is(err, ErrAmbiguousID) {
		t.Errorf("Expected ErrAmbiguousID, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	st := newTestStore(t)

	for i, entry := range []string{"https://short.example/1", "https://short.example/2", "https://filepress.example/3"} {
		run := resolvedRun(entry)
		if i == 2 {
			run.Site = "filepress"
			run.Outcome = OutcomeFailed
			run.Reason = "challenge_unsolved"
			run.Links = nil
		}
		if err := st.CreateRun(run); err != nil {
			t.Fatalf("CreateRun() failed: %v", err)
		}
	}

	t.Run("NewestFirst", func(t *testing.T) {
		runs, err := st.ListRuns(RunFilter{})
		if err != nil {
			t.Fatalf("ListRuns() failed: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("Expected 3 runs, got %d", len(runs))
		}
		if runs[0].EntryURL != "https://filepress.example/3" {
			t.Errorf("Expected newest run first, got %s", runs[0].EntryURL)
		}
		if len(runs[1].Links) != 2 {
			t.Errorf("Expected links to be loaded, got %d", len(runs[1].Links))
		}
	})

	t.Run("Limit", func(t *testing.T) {
		runs, err := st.ListRuns(RunFilter{Limit: 2})
		if err != nil {
			t.Fatalf("ListRuns() failed: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("Expected 2 runs, got %d", len(runs))
		}
	})

	t.Run("Filters", func(t *testing.T) {
		runs, err := st.ListRuns(RunFilter{Outcome: OutcomeFailed})
		if err != nil {
			t.Fatalf("ListRuns() failed: %v", err)
		}
		if len(runs) != 1 || runs[0].Site != "filepress" {
			t.Errorf("Expected the failed filepress run, got %+v", runs)
		}
		runs, err = st.ListRuns(RunFilter{Site: "shortener", Query: "/2"})
		if err != nil {
			t.Fatalf("ListRuns() failed: %v", err)
		}
		if len(runs) != 1 || runs[0].EntryURL != "https://short.example/2" {
			t.Errorf("Expected the second shortener run, got %+v", runs)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := st.Stats()
		if err != nil {
			t.Fatalf("Stats() failed: %v", err)
		}
		if stats.Total != 3 || stats.Resolved != 2 || stats.Failed != 1 || stats.TimedOut != 0 {
			t.Errorf("Unexpected stats %+v", stats)
		}
	})
}

func TestDeleteRun(t *testing.T) {
	st := newTestStore(t)

	run := resolvedRun("https://short.example/a")
	if err := st.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}

	t.Run("DeleteExistingRun_Succeeds", func(t *testing.T) {
		if err := st.DeleteRun(run.UUID); err != nil {
			t.Fatalf("DeleteRun() failed: %v", err)
		}
		if _, err := st.GetRun(run.UUID); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("Expected run to be gone, got %v", err)
		}
		var links, steps int64
		st.DB().Model(&RunLink{}).Where("run_id = ?", run.ID).Count(&links)
		st.DB().Model(&RunStep{}).Where("run_id = ?", run.ID).Count(&steps)
		if links != 0 || steps != 0 {
			t.Errorf("Expected links and trail to be deleted, got %d links %d steps", links, steps)
		}
	})

	t.Run("DeleteNonExistentRun_ReturnsError", func(t *testing.T) {
		err := st.DeleteRun(run.UUID)
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("Expected ErrRunNotFound, got %v", err)
		}
	})
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "linkwalk.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer st.Close()
	if err := st.CreateRun(resolvedRun("https://short.example/a")); err != nil {
		t.Errorf("CreateRun() failed: %v", err)
	}
}

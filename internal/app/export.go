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

package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/kennygrant/sanitize"
)

// Export formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportRun writes a stored run to outputDir and returns the file path. The
// file is named after the entry host and the run id.
func (a *App) ExportRun(id, format, outputDir string) (string, error) {
	if format != FormatJSON && format != FormatCSV {
		return "", fmt.Errorf("unknown export format %q (want json or csv)", format)
	}
	detail, err := a.GetRun(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %v", err)
	}

	filePath := filepath.Join(outputDir, exportFileName(detail.RunInfo, format))
	f, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if format == FormatJSON {
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(detail)
	} else {
		err = writeLinksCSV(f, detail.Links)
	}
	if err != nil {
		return "", err
	}
	return filePath, nil
}

// exportFileName builds "<entry host>-<short id>.<format>" safe for any
// filesystem
func exportFileName(run types.RunInfo, format string) string {
	host := "run"
	if u, err := url.Parse(run.EntryURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return sanitize.BaseName(host+"-"+id) + "." + format
}

func writeLinksCSV(f *os.File, links []types.LinkInfo) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"#", "Quality", "Label", "URL", "Context", "Position"}); err != nil {
		return err
	}
	for i, l := range links {
		row := []string{strconv.Itoa(i + 1), l.Quality, l.Label, l.URL, l.Context, l.Position}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

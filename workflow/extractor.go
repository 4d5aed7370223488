package workflow

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/mmdatafocus/adaudit_backend/config"
)

// gidColumnHeader identifies the GID column in the AD export sheets.
// Matching is case-insensitive and tolerates surrounding text because
// the export job has shipped several header variants over the years.
const gidColumnHeader = "matchedqueryelements"

// fallbackGidColumn is the zero-based column the export job has always
// placed the GID in when the header row is unrecognizable.
const fallbackGidColumn = 3

type GidRecord struct {
	Gid        string
	SourceFile string
	Date       string
}

type ExtractResult struct {
	Records        []GidRecord
	ProcessedFiles []string
	FileGidCounts  map[string]int
	TotalGids      int
	UniqueCount    int
}

// LocateGidColumn returns the zero-based index of the GID column in a
// header row, or -1 when the row cannot hold one. Headers are matched
// by substring so "MatchedQueryElements (GID)" still resolves.
func LocateGidColumn(headers []string) int {
	for i, h := range headers {
		if strings.Contains(strings.ToLower(strings.TrimSpace(h)), gidColumnHeader) {
			return i
		}
	}
	if len(headers) > fallbackGidColumn {
		return fallbackGidColumn
	}
	return -1
}

// ExtractGids parses every staged spreadsheet in workingDir and
// collects the GID values. A file that cannot be opened or parsed is
// logged and skipped; the run continues with the remaining files.
func ExtractGids(logger *logrus.Logger, analysisId int, workingDir string) (*ExtractResult, error) {
	var files []string
	for _, ext := range exportExtensions {
		matches, err := filepath.Glob(filepath.Join(workingDir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no staged spreadsheets in %s", workingDir)
	}
	sort.Strings(files)

	result := &ExtractResult{FileGidCounts: map[string]int{}}
	seen := map[string]struct{}{}

	for i, path := range files {
		name := filepath.Base(path)
		PublishProgress(analysisId, StepProcessing, (i+1)*100/len(files),
			fmt.Sprintf("Extracting GIDs from %s", name), map[string]interface{}{
				"totalGids": result.TotalGids,
			})

		records, err := extractGidsFromFile(path)
		if err != nil {
			config.LogWarn(logger, "extractor.go", "ExtractGids", name, err)
			continue
		}
		if len(records) == 0 {
			continue
		}
		result.Records = append(result.Records, records...)
		result.ProcessedFiles = append(result.ProcessedFiles, name)
		result.FileGidCounts[name] = len(records)
		result.TotalGids += len(records)
		for _, r := range records {
			seen[r.Gid] = struct{}{}
		}
	}

	result.UniqueCount = len(seen)
	return result, nil
}

func extractGidsFromFile(path string) ([]GidRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := LocateGidColumn(rows[0])
	if col < 0 {
		return nil, fmt.Errorf("no GID column in header row")
	}

	name := filepath.Base(path)
	date := dateFromFilename(name)
	var records []GidRecord
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		gid := strings.TrimSpace(row[col])
		if gid == "" {
			continue
		}
		records = append(records, GidRecord{Gid: gid, SourceFile: name, Date: date})
	}
	return records, nil
}

// dateFromFilename recovers the export date from names like
// EventExport_2025-11-03.xlsx.
func dateFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.TrimPrefix(base, ExportFilePrefix)
}

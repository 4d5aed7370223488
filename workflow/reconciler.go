package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmdatafocus/adaudit_backend/models"
)

type MissingGid struct {
	Gid         string
	SourceFiles []string
}

type ReconcileResult struct {
	TotalInSource int
	TotalInSystem int
	MatchedCount  int
	MissingCount  int
	UniqueGids    []string
	SourcesByGid  map[string][]string
	Missing       []MissingGid
}

// Reconcile computes the set difference between the GIDs extracted
// from the AD exports and the system GID set. It is a pure function:
// the same records and system set always produce the same result, so
// re-running a comparison is safe.
func Reconcile(records []GidRecord, systemSet map[string]struct{}) *ReconcileResult {
	sources := map[string]map[string]struct{}{}
	for _, r := range records {
		if sources[r.Gid] == nil {
			sources[r.Gid] = map[string]struct{}{}
		}
		sources[r.Gid][r.SourceFile] = struct{}{}
	}

	result := &ReconcileResult{
		TotalInSource: len(records),
		TotalInSystem: len(systemSet),
		SourcesByGid:  make(map[string][]string, len(sources)),
	}

	for gid, fileSet := range sources {
		files := make([]string, 0, len(fileSet))
		for f := range fileSet {
			files = append(files, f)
		}
		sort.Strings(files)
		result.SourcesByGid[gid] = files
		result.UniqueGids = append(result.UniqueGids, gid)
	}
	sort.Strings(result.UniqueGids)

	for _, gid := range result.UniqueGids {
		if _, ok := systemSet[gid]; ok {
			result.MatchedCount++
			continue
		}
		result.Missing = append(result.Missing, MissingGid{
			Gid:         gid,
			SourceFiles: result.SourcesByGid[gid],
		})
	}
	result.MissingCount = len(result.Missing)
	return result
}

// DiscrepancyRows converts a reconcile result into the rows persisted
// for the run. Pairs with models.ReplaceDiscrepancies so a re-run
// replaces rather than appends.
func DiscrepancyRows(analysisId int, result *ReconcileResult) []models.GidDiscrepancy {
	rows := make([]models.GidDiscrepancy, 0, len(result.Missing))
	for _, m := range result.Missing {
		rows = append(rows, models.GidDiscrepancy{
			AnalysisId:      analysisId,
			Gid:             m.Gid,
			DiscrepancyType: models.DiscrepancyMissingInSystem,
			SourceFile:      strings.Join(m.SourceFiles, ","),
			Details:         fmt.Sprintf("GID '%s' appears in the AD exports but has no matching system record", m.Gid),
		})
	}
	return rows
}

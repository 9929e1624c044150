package detect

import (
	"sort"
	"time"

	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/scanner"
	"github.com/jsphweid/scoredex/util"
)

type Kind int

const (
	Unchanged Kind = iota
	MembershipChanged
	ContentModified
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case MembershipChanged:
		return "membership changed"
	case ContentModified:
		return "content modified"
	}
	return "unknown"
}

type Verdict struct {
	Kind Kind
	// titles whose files were modified, for ContentModified
	Titles []string
	// paths present on one side only, for MembershipChanged
	Added   []string
	Removed []string
	// set when there was no catalog to compare against
	NoCatalog bool
}

// Stale reports whether the catalog must be rebuilt.
func (v Verdict) Stale() bool {
	return v.Kind != Unchanged
}

// Detect compares the scanned primary files with the files the catalog was
// built from. Path sets are compared first; modification times are only
// looked at when membership matches.
func Detect(primaries []model.FileIdentity, catalog *model.Catalog) Verdict {
	if catalog == nil {
		return Verdict{Kind: MembershipChanged, Added: model.IdentityPaths(primaries), NoCatalog: true}
	}

	recorded := catalog.Identities()
	scanned := model.IdentityPaths(primaries)
	if !util.SortedEqual(scanned, model.IdentityPaths(recorded)) {
		added, removed := diffPaths(scanned, model.IdentityPaths(recorded))
		return Verdict{Kind: MembershipChanged, Added: added, Removed: removed}
	}

	changed := diffTimes(modTimes(primaries), modTimes(recorded))
	if len(changed) == 0 {
		return Verdict{Kind: Unchanged}
	}

	byPath := catalog.ByPath()
	titles := make([]string, 0, len(changed))
	for _, path := range changed {
		if r, ok := byPath[path]; ok {
			titles = append(titles, r.Title)
		} else {
			titles = append(titles, scanner.Title(path))
		}
	}
	sort.Strings(titles)
	return Verdict{Kind: ContentModified, Titles: util.Unique(titles)}
}

func modTimes(ids []model.FileIdentity) map[string]time.Time {
	res := make(map[string]time.Time, len(ids))
	for _, id := range ids {
		res[id.Path] = id.ModTime
	}
	return res
}

// diffTimes returns the paths whose times differ, sorted.
func diffTimes(a, b map[string]time.Time) []string {
	var res []string
	for path, t := range a {
		if other, ok := b[path]; !ok || !other.Equal(t) {
			res = append(res, path)
		}
	}
	for path := range b {
		if _, ok := a[path]; !ok {
			res = append(res, path)
		}
	}
	sort.Strings(res)
	return res
}

func diffPaths(scanned, recorded []string) (added, removed []string) {
	inScan := make(map[string]bool, len(scanned))
	for _, p := range scanned {
		inScan[p] = true
	}
	inCatalog := make(map[string]bool, len(recorded))
	for _, p := range recorded {
		inCatalog[p] = true
		if !inScan[p] {
			removed = append(removed, p)
		}
	}
	for _, p := range scanned {
		if !inCatalog[p] {
			added = append(added, p)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

package family

import (
	"strings"

	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/scanner"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Orphan is a variant file whose canonical title has no standalone file.
type Orphan struct {
	Path  string
	Title string
	Label string
}

// Conflict is a file that lost its slot to an earlier path with the same key.
type Conflict struct {
	Title string
	Label string
	Kept  string
	Path  string
}

type Result struct {
	Records map[string]*model.ScoreRecord
	Orphans []Orphan
	// primaries whose title was already taken
	Shadowed []model.FileIdentity
	// variants whose label was already taken within the family
	Conflicts []Conflict
}

// Split breaks a variant title once on the delimiter and normalizes the
// label to title case.
func Split(title, delimiter string) (canonical, label string, ok bool) {
	canonical, label, ok = strings.Cut(title, delimiter)
	if !ok {
		return title, "", false
	}
	return canonical, Label(label), true
}

// Label title-cases a variant label.
func Label(label string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(label))
}

// Group builds one skeleton record per canonical title and files every
// variant under its family. Files must be sorted by path so that the first
// path wins on collisions.
func Group(files []model.FileIdentity, delimiter string) Result {
	res := Result{Records: make(map[string]*model.ScoreRecord)}

	// canonical records first; directory order does not put them ahead of
	// their variants
	var variants []model.FileIdentity
	for _, f := range files {
		title := scanner.Title(f.Path)
		if strings.Contains(title, delimiter) {
			variants = append(variants, f)
			continue
		}
		if prev, ok := res.Records[title]; ok {
			res.Shadowed = append(res.Shadowed, f)
			res.Conflicts = append(res.Conflicts, Conflict{Title: title, Kept: prev.FileInfo.Path, Path: f.Path})
			continue
		}
		res.Records[title] = &model.ScoreRecord{
			Title: title,
			FileInfo: model.FileInfo{
				Path:       f.Path,
				CreatedAt:  f.CreatedAt,
				ModifiedAt: f.ModTime,
			},
		}
	}

	for _, f := range variants {
		canonical, label, _ := Split(scanner.Title(f.Path), delimiter)
		rec, ok := res.Records[canonical]
		if !ok {
			res.Orphans = append(res.Orphans, Orphan{Path: f.Path, Title: canonical, Label: label})
			continue
		}
		if kept, taken := rec.FileInfo.Family[label]; taken {
			res.Conflicts = append(res.Conflicts, Conflict{Title: canonical, Label: label, Kept: kept, Path: f.Path})
			continue
		}
		if rec.FileInfo.Family == nil {
			rec.FileInfo.Family = make(map[string]string)
		}
		rec.FileInfo.Family[label] = f.Path
	}
	return res
}

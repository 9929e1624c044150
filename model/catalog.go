package model

import (
	"sort"
	"time"

	"github.com/jsphweid/scoredex/util"
)

// Catalog is the persisted snapshot: every record keyed by canonical title.
type Catalog struct {
	SchemaVersion int                     `json:"schemaVersion"`
	RunID         string                  `json:"runId"`
	BuiltAt       time.Time               `json:"builtAt"`
	Records       map[string]*ScoreRecord `json:"records"`
	// primary files whose title was already taken by another path
	Shadowed map[string]time.Time `json:"shadowed,omitempty"`
}

func NewCatalog() *Catalog {
	return &Catalog{
		Records:  make(map[string]*ScoreRecord),
		Shadowed: make(map[string]time.Time),
	}
}

func (c *Catalog) Titles() []string {
	return util.GetKeys(c.Records)
}

// Identities lists every primary file the catalog was built from, sorted by
// path.
func (c *Catalog) Identities() []FileIdentity {
	res := make([]FileIdentity, 0, len(c.Records)+len(c.Shadowed))
	for _, r := range c.Records {
		res = append(res, FileIdentity{Path: r.FileInfo.Path, ModTime: r.FileInfo.ModifiedAt})
	}
	for path, mod := range c.Shadowed {
		res = append(res, FileIdentity{Path: path, ModTime: mod})
	}
	SortIdentities(res)
	return res
}

// ByPath indexes records by their primary path.
func (c *Catalog) ByPath() map[string]*ScoreRecord {
	res := make(map[string]*ScoreRecord, len(c.Records))
	for _, r := range c.Records {
		res[r.FileInfo.Path] = r
	}
	return res
}

// FileIdentity is the (path, modification time) pair used for change
// detection.
type FileIdentity struct {
	Path      string
	ModTime   time.Time
	CreatedAt time.Time
}

func SortIdentities(ids []FileIdentity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Path < ids[j].Path })
}

func IdentityPaths(ids []FileIdentity) []string {
	res := make([]string, len(ids))
	for i, id := range ids {
		res[i] = id.Path
	}
	return res
}

package family

import (
	"testing"
	"time"

	"github.com/jsphweid/scoredex/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(paths ...string) []model.FileIdentity {
	res := make([]model.FileIdentity, len(paths))
	for i, p := range paths {
		res[i] = model.FileIdentity{Path: p, ModTime: time.Unix(int64(i), 0)}
	}
	model.SortIdentities(res)
	return res
}

func TestGroupsVariantIntoFamily(t *testing.T) {
	res := Group(ids("/c/lullaby - piano.xml", "/c/lullaby.xml"), " - ")

	assert := assert.New(t)
	require.Len(t, res.Records, 1)
	rec := res.Records["lullaby"]
	require.NotNil(t, rec)
	assert.Equal("/c/lullaby.xml", rec.FileInfo.Path)
	assert.Equal(map[string]string{"Piano": "/c/lullaby - piano.xml"}, rec.FileInfo.Family)
	assert.NotContains(res.Records, "lullaby - piano")
	assert.Empty(res.Orphans)
}

func TestOrphanVariantIsNeverPromoted(t *testing.T) {
	res := Group(ids("/c/solo - duet.xml"), " - ")

	assert := assert.New(t)
	assert.Empty(res.Records)
	assert.Equal([]Orphan{{Path: "/c/solo - duet.xml", Title: "solo", Label: "Duet"}}, res.Orphans)
}

func TestVariantSplitsOnce(t *testing.T) {
	res := Group(ids("/c/mass.xml", "/c/mass - kyrie - organ.xml"), " - ")
	assert.Equal(t, map[string]string{"Kyrie - Organ": "/c/mass - kyrie - organ.xml"}, res.Records["mass"].FileInfo.Family)
}

func TestDuplicateTitlesFirstPathWins(t *testing.T) {
	res := Group(ids("/c/b/hymn.mid", "/c/a/hymn.xml"), " - ")

	assert := assert.New(t)
	assert.Equal("/c/a/hymn.xml", res.Records["hymn"].FileInfo.Path)
	assert.Equal([]string{"/c/b/hymn.mid"}, model.IdentityPaths(res.Shadowed))
	require.Len(t, res.Conflicts, 1)
	assert.Equal("/c/a/hymn.xml", res.Conflicts[0].Kept)
}

func TestDuplicateVariantLabels(t *testing.T) {
	res := Group(ids("/c/hymn.xml", "/c/hymn - piano.xml", "/c/hymn - Piano.mid"), " - ")

	assert := assert.New(t)
	assert.Equal(map[string]string{"Piano": "/c/hymn - Piano.mid"}, res.Records["hymn"].FileInfo.Family)
	require.Len(t, res.Conflicts, 1)
	assert.Equal("/c/hymn - piano.xml", res.Conflicts[0].Path)
}

func TestGroupIsDeterministic(t *testing.T) {
	files := ids("/c/x - string quartet.xml", "/c/x.xml", "/c/y.mid")
	first := Group(files, " - ")
	second := Group(files, " - ")
	assert.Equal(t, first, second)
	assert.Contains(t, first.Records["x"].FileInfo.Family, "String Quartet")
}

func TestRecordsCarryTimestamps(t *testing.T) {
	created := time.Unix(10, 0)
	modified := time.Unix(20, 0)
	res := Group([]model.FileIdentity{{Path: "/c/a.xml", CreatedAt: created, ModTime: modified}}, " - ")

	assert := assert.New(t)
	assert.Equal(created, res.Records["a"].FileInfo.CreatedAt)
	assert.Equal(modified, res.Records["a"].FileInfo.ModifiedAt)
	assert.Nil(res.Records["a"].FileInfo.Family)
}

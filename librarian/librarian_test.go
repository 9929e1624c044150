package librarian

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsphweid/scoredex/catalog"
	"github.com/jsphweid/scoredex/constants"
	"github.com/jsphweid/scoredex/detect"
	"github.com/jsphweid/scoredex/extract"
	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/scanner"
	"github.com/jsphweid/scoredex/score/scoretest"
)

type fixture struct {
	corpus  string
	catalog string
	lib     *Librarian
}

func newFixture(t *testing.T, incremental bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		corpus:  filepath.Join(dir, "corpus"),
		catalog: filepath.Join(dir, "data", constants.CatalogFilename),
	}
	require.NoError(t, os.MkdirAll(f.corpus, 0o755))
	lib, err := New(Options{
		Corpus:      scanner.Options{Root: f.corpus},
		Catalog:     catalog.Options{Path: f.catalog, MirrorPath: filepath.Join(dir, "data", constants.MirrorFilename)},
		Pipeline:    pipeline.Options{Workers: 2, RecordTimeout: time.Minute},
		Incremental: incremental,
		Extractors:  extract.Default(nil),
	}, logging.NewNop())
	require.NoError(t, err)
	f.lib = lib
	return f
}

func (f *fixture) write(t *testing.T, name string, notes ...string) string {
	t.Helper()
	return scoretest.WriteFile(t, f.corpus, name, scoretest.Melody(notes...).XML())
}

func (f *fixture) sync(t *testing.T, opts SyncOptions) Report {
	t.Helper()
	report, err := f.lib.Sync(context.Background(), opts)
	require.NoError(t, err)
	return report
}

func (f *fixture) load(t *testing.T) *model.Catalog {
	t.Helper()
	c, err := f.lib.Load()
	require.NoError(t, err)
	return c
}

func touch(t *testing.T, path string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, when, when))
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "waltz.xml", "C4", "E4", "G4", "C5")
	f.write(t, "march.xml", "G4", "G4", "D5", "B4")

	first := f.sync(t, SyncOptions{})
	assert := assert.New(t)
	assert.True(first.Rebuilt)
	assert.True(first.Verdict.NoCatalog)
	assert.Equal(CatalogMissing, first.CatalogState)
	assert.Equal(2, first.Records)

	before, err := os.ReadFile(f.catalog)
	require.NoError(t, err)

	second := f.sync(t, SyncOptions{})
	assert.Equal(detect.Unchanged, second.Verdict.Kind)
	assert.False(second.Rebuilt)
	after, err := os.ReadFile(f.catalog)
	require.NoError(t, err)
	assert.Equal(before, after)
}

func TestVariantJoinsItsFamily(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "lullaby.xml", "E4", "G4")
	piano := f.write(t, "lullaby - piano.xml", "C3", "G3")

	f.sync(t, SyncOptions{})
	c := f.load(t)

	assert := assert.New(t)
	assert.Equal([]string{"lullaby"}, c.Titles())
	assert.Equal(map[string]string{"Piano": piano}, c.Records["lullaby"].FileInfo.Family)
}

func TestOrphanVariantCreatesNoRecord(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "solo - duet.xml", "C4", "D4")

	report := f.sync(t, SyncOptions{})
	assert := assert.New(t)
	require.Len(t, report.Orphans, 1)
	assert.Equal("solo", report.Orphans[0].Title)
	assert.Equal("Duet", report.Orphans[0].Label)
	assert.Empty(f.load(t).Records)
}

func TestModifiedFileIsReextracted(t *testing.T) {
	f := newFixture(t, true)
	x := f.write(t, "x.xml", "C4", "D4")
	f.write(t, "y.xml", "E4", "F4")
	touch(t, x, time.Unix(1_600_000_000, 0))
	f.sync(t, SyncOptions{})

	// rewrite x with new content and a new modification time
	scoretest.WriteFile(t, f.corpus, "x.xml", scoretest.Melody("C4", "D4", "E4").XML())
	touch(t, x, time.Unix(1_700_000_000, 0))

	report := f.sync(t, SyncOptions{})
	assert := assert.New(t)
	assert.Equal(detect.ContentModified, report.Verdict.Kind)
	assert.Equal([]string{"x"}, report.Verdict.Titles)
	assert.True(report.Rebuilt)
	assert.Equal(1, report.Reused)
	assert.Equal(1, report.Extracted)

	c := f.load(t)
	assert.Equal([]string{"C", "D", "E"}, c.Records["x"].Pitch.LetterNames.Value.All["Part 1"])
	assert.True(c.Records["x"].FileInfo.ModifiedAt.Equal(time.Unix(1_700_000_000, 0)))
}

func TestFullSyncReextractsEverything(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "x.xml", "C4", "D4")
	f.write(t, "y.xml", "E4", "F4")
	f.sync(t, SyncOptions{})

	report := f.sync(t, SyncOptions{Full: true})
	assert := assert.New(t)
	assert.True(report.Rebuilt)
	assert.Zero(report.Reused)
	assert.Equal(2, report.Extracted)
	assert.Len(f.lib.store.Backups(), 1)
}

func TestIncrementalOutputMatchesWholesaleRebuild(t *testing.T) {
	inc := newFixture(t, true)
	whole := newFixture(t, false)
	for _, f := range []*fixture{inc, whole} {
		a := f.write(t, "a.xml", "C4", "G4")
		f.write(t, "b.xml", "D4", "A4")
		touch(t, a, time.Unix(1_600_000_000, 0))
		f.sync(t, SyncOptions{})
		f.write(t, "c.xml", "E4", "B4")
		f.sync(t, SyncOptions{})
	}

	ic, wc := inc.load(t), whole.load(t)
	require.Equal(t, ic.Titles(), wc.Titles())
	for _, title := range ic.Titles() {
		assert.Equal(t, wc.Records[title].Pitch, ic.Records[title].Pitch, title)
		assert.Equal(t, wc.Records[title].Rhythm, ic.Records[title].Rhythm, title)
		assert.Equal(t, wc.Records[title].Other, ic.Records[title].Other, title)
	}
}

func TestDryRunLeavesCatalogAlone(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "x.xml", "C4", "D4")

	report, err := f.lib.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, detect.MembershipChanged, report.Verdict.Kind)
	assert.False(t, report.Rebuilt)
	assert.NoFileExists(t, f.catalog)
}

func TestMissingCorpusLeavesPriorCatalog(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "x.xml", "C4", "D4")
	f.sync(t, SyncOptions{})
	before, err := os.ReadFile(f.catalog)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(f.corpus))
	_, err = f.lib.Sync(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, scanner.ErrCorpusUnavailable)

	after, err := os.ReadFile(f.catalog)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCorruptCatalogIsRebuilt(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "x.xml", "C4", "D4")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.catalog), 0o755))
	require.NoError(t, os.WriteFile(f.catalog, []byte("not a catalog"), 0o644))

	report := f.sync(t, SyncOptions{})
	assert.Equal(t, CatalogCorrupt, report.CatalogState)
	assert.True(t, report.Rebuilt)
	assert.Equal(t, []string{"x"}, f.load(t).Titles())
}

func TestUnparsableFileStillPersists(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "good.xml", "C4", "D4")
	scoretest.WriteFile(t, f.corpus, "broken.xml", "<score-partwise><part")

	report := f.sync(t, SyncOptions{})
	assert := assert.New(t)
	assert.True(report.Rebuilt)
	assert.Equal([]string{"broken"}, report.Summary.FailedTitles())

	c := f.load(t)
	assert.Len(c.Records["broken"].Unavailable(), len(model.FeatureKeys)-1)
	assert.Empty(c.Records["good"].Unavailable())

	// failed records are retried on the next rebuild
	f.write(t, "new.xml", "E4", "F4")
	report = f.sync(t, SyncOptions{})
	assert.Equal(1, report.Reused)
	assert.Equal(2, report.Extracted)
}

func TestBusyLock(t *testing.T) {
	f := newFixture(t, true)
	f.write(t, "x.xml", "C4", "D4")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.catalog), 0o755))

	held := flock.New(f.catalog + constants.LockSuffix)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	_, err = f.lib.Sync(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, ErrBusy)
}

type recordingIndex struct {
	built []*model.Catalog
}

func (r *recordingIndex) Rebuild(_ context.Context, c *model.Catalog) error {
	r.built = append(r.built, c)
	return nil
}

func TestIndexRefreshedAfterRebuild(t *testing.T) {
	f := newFixture(t, true)
	ix := &recordingIndex{}
	f.lib.opts.Index = ix
	f.write(t, "x.xml", "C4", "D4")

	report := f.sync(t, SyncOptions{})
	f.sync(t, SyncOptions{})

	require.Len(t, ix.built, 1)
	assert.Equal(t, report.RunID, ix.built[0].RunID)
}

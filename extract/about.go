package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/util"
)

// AboutSource looks up descriptive metadata for a score. names are tried in
// order; the first match wins.
type AboutSource interface {
	Lookup(ctx context.Context, names []string) (model.AboutInfo, bool, error)
}

type aboutExtractor struct {
	src AboutSource
}

func About(src AboutSource) pipeline.Extractor {
	return aboutExtractor{src: src}
}

func (aboutExtractor) Key() model.FeatureKey         { return model.AboutInfoKey }
func (aboutExtractor) DependsOn() []model.FeatureKey { return nil }

func (a aboutExtractor) Extract(ctx context.Context, in *pipeline.Input) error {
	info, ok, err := a.src.Lookup(ctx, lookupNames(in.Record))
	if err != nil {
		return err
	}
	if !ok {
		in.Record.About.Info.SetNotApplicable(model.AboutInfo{}, "no metadata entry")
		return nil
	}
	in.Record.About.Info.Set(info)
	return nil
}

// lookupNames is the title followed by the base name of the primary file and
// of each variant, ordered by variant label.
func lookupNames(r *model.ScoreRecord) []string {
	names := []string{r.Title, baseName(r.FileInfo.Path)}
	for _, label := range util.GetKeys(r.FileInfo.Family) {
		names = append(names, baseName(r.FileInfo.Family[label]))
	}
	return util.Unique(names)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

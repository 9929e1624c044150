package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsphweid/scoredex/constants"
	"github.com/jsphweid/scoredex/model"
)

var ErrCorpusUnavailable = errors.New("corpus unavailable")

type Options struct {
	Root       string
	Extensions []string
	Delimiter  string
}

// Corpus is the result of one scan. Both lists are sorted by path.
type Corpus struct {
	Primaries []model.FileIdentity
	Variants  []model.FileIdentity
}

// Files returns primaries and variants together.
func (c Corpus) Files() []model.FileIdentity {
	res := make([]model.FileIdentity, 0, len(c.Primaries)+len(c.Variants))
	res = append(res, c.Primaries...)
	res = append(res, c.Variants...)
	model.SortIdentities(res)
	return res
}

// Scan walks root and returns every score file matching the extension
// filter. Files whose base name contains the delimiter are variants and
// never appear among the primaries.
func Scan(opts Options) (Corpus, error) {
	if opts.Delimiter == "" {
		opts.Delimiter = constants.VariantDelimiter
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = constants.DefaultExtensions
	}

	info, err := os.Stat(opts.Root)
	if err != nil {
		return Corpus{}, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}
	if !info.IsDir() {
		return Corpus{}, fmt.Errorf("%w: %s is not a directory", ErrCorpusUnavailable, opts.Root)
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	var res Corpus
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != opts.Root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		id := model.FileIdentity{
			Path:      path,
			ModTime:   fi.ModTime(),
			CreatedAt: birthTime(path, fi),
		}
		if IsVariant(path, opts.Delimiter) {
			res.Variants = append(res.Variants, id)
		} else {
			res.Primaries = append(res.Primaries, id)
		}
		return nil
	}
	if err := filepath.WalkDir(opts.Root, walk); err != nil {
		return Corpus{}, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}

	model.SortIdentities(res.Primaries)
	model.SortIdentities(res.Variants)
	return res, nil
}

// Title is the base name of path without its extension.
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func IsVariant(path, delimiter string) bool {
	return strings.Contains(Title(path), delimiter)
}

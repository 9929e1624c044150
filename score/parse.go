package score

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound      = errors.New("score file not found")
	ErrUnparsable        = errors.New("unparsable score content")
	ErrUnsupportedFormat = errors.New("unsupported score format")
)

// Parser turns a score file into parsed content.
type Parser interface {
	Parse(path string) (*Score, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(path string) (*Score, error)

func (f ParserFunc) Parse(path string) (*Score, error) { return f(path) }

// Default dispatches on the file extension.
var Default Parser = ParserFunc(Parse)

// Parse reads the file at path as MusicXML or Standard MIDI depending on its
// extension.
func Parse(path string) (*Score, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".musicxml", ".xml":
		return ReadMusicXMLFile(path)
	case ".mxl":
		return ReadCompressedMusicXMLFile(path)
	case ".mid", ".midi":
		return ReadMidiFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

package constants

import "os"

// Environment overrides, checked after the config file is decoded.
const (
	EnvCorpus  = "SCOREDEX_CORPUS"
	EnvCatalog = "SCOREDEX_CATALOG"
	EnvConfig  = "SCOREDEX_CONFIG"
)

// VariantDelimiter separates a canonical title from its variant label
// in a file name, e.g. "lullaby - piano.musicxml".
const VariantDelimiter = " - "

const CatalogFilename = "score_dictionary.gob"

const MirrorFilename = "score_dictionary.txt"

const LockSuffix = ".lock"

// bump when the persisted record layout changes; older catalogs are rebuilt
const SchemaVersion = 1

var DefaultExtensions = []string{".musicxml", ".xml", ".mxl", ".mid", ".midi"}

func GetCorpusDir() string {
	return os.Getenv(EnvCorpus)
}

func GetCatalogPath() string {
	return os.Getenv(EnvCatalog)
}

func GetConfigPath() string {
	return os.Getenv(EnvConfig)
}

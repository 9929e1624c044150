package catalog

import (
	"encoding/gob"
	"os"

	"github.com/jsphweid/scoredex/model"
)

func encodeForTest(f *os.File, c *model.Catalog) error {
	return gob.NewEncoder(f).Encode(c)
}

package extraction

import (
	"context"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// parseLegacy converts .doc, .rtf and .odt to plain text through docconv.
// These formats yield text elements only.
func parseLegacy(_ context.Context, path string, _ core.ExtractRequest) ([]core.Element, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, fmt.Errorf("docconv: %w", err)
	}
	return textElements(res.Body, 0), nil
}

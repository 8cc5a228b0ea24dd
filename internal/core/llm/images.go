package llm

import (
	"encoding/base64"
	"fmt"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

const defaultImageMIME = "image/png"

func imageMIME(img core.ImageInput) string {
	if img.MIMEType == "" {
		return defaultImageMIME
	}
	return img.MIMEType
}

func dataURL(img core.ImageInput) string {
	return fmt.Sprintf("data:%s;base64,%s", imageMIME(img), img.Base64)
}

func decodeImage(img core.ImageInput) ([]byte, string, error) {
	data, err := base64.StdEncoding.DecodeString(img.Base64)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, imageMIME(img), nil
}

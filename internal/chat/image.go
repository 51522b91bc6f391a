package chat

import (
	"errors"
	"net/http"
)

// ErrUnsupportedImage is returned for uploads that are not JPEG or PNG.
var ErrUnsupportedImage = errors.New("unsupported image type")

var displayNames = map[string]string{
	"image/jpeg": "uploaded.jpg",
	"image/png":  "uploaded.png",
}

// DetectImage sniffs data and returns the MIME type and the display name sent
// to the agent. The declared type of an upload is not trusted.
func DetectImage(data []byte) (mimeType, displayName string, err error) {
	if len(data) == 0 {
		return "", "", ErrUnsupportedImage
	}
	mimeType = http.DetectContentType(data)
	displayName, ok := displayNames[mimeType]
	if !ok {
		return "", "", ErrUnsupportedImage
	}
	return mimeType, displayName, nil
}

// AcceptedImageTypes lists the MIME types DetectImage accepts.
func AcceptedImageTypes() []string {
	return []string{"image/jpeg", "image/png"}
}

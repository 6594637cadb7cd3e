package embedding

import (
	"github.com/poiesic/rentmatch/core"
)

// Cache key namespaces. Keys carry the model tag so vectors from different
// models never collide.
const (
	textNamespace  = "text/"
	imageNamespace = "image/"
)

// TextKey is the cache key of a listing's text embedding.
func TextKey(model, listingID string) string {
	return textNamespace + model + "/" + listingID
}

// ImageKey is the cache key of one image embedding. Images are keyed by
// content of the reference so listings sharing a photo share the vector.
func ImageKey(model, ref string) string {
	return imageNamespace + model + "/" + core.IDFromContent(ref)
}

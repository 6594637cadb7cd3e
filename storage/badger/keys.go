package badger

// Key prefixes for different data types
const (
	listingPrefix     = "lst:"
	embeddingPrefix   = "emb:"
	catalogUpdatedKey = "meta:catalog_updated"
	indexMetaKey      = "idx:meta"
)

// makeListingKey generates a key for a listing by ID.
// Listing IDs are strings, so iteration order under the prefix is ID order.
func makeListingKey(id string) []byte {
	return []byte(listingPrefix + id)
}

// makeEmbeddingKey namespaces an embedding cache key.
func makeEmbeddingKey(key string) []byte {
	return []byte(embeddingPrefix + key)
}

package cart

import "strings"

// NoImage is served for items without an image.
const NoImage = "/no-image.png"

// ResolveImageSrc turns a stored image url into one the browser can load.
// Absolute urls pass through. Relative ones are joined to apiRoot after
// dropping a leading /api segment, since uploads are served from the root.
func ResolveImageSrc(apiRoot, url string) string {
	if url == "" {
		return NoImage
	}
	if strings.HasPrefix(url, "http") {
		return url
	}
	normalized := url
	if strings.HasPrefix(normalized, "/api/") {
		normalized = strings.TrimPrefix(normalized, "/api")
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return strings.TrimSuffix(apiRoot, "/") + normalized
}

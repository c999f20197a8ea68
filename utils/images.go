package utils

import "github.com/princinho/storefront/models"

// MergeImages drops the images whose url is in toRemove, appends toAdd
// without duplicating urls, and renumbers SortOrder in the resulting order.
func MergeImages(old []models.ProductImage, toRemove []string, toAdd []models.ProductImage) []models.ProductImage {
	removeSet := make(map[string]struct{}, len(toRemove))
	for _, u := range toRemove {
		removeSet[u] = struct{}{}
	}

	final := make([]models.ProductImage, 0, len(old)+len(toAdd))
	exists := make(map[string]struct{})
	for _, img := range old {
		if _, drop := removeSet[img.Url]; drop {
			continue
		}
		if _, dup := exists[img.Url]; dup {
			continue
		}
		final = append(final, img)
		exists[img.Url] = struct{}{}
	}
	for _, img := range toAdd {
		if _, dup := exists[img.Url]; dup {
			continue
		}
		final = append(final, img)
		exists[img.Url] = struct{}{}
	}

	for i := range final {
		final[i].SortOrder = i
	}
	return final
}

// ImagesByURL returns the images of imgs whose url appears in urls.
func ImagesByURL(imgs []models.ProductImage, urls []string) []models.ProductImage {
	want := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		want[u] = struct{}{}
	}
	out := make([]models.ProductImage, 0)
	for _, img := range imgs {
		if _, ok := want[img.Url]; ok {
			out = append(out, img)
		}
	}
	return out
}

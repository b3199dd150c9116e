package downloader

import (
	"fmt"
	"regexp"
)

var locatorPattern = regexp.MustCompile(`(?P<type>track|album|playlist)/(?P<id>[a-zA-Z0-9]+)`)

var locatorKinds = map[string]LocatorKind{
	"track":    KindTrack,
	"album":    KindAlbum,
	"playlist": KindPlaylist,
}

// Resolve extracts the first track/album/playlist reference found anywhere in input.
// The id is returned as found; shape validation happens when the locator is expanded.
func Resolve(input string) (ResourceLocator, error) {
	matches := locatorPattern.FindStringSubmatch(input)
	if len(matches) == 0 {
		return ResourceLocator{}, NewDownloadError(ErrorInvalidLocator, fmt.Sprintf("no track, album or playlist reference in %q", input)).
			WithContext("url", input)
	}

	names := locatorPattern.SubexpNames()
	result := make(map[string]string, len(names))
	for i, match := range matches {
		if i > 0 && names[i] != "" {
			result[names[i]] = match
		}
	}

	return ResourceLocator{
		Kind: locatorKinds[result["type"]],
		ID:   result["id"],
	}, nil
}

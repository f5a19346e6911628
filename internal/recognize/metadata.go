package recognize

import (
	"fmt"
	"strings"

	"github.com/antonholmquist/jason"
)

// TrackMetadata describes a recognized track. Every field is optional.
type TrackMetadata struct {
	Artist *string `json:"artist"`
	Track  *string `json:"track"`
	Album  *string `json:"album"`
	Art    Art     `json:"art"`
}

// Art holds cover image URLs.
type Art struct {
	Background *string `json:"background"`
	CoverArt   *string `json:"coverart"`
	CoverArtHQ *string `json:"coverarthq"`
}

// Matched reports whether the recognizer identified anything.
func (m TrackMetadata) Matched() bool {
	return m.Track != nil || m.Artist != nil
}

// String renders "Artist - Track", or whichever part is known.
func (m TrackMetadata) String() string {
	parts := make([]string, 0, 2)
	if m.Artist != nil && *m.Artist != "" {
		parts = append(parts, *m.Artist)
	}
	if m.Track != nil && *m.Track != "" {
		parts = append(parts, *m.Track)
	}
	return strings.Join(parts, " - ")
}

// ParseTrack extracts metadata from a Shazam style result:
//
//	{"track": {"title": ..., "subtitle": ...,
//	           "images": {"background": ..., "coverart": ..., "coverarthq": ...},
//	           "sections": [{"metadata": [{"title": "Album", "text": ...}]}]}}
//
// Missing fields are left nil and a result without a track is an empty,
// unmatched TrackMetadata. Only a payload that is not a JSON object is an error.
func ParseTrack(data []byte) (TrackMetadata, error) {
	root, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return TrackMetadata{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var md TrackMetadata
	track, err := root.GetObject("track")
	if err != nil {
		return md, nil
	}

	md.Track = optString(track, "title")
	md.Artist = optString(track, "subtitle")
	md.Art = Art{
		Background: optString(track, "images", "background"),
		CoverArt:   optString(track, "images", "coverart"),
		CoverArtHQ: optString(track, "images", "coverarthq"),
	}
	md.Album = album(track)
	return md, nil
}

func album(track *jason.Object) *string {
	sections, err := track.GetObjectArray("sections")
	if err != nil {
		return nil
	}
	for _, section := range sections {
		entries, err := section.GetObjectArray("metadata")
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if title, err := entry.GetString("title"); err == nil && title == "Album" {
				if text := optString(entry, "text"); text != nil {
					return text
				}
			}
		}
	}
	return nil
}

func optString(obj *jason.Object, keys ...string) *string {
	s, err := obj.GetString(keys...)
	if err != nil {
		return nil
	}
	return &s
}

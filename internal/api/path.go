package api

import (
	"context"
	"strings"

	"cloudgate/internal/model"
)

// ResolvePath walks a slash-separated path from rootID one directory
// level at a time via repeated ListFiles lookups; no backend offers
// native path resolution. It returns (nil, nil) as soon as any segment
// is not found, and an error only for transport failures. Adapters call
// this with their backend's root sentinel.
func ResolvePath(ctx context.Context, c Client, rootID, path string) (*model.Entity, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, nil
	}

	parentID := rootID
	for i, segment := range segments {
		entries, err := c.ListFiles(ctx, parentID)
		if err != nil {
			return nil, err
		}

		var match *model.Entity
		for j := range entries {
			if entries[j].Name == segment {
				match = &entries[j]
				break
			}
		}
		if match == nil {
			return nil, nil
		}

		if i == len(segments)-1 {
			return match, nil
		}
		if !match.IsFolder() {
			// A file in a non-leaf position cannot be descended into.
			return nil, nil
		}
		parentID = match.ID
	}
	return nil, nil
}

func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

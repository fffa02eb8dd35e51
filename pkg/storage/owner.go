package storage

import (
	"context"
	"fmt"

	"github.com/papercomputeco/storyline/pkg/story"
)

// ResolveOwner loads the record a contribution is attached to.
func ResolveOwner(ctx context.Context, stories StoryStore, ref story.OwnerRef) (story.Owner, error) {
	switch ref.Kind {
	case story.OwnerStory:
		s, err := stories.GetStory(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", story.ErrUnsupportedOwner, ref.Kind)
	}
}

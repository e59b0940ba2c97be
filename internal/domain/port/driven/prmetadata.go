package driven

import "context"

// PRMetadataResolver looks up details of a review link on its code host.
type PRMetadataResolver interface {
	// ResolveTitle returns the PR title for link. ok is false when the link does
	// not belong to the code host.
	ResolveTitle(ctx context.Context, link string) (title string, ok bool, err error)
}

// Package authz carries the authorization capability check for approval
// decisions. The real authorization service is external; the static
// implementation below is the embedded default.
package authz

import "context"

// Authorizer answers whether an identity may approve or reject command
// requests.
type Authorizer interface {
	CanApprove(ctx context.Context, userID string) (bool, error)
}

// StaticAuthorizer allows a fixed set of approver identities, typically
// loaded from configuration.
type StaticAuthorizer struct {
	approvers map[string]struct{}
}

// NewStaticAuthorizer builds an authorizer from a list of approver ids.
func NewStaticAuthorizer(approverIDs []string) *StaticAuthorizer {
	approvers := make(map[string]struct{}, len(approverIDs))
	for _, id := range approverIDs {
		if id != "" {
			approvers[id] = struct{}{}
		}
	}
	return &StaticAuthorizer{approvers: approvers}
}

// Make sure we conform to the interface
var _ Authorizer = (*StaticAuthorizer)(nil)

// CanApprove reports whether userID is in the approver set.
func (a *StaticAuthorizer) CanApprove(_ context.Context, userID string) (bool, error) {
	_, ok := a.approvers[userID]
	return ok, nil
}

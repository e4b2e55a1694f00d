package platform

import "context"

// Adapter is the contract every platform integration implements.
// Fetch and Send cross the network and honor the context deadline;
// Normalize is pure and must tolerate missing optional fields.
type Adapter interface {
	Type() Type
	Fetch(ctx context.Context, creds Credentials) ([]RawItem, error)
	Normalize(item RawItem) (Record, error)
	Send(ctx context.Context, creds Credentials, target, text string) error
	Test(ctx context.Context, creds Credentials) (string, error)
}

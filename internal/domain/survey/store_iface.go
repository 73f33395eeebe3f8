package survey

import "context"

type StoreAPI interface {
	GetResponse(ctx context.Context, evaluatorID, subjectID, periodID string) (Response, error)
	UpsertResponse(ctx context.Context, resp Response) error
	ListResponses(ctx context.Context, periodID, section string) ([]Response, error)
}

package eventstream

import "context"

// Publisher publishes ingestion events to an event stream backend.
type Publisher interface {
	PublishMaterialSynced(ctx context.Context, event *MaterialSyncedEvent) error
	Close() error
}

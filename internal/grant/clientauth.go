package grant

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
)

// authenticateClient runs the shared first two stages of every grant:
// credential extraction and client authentication scoped to grantID.
func authenticateClient(ctx context.Context, clients ClientStore, events EventSink, now func() time.Time, grantID string, req *Request) (*repository.Client, error) {
	clientID, secret, err := req.clientCredentials()
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		return nil, InvalidRequest("client_id")
	}
	if secret == "" {
		return nil, InvalidRequest("client_secret")
	}

	client, err := clients.Get(ctx, clientID, secret, grantID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, StorageError(err)
		}
		events.Emit(ctx, Event{
			Type:       EventClientAuthFailed,
			Grant:      grantID,
			ClientID:   clientID,
			RemoteAddr: req.RemoteAddr,
			At:         now().UTC(),
		})
		logger.From(ctx).Warn("client authentication failed",
			logger.Grant(grantID), logger.ClientID(clientID))
		return nil, ErrInvalidClient
	}
	if client == nil {
		return nil, ServerError(errors.New("client store returned no client"))
	}
	return client, nil
}

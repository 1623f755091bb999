package grant

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	tokens "github.com/dropDatabas3/fedgrant/internal/security/token"
)

// IssuerDeps holds the collaborators of an Issuer.
type IssuerDeps struct {
	Store repository.TokenStore

	// Optional; default to tokens.RandomGenerator, time.Now and
	// tokens.NewSessionID.
	IDs  tokens.Generator
	Now  func() time.Time
	SIDs func() (string, error)
}

// Issuer creates and persists the session, access token and refresh token of
// a successful grant.
type Issuer struct {
	store repository.TokenStore
	ids   tokens.Generator
	now   func() time.Time
	sids  func() (string, error)
}

// NewIssuer builds an Issuer. Store is required.
func NewIssuer(d IssuerDeps) *Issuer {
	if d.IDs == nil {
		d.IDs = tokens.RandomGenerator{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.SIDs == nil {
		d.SIDs = tokens.NewSessionID
	}
	return &Issuer{store: d.Store, ids: d.IDs, now: d.Now, sids: d.SIDs}
}

// Issued is the result of one issuance. Token ids are raw; only the
// response carries them.
type Issued struct {
	Session   *repository.Session
	Access    *repository.AccessToken
	Refresh   *repository.RefreshToken // nil when refresh is disabled
	AccessTTL time.Duration
}

// NewSession returns an unsaved session owned by userID for client.
func (i *Issuer) NewSession(userID string, client *repository.Client) (*repository.Session, error) {
	id, err := i.sids()
	if err != nil {
		return nil, ServerError(err)
	}
	return &repository.Session{
		ID:        id,
		OwnerType: repository.OwnerTypeUser,
		OwnerID:   userID,
		ClientID:  client.ClientID,
		Scopes:    []string{},
		CreatedAt: i.now().UTC(),
	}, nil
}

// Issue associates scopes with session, creates the tokens and persists
// session, access token and refresh token in that order. When the store is a
// repository.Transactor the three writes share one transaction.
//
// On failure nothing is returned and no later artifact is written.
func (i *Issuer) Issue(ctx context.Context, session *repository.Session, scopes []string, lt Lifetimes) (*Issued, error) {
	for _, s := range scopes {
		session.AssociateScope(s)
	}
	return i.issue(ctx, issuePlan{
		session:     session,
		saveSession: true,
		scopes:      session.Scopes,
		lifetimes:   lt,
	})
}

// issuePlan describes one issuance. before runs first inside the same unit
// of work, so a refresh rotation revokes the old token atomically with
// issuing the new pair.
type issuePlan struct {
	session     *repository.Session
	saveSession bool
	scopes      []string
	lifetimes   Lifetimes
	before      func(ctx context.Context, ts repository.TokenStore) error
}

func (i *Issuer) issue(ctx context.Context, p issuePlan) (*Issued, error) {
	if i.store == nil {
		return nil, ConfigurationError("issuer has no token store")
	}
	if p.lifetimes.AccessTTL <= 0 {
		return nil, ConfigurationError("access token ttl must be positive")
	}

	now := i.now().UTC()
	accessID, err := i.ids.NewID()
	if err != nil {
		return nil, ServerError(err)
	}
	out := &Issued{
		Session: p.session,
		Access: &repository.AccessToken{
			ID:        accessID,
			SessionID: p.session.ID,
			Scopes:    append([]string{}, p.scopes...),
			ExpiresAt: now.Add(p.lifetimes.AccessTTL),
			CreatedAt: now,
		},
		AccessTTL: p.lifetimes.AccessTTL,
	}
	if p.lifetimes.RefreshTTL > 0 {
		refreshID, err := i.ids.NewID()
		if err != nil {
			return nil, ServerError(err)
		}
		out.Refresh = &repository.RefreshToken{
			ID:            refreshID,
			AccessTokenID: accessID,
			SessionID:     p.session.ID,
			ExpiresAt:     now.Add(p.lifetimes.RefreshTTL),
			CreatedAt:     now,
		}
	}

	write := func(ts repository.TokenStore) error {
		if p.before != nil {
			if err := p.before(ctx, ts); err != nil {
				return err
			}
		}
		if p.saveSession {
			if err := ts.Sessions().Create(ctx, out.Session); err != nil {
				return StorageError(err)
			}
		}
		if err := ts.Tokens().CreateAccessToken(ctx, out.Access); err != nil {
			return StorageError(err)
		}
		if out.Refresh != nil {
			if err := ts.Tokens().CreateRefreshToken(ctx, out.Refresh); err != nil {
				return StorageError(err)
			}
		}
		return nil
	}

	if tx, ok := i.store.(repository.Transactor); ok {
		err = tx.InTx(ctx, write)
	} else {
		err = write(i.store)
	}
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) {
			return nil, ge
		}
		return nil, StorageError(err)
	}
	return out, nil
}

package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

const clientPrefix = "client:"

func clientKey(id string) []byte {
	return []byte(clientPrefix + id)
}

// GetClient retrieves a paired client by ID.
func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var client domain.Client
	err := s.get(clientKey(id), &client)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, NewStorageError("get client", err)
	}
	return &client, nil
}

// CreateClient registers a newly paired client.
func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if client == nil || client.ID == "" {
		return ErrInvalidInput.WithMessage("client requires an ID")
	}

	exists, err := s.exists(clientKey(client.ID))
	if err != nil {
		return NewStorageError("check client", err)
	}
	if exists {
		return ErrAlreadyExists.WithMessage("client already paired")
	}

	if err := s.set(clientKey(client.ID), client); err != nil {
		return NewStorageError("create client", err)
	}

	if s.logger != nil {
		s.logger.Info("client paired", "client_id", client.ID, "label", client.Label)
	}
	return nil
}

// UpdateClient replaces an existing client record, used for refresh
// token rotation.
func (s *Store) UpdateClient(ctx context.Context, client *domain.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if client == nil || client.ID == "" {
		return ErrInvalidInput.WithMessage("client requires an ID")
	}

	exists, err := s.exists(clientKey(client.ID))
	if err != nil {
		return NewStorageError("check client", err)
	}
	if !exists {
		return ErrClientNotFound
	}

	if err := s.set(clientKey(client.ID), client); err != nil {
		return NewStorageError("update client", err)
	}
	return nil
}

// TouchClient updates a client's last-seen timestamp.
func (s *Store) TouchClient(ctx context.Context, id string) error {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return err
	}

	client.Touch()
	if err := s.set(clientKey(id), client); err != nil {
		return NewStorageError("touch client", err)
	}
	return nil
}

// DeleteClient revokes a paired client. Deleting a missing client is not an
// error, so revocation is idempotent.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.delete(clientKey(id)); err != nil {
		return NewStorageError("delete client", err)
	}

	if s.logger != nil {
		s.logger.Info("client revoked", "client_id", id)
	}
	return nil
}

// ListClients returns every paired client, most recently seen first.
func (s *Store) ListClients(ctx context.Context) ([]*domain.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clients []*domain.Client
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(clientPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var client domain.Client
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &client)
			}); err != nil {
				return err
			}
			clients = append(clients, &client)
		}
		return nil
	})
	if err != nil {
		return nil, NewStorageError("list clients", err)
	}

	sort.Slice(clients, func(i, j int) bool {
		return lastSeen(clients[i]).After(lastSeen(clients[j]))
	})
	return clients, nil
}

func lastSeen(c *domain.Client) time.Time {
	if !c.LastSeenAt.IsZero() {
		return c.LastSeenAt
	}
	return c.CreatedAt
}

package repository

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"portfoliocore/internal/models"
	"portfoliocore/internal/transport"
)

// Users manages accounts on the admin surface. All operations require
// an admin-role credential; the server enforces that, the client only
// validates the proposed role against the known set before spending a
// network call.
type Users struct {
	client *transport.Client
	log    *zap.Logger
}

// NewUsers creates a Users repository using the given client.
func NewUsers(client *transport.Client, log *zap.Logger) *Users {
	return &Users{client: client, log: log}
}

type userEnvelope struct {
	User models.User `json:"user"`
}

type userListEnvelope struct {
	Users []models.User `json:"users"`
}

// List fetches all user accounts.
func (r *Users) List(ctx context.Context) ([]models.User, error) {
	var wire userListEnvelope
	if err := r.client.DoJSON(ctx, http.MethodGet, "/admin/users", nil, &wire); err != nil {
		return nil, err
	}
	return wire.Users, nil
}

// Create registers a new user account.
func (r *Users) Create(ctx context.Context, u models.User) (models.User, error) {
	if !u.Role.Valid() {
		return models.User{}, &transport.ValidationError{Field: "role", Reason: "unknown role " + string(u.Role)}
	}

	var wire userEnvelope
	if err := r.client.DoJSON(ctx, http.MethodPost, "/admin/users", u, &wire); err != nil {
		return models.User{}, err
	}
	return wire.User, nil
}

// Update overwrites the user with the given id.
func (r *Users) Update(ctx context.Context, id string, u models.User) (models.User, error) {
	if !u.Role.Valid() {
		return models.User{}, &transport.ValidationError{Field: "role", Reason: "unknown role " + string(u.Role)}
	}

	var wire userEnvelope
	if err := r.client.DoJSON(ctx, http.MethodPut, "/admin/users/"+id, u, &wire); err != nil {
		return models.User{}, err
	}
	return wire.User, nil
}

// Remove deletes the user with the given id.
func (r *Users) Remove(ctx context.Context, id string) error {
	return r.client.DoJSON(ctx, http.MethodDelete, "/admin/users/"+id, nil, nil)
}

// Package service holds helpers shared by the domain services.
package service

import (
	"errors"

	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
)

// Descriptor advertises a service and what it can do. The admin system view
// lists descriptors of every registered service.
type Descriptor struct {
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// WithCapabilities returns a copy of the descriptor with caps appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}

// StoreError translates storage sentinels into service errors. Errors that
// are already service errors pass through.
func StoreError(resource, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case svcerrors.GetServiceError(err) != nil:
		return err
	case errors.Is(err, storage.ErrNotFound):
		return svcerrors.NotFound(resource, id)
	case errors.Is(err, storage.ErrConflict):
		return svcerrors.Conflict(resource + " conflicts with an existing record")
	default:
		return svcerrors.Internal(resource+" storage failure", err)
	}
}

// Publish sends an event when pub is set.
func Publish(pub events.Publisher, typ string, data map[string]interface{}) {
	if pub == nil {
		return
	}
	pub.Publish(events.Event{Type: typ, Data: data})
}

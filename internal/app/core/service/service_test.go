package service

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreError(t *testing.T) {
	assert.NoError(t, StoreError("team", "t1", nil))

	se := svcerrors.GetServiceError(StoreError("team", "t1", storage.ErrNotFound))
	require.NotNil(t, se)
	assert.Equal(t, http.StatusNotFound, se.HTTPStatus)

	se = svcerrors.GetServiceError(StoreError("team", "t1", fmt.Errorf("%w: teams_name_key", storage.ErrConflict)))
	require.NotNil(t, se)
	assert.Equal(t, svcerrors.CodeConflict, se.Code)

	se = svcerrors.GetServiceError(StoreError("team", "t1", fmt.Errorf("boom")))
	require.NotNil(t, se)
	assert.Equal(t, svcerrors.CodeInternal, se.Code)

	orig := svcerrors.Forbidden("")
	assert.Same(t, orig, StoreError("team", "t1", orig))
}

func TestDescriptorWithCapabilities(t *testing.T) {
	d := Descriptor{Name: "teams", Domain: "team", Capabilities: []string{"crud"}}
	d2 := d.WithCapabilities("roster")
	assert.Equal(t, []string{"crud"}, d.Capabilities)
	assert.Equal(t, []string{"crud", "roster"}, d2.Capabilities)
}

type recorder struct{ got []events.Event }

func (r *recorder) Publish(evt events.Event) { r.got = append(r.got, evt) }

func TestPublish(t *testing.T) {
	Publish(nil, events.TypeTrialScheduled, nil)

	rec := &recorder{}
	Publish(rec, events.TypeTrialScheduled, map[string]interface{}{"trial_id": "t1"})
	require.Len(t, rec.got, 1)
	assert.Equal(t, "t1", rec.got[0].Data["trial_id"])
}

package depotform

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cementops/admin/internal/gateway"
	"cementops/admin/internal/nav"
	"cementops/admin/internal/remote"
	"cementops/admin/internal/remote/remotetest"
	"cementops/admin/internal/selection"
)

var parents = []remote.Region{{ID: 1, Name: "North"}, {ID: 2, Name: "South"}}

var children = []remote.SubRegion{
	{ID: 10, Name: "N1", ParentID: 1},
	{ID: 20, Name: "S1", ParentID: 2},
	{ID: 30, Name: "Orphan"},
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSubmit_CreateSuccessNavigatesAndResets(t *testing.T) {
	srv := remotetest.New(t)
	srv.Respond(http.MethodPost, "/depots", http.StatusCreated, `{"data":{"id":8}}`)

	c := NewCreate(srv.API(), testLog())
	out, err := c.Submit(context.Background(), Draft{Name: "D1", ParentID: "1", ChildID: "10"}, parents, children)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Navigate: nav.DepotList, ResetDraft: true}, out)
	assert.Equal(t, Draft{Name: "", ParentID: "", ChildID: ""}, EmptyDraft())
	assert.JSONEq(t, `{"name":"D1","region_id":1,"sub_region_id":10}`, string(srv.LastBody(http.MethodPost, "/depots")))
	assert.False(t, c.Loading())
}

func TestSubmit_UpdateKeepsDraft(t *testing.T) {
	srv := remotetest.New(t)
	srv.Respond(http.MethodPut, "/depots/7", http.StatusNoContent, ``)

	c := NewUpdate(srv.API(), 7, testLog())
	out, err := c.Submit(context.Background(), Draft{Name: "D7", ParentID: "2", ChildID: "20"}, parents, children)
	require.NoError(t, err)
	assert.Equal(t, nav.DepotList, out.Navigate)
	assert.False(t, out.ResetDraft)
	assert.Equal(t, 1, srv.Calls(http.MethodPut, "/depots/7"))
}

func TestSubmit_InvalidDraftNeverCallsAPI(t *testing.T) {
	cases := map[string]Draft{
		"no name":          {ParentID: "1", ChildID: "10"},
		"blank name":       {Name: "   ", ParentID: "1", ChildID: "10"},
		"no region":        {Name: "D1", ChildID: "10"},
		"no sub-region":    {Name: "D1", ParentID: "1"},
		"non numeric":      {Name: "D1", ParentID: "north", ChildID: "10"},
		"foreign child":    {Name: "D1", ParentID: "1", ChildID: "20"},
		"unknown child":    {Name: "D1", ParentID: "1", ChildID: "99"},
		"zero region":      {Name: "D1", ParentID: "0", ChildID: "30"},
		"unknown region":   {Name: "D1", ParentID: "5", ChildID: "10"},
		"everything empty": {},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			srv := remotetest.New(t)
			c := NewCreate(srv.API(), testLog())

			_, err := c.Submit(context.Background(), d, parents, children)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Fields)
			assert.Zero(t, srv.TotalCalls())
		})
	}
}

func TestValidate_FieldMessages(t *testing.T) {
	_, err := Draft{}.Validate(parents, children)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{
		"name":     "Name is required",
		"parentId": "Region is required",
		"childId":  "Sub-region is required",
	}, ve.Fields)
	assert.EqualError(t, err, "invalid depot: childId, name, parentId")
}

func TestValidate_OrphanNeverSelectable(t *testing.T) {
	_, err := Draft{Name: "D1", ParentID: "0", ChildID: "30"}.Validate(parents, children)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"parentId": "Region is invalid"}, ve.Fields)

	_, err = Draft{Name: "D1", ParentID: "3", ChildID: "30"}.Validate(parents, children)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"parentId": "Region is not available"}, ve.Fields)

	body, err := Draft{Name: " D1 ", ParentID: "2", ChildID: "20"}.Validate(parents, children)
	require.NoError(t, err)
	assert.Equal(t, remote.DepotWrite{Name: "D1", RegionID: 2, SubRegionID: 20}, body)
}

func TestSubmit_DoubleSubmitWhileLoadingSendsOnce(t *testing.T) {
	srv := remotetest.New(t)
	srv.Respond(http.MethodPost, "/depots", http.StatusCreated, `{"data":{"id":8}}`)
	release := srv.Hold(http.MethodPost, "/depots")
	defer release()

	c := NewCreate(srv.API(), testLog())
	d := Draft{Name: "D1", ParentID: "1", ChildID: "10"}

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Submit(context.Background(), d, parents, children)
	}()

	require.Eventually(t, c.Loading, time.Second, 5*time.Millisecond)

	_, err := c.Submit(context.Background(), d, parents, children)
	require.ErrorIs(t, err, ErrSubmitInProgress)

	release()
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, srv.Calls(http.MethodPost, "/depots"))
	assert.False(t, c.Loading())
}

func TestSubmit_RemoteFailureAllowsRetry(t *testing.T) {
	srv := remotetest.New(t)
	srv.Respond(http.MethodPost, "/depots", http.StatusUnprocessableEntity, `{"message":"Depot name already exists"}`)

	c := NewCreate(srv.API(), testLog())
	d := Draft{Name: "D1", ParentID: "1", ChildID: "10"}

	_, err := c.Submit(context.Background(), d, parents, children)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Depot name already exists", se.Message)
	assert.False(t, c.Loading())

	srv.Respond(http.MethodPost, "/depots", http.StatusCreated, `{"data":{"id":9}}`)
	out, err := c.Submit(context.Background(), d, parents, children)
	require.NoError(t, err)
	assert.True(t, out.ResetDraft)
	assert.Equal(t, 2, srv.Calls(http.MethodPost, "/depots"))
}

func TestSubmit_CreateRequires200Or201(t *testing.T) {
	srv := remotetest.New(t)
	srv.Respond(http.MethodPost, "/depots", http.StatusAccepted, `{"data":null}`)

	c := NewCreate(srv.API(), testLog())
	_, err := c.Submit(context.Background(), Draft{Name: "D1", ParentID: "1", ChildID: "10"}, parents, children)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
}

type stubWriter struct{ err error }

func (s stubWriter) CreateDepot(context.Context, remote.DepotWrite) (int, error) { return 0, s.err }
func (s stubWriter) UpdateDepot(context.Context, int64, remote.DepotWrite) (int, error) {
	return 0, s.err
}

func TestUserMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{gateway.ErrNoCredential, "Your session has expired. Please sign in again."},
		{&gateway.StatusError{Status: http.StatusUnauthorized, Message: "Unauthorized"}, "Your session has expired. Please sign in again."},
		{&gateway.StatusError{Status: http.StatusBadGateway, Message: "Bad Gateway"}, "The server could not save the depot. Please try again."},
		{&gateway.StatusError{Status: http.StatusConflict, Message: "Conflict"}, "The depot could not be saved: Conflict"},
		{context.DeadlineExceeded, "The server took too long to respond. Please try again."},
		{errors.New("dial tcp: refused"), "Could not reach the server. Please try again."},
	}
	for _, tc := range cases {
		c := NewCreate(stubWriter{err: tc.err}, testLog())
		_, err := c.Submit(context.Background(), Draft{Name: "D1", ParentID: "1", ChildID: "10"}, parents, children)
		var se *SubmitError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, tc.want, se.Message)
		assert.ErrorIs(t, err, tc.err)
	}
}

func TestDraftFrom(t *testing.T) {
	s := selection.State{ParentID: selection.Some(1), ChildID: selection.Some(10)}
	assert.Equal(t, Draft{Name: "D1", ParentID: "1", ChildID: "10"}, DraftFrom("D1", s))
	assert.Equal(t, Draft{Name: "x"}, DraftFrom("x", selection.State{}))
}

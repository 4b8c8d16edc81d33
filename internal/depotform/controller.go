// Package depotform validates and submits the add/edit depot form.
package depotform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"cementops/admin/internal/gateway"
	"cementops/admin/internal/nav"
	"cementops/admin/internal/remote"
)

// ErrSubmitInProgress is returned when a submit arrives while another one is
// still waiting on the API. No request is sent for it.
var ErrSubmitInProgress = errors.New("submit already in progress")

type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "create"
}

// SubmitError is a failed create/update. Message is safe to show to the user.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

type Writer interface {
	CreateDepot(ctx context.Context, in remote.DepotWrite) (int, error)
	UpdateDepot(ctx context.Context, id int64, in remote.DepotWrite) (int, error)
}

// Outcome of a successful submit.
type Outcome struct {
	Navigate string `json:"navigate"`
	// ResetDraft is set in create mode: the form goes back to EmptyDraft.
	ResetDraft bool `json:"resetDraft"`
}

type Controller struct {
	mode    Mode
	depotID int64
	w       Writer
	log     *logrus.Entry

	loading atomic.Bool
}

func NewCreate(w Writer, log *logrus.Entry) *Controller {
	return &Controller{mode: ModeCreate, w: w, log: log}
}

func NewUpdate(w Writer, depotID int64, log *logrus.Entry) *Controller {
	return &Controller{mode: ModeUpdate, depotID: depotID, w: w, log: log}
}

// Loading reports whether a submit is waiting on the API. The submit control
// is disabled while it is true.
func (c *Controller) Loading() bool { return c.loading.Load() }

// Submit validates d against the loaded regions and sub-regions and sends it.
// Validation failures and overlapping submits never reach the API.
func (c *Controller) Submit(ctx context.Context, d Draft, parents []remote.Region, children []remote.SubRegion) (Outcome, error) {
	body, err := d.Validate(parents, children)
	if err != nil {
		return Outcome{}, err
	}

	if !c.loading.CompareAndSwap(false, true) {
		return Outcome{}, ErrSubmitInProgress
	}
	defer c.loading.Store(false)

	log := c.log.WithFields(logrus.Fields{
		"mode":          c.mode.String(),
		"depot_id":      c.depotID,
		"region_id":     body.RegionID,
		"sub_region_id": body.SubRegionID,
	})

	var status int
	switch c.mode {
	case ModeUpdate:
		status, err = c.w.UpdateDepot(ctx, c.depotID, body)
	default:
		status, err = c.w.CreateDepot(ctx, body)
	}
	if err != nil {
		log.WithError(err).Warn("depot submit failed")
		return Outcome{}, &SubmitError{Message: userMessage(err), Err: err}
	}
	if c.mode == ModeCreate && status != http.StatusOK && status != http.StatusCreated {
		err := fmt.Errorf("create depot: unexpected status %d", status)
		log.WithError(err).Warn("depot submit failed")
		return Outcome{}, &SubmitError{Message: "The server did not confirm the new depot. Please try again.", Err: err}
	}

	log.Info("depot saved")
	return Outcome{Navigate: nav.DepotList, ResetDraft: c.mode == ModeCreate}, nil
}

func userMessage(err error) string {
	if errors.Is(err, gateway.ErrNoCredential) || gateway.IsStatus(err, http.StatusUnauthorized) {
		return "Your session has expired. Please sign in again."
	}
	var se *gateway.StatusError
	if errors.As(err, &se) {
		if se.Message != "" && se.Message != http.StatusText(se.Status) {
			return se.Message
		}
		if se.Status >= 500 {
			return "The server could not save the depot. Please try again."
		}
		return "The depot could not be saved: " + http.StatusText(se.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The server took too long to respond. Please try again."
	}
	return "Could not reach the server. Please try again."
}

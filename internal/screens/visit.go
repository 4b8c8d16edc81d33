package screens

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cementops/admin/internal/depotform"
	"cementops/admin/internal/detail"
	"cementops/admin/internal/nav"
	"cementops/admin/internal/remote"
	"cementops/admin/internal/selection"
)

var (
	ErrReadOnly      = errors.New("screen is read-only")
	ErrNotReady      = errors.New("screen is still loading or failed to load")
	ErrUnknownRegion = errors.New("unknown region")
	ErrClosed        = errors.New("screen was closed")
)

type Kind string

const (
	KindAddDepot  Kind = "add-depot"
	KindEditDepot Kind = "edit-depot"
	KindViewDepot Kind = "view-depot"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAddDepot, KindEditDepot, KindViewDepot:
		return true
	}
	return false
}

func (k Kind) needsID() bool { return k == KindEditDepot || k == KindViewDepot }

// Snapshot is the render state of a visit.
type Snapshot struct {
	ID                string              `json:"id"`
	Kind              Kind                `json:"kind"`
	Loading           bool                `json:"loading"`
	Submitting        bool                `json:"submitting"`
	ReadOnly          bool                `json:"readOnly"`
	Regions           []remote.Region     `json:"regions"`
	SubRegions        []remote.SubRegion  `json:"subRegions"`
	SubRegionDisabled bool                `json:"subRegionDisabled"`
	SubmitDisabled    bool                `json:"submitDisabled"`
	Selection         selection.State     `json:"selection"`
	Draft             depotform.Draft     `json:"draft"`
	Depot             *detail.DepotFields `json:"depot,omitempty"`
	LoadErrors        []string            `json:"loadErrors,omitempty"`
	FieldErrors       map[string]string   `json:"fieldErrors,omitempty"`
	SubmitError       string              `json:"submitError,omitempty"`
	Navigate          string              `json:"navigate,omitempty"`
}

// Visit is one screen visit. Interaction is serialized by mu; the submit
// request itself runs outside the lock and is guarded by the form's loading
// flag instead.
type Visit struct {
	id      string
	kind    Kind
	depotID int64
	log     *logrus.Entry
	ctx     context.Context
	cancel  context.CancelFunc
	loaded  chan struct{}
	form    *depotform.Controller
	onDone  func(id string)

	mu        sync.Mutex
	loading   bool
	ready     bool
	inFlight  bool
	closed    bool
	lastSeen  time.Time
	parents   []remote.Region
	children  []remote.SubRegion
	sel       *selection.Controller
	name      string
	depot     *detail.DepotFields
	loadErrs  []string
	fieldErrs map[string]string
	submitErr string
	navigate  string
}

func (v *Visit) ID() string { return v.id }

func (v *Visit) Kind() Kind { return v.kind }

// Wait blocks until the initial load is done or ctx ends.
func (v *Visit) Wait(ctx context.Context) error {
	select {
	case <-v.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *Visit) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *Visit) snapshotLocked() Snapshot {
	submitting := v.inFlight || (v.form != nil && v.form.Loading())
	s := Snapshot{
		ID:                v.id,
		Kind:              v.kind,
		Loading:           v.loading,
		Submitting:        submitting,
		ReadOnly:          v.kind == KindViewDepot,
		Regions:           v.parents,
		SubRegions:        v.sel.VisibleChildren(),
		SubRegionDisabled: v.kind == KindViewDepot || v.sel.ChildDisabled(),
		SubmitDisabled:    v.kind == KindViewDepot || !v.ready || submitting,
		Selection:         v.sel.State(),
		Draft:             depotform.DraftFrom(v.name, v.sel.State()),
		Depot:             v.depot,
		LoadErrors:        v.loadErrs,
		FieldErrors:       v.fieldErrs,
		SubmitError:       v.submitErr,
		Navigate:          v.navigate,
	}
	if s.Regions == nil {
		s.Regions = []remote.Region{}
	}
	return s
}

func (v *Visit) checkWritable() error {
	if v.closed {
		return ErrClosed
	}
	if v.kind == KindViewDepot {
		return ErrReadOnly
	}
	return nil
}

// SelectRegion chooses the region and clears the sub-region.
func (v *Visit) SelectRegion(id int64) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkWritable(); err != nil {
		return v.snapshotLocked(), err
	}
	if !hasRegion(v.parents, id) {
		return v.snapshotLocked(), ErrUnknownRegion
	}
	v.sel.SelectParent(id)
	delete(v.fieldErrs, "parentId")
	delete(v.fieldErrs, "childId")
	return v.snapshotLocked(), nil
}

func (v *Visit) ClearRegion() (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkWritable(); err != nil {
		return v.snapshotLocked(), err
	}
	v.sel.ClearParent()
	return v.snapshotLocked(), nil
}

func (v *Visit) SelectSubRegion(id int64) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkWritable(); err != nil {
		return v.snapshotLocked(), err
	}
	if err := v.sel.SelectChild(id); err != nil {
		return v.snapshotLocked(), err
	}
	delete(v.fieldErrs, "childId")
	return v.snapshotLocked(), nil
}

func (v *Visit) SetName(name string) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkWritable(); err != nil {
		return v.snapshotLocked(), err
	}
	v.name = name
	delete(v.fieldErrs, "name")
	return v.snapshotLocked(), nil
}

// Submit sends the current draft. On success the visit is discarded and the
// snapshot carries the navigation target; on failure the draft is kept for a
// retry. inFlight stays set until the outcome is applied, so a second submit
// can never reach the writer while the first one is unsettled.
func (v *Visit) Submit(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	if err := v.checkWritable(); err != nil {
		defer v.mu.Unlock()
		return v.snapshotLocked(), err
	}
	if !v.ready {
		defer v.mu.Unlock()
		return v.snapshotLocked(), ErrNotReady
	}
	if v.inFlight {
		defer v.mu.Unlock()
		return v.snapshotLocked(), depotform.ErrSubmitInProgress
	}
	v.inFlight = true
	draft := depotform.DraftFrom(v.name, v.sel.State())
	children := v.children
	parents := v.parents
	v.mu.Unlock()

	out, err := v.form.Submit(ctx, draft, parents, children)

	v.mu.Lock()
	snap, err := v.applySubmit(out, err)
	v.mu.Unlock()

	if err == nil && v.onDone != nil {
		v.onDone(v.id)
	}
	return snap, err
}

func (v *Visit) applySubmit(out depotform.Outcome, err error) (Snapshot, error) {
	v.inFlight = false
	var ve *depotform.ValidationError
	var se *depotform.SubmitError
	switch {
	case errors.Is(err, depotform.ErrSubmitInProgress):
		return v.snapshotLocked(), err
	case errors.As(err, &ve):
		v.fieldErrs = ve.Fields
		v.submitErr = ""
		return v.snapshotLocked(), err
	case errors.As(err, &se):
		v.fieldErrs = nil
		v.submitErr = se.Message
		return v.snapshotLocked(), err
	case err != nil:
		v.submitErr = "The depot could not be saved. Please try again."
		return v.snapshotLocked(), err
	}

	v.fieldErrs = nil
	v.submitErr = ""
	if out.ResetDraft {
		v.name = ""
		v.sel.Reset()
	}
	v.navigate = out.Navigate
	v.closeLocked()
	return v.snapshotLocked(), nil
}

func (v *Visit) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *Visit) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Visit) close() {
	v.mu.Lock()
	v.closeLocked()
	v.mu.Unlock()
}

func (v *Visit) closeLocked() {
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
}

// load runs in its own goroutine. Results that arrive after the visit was
// closed are dropped.
func (v *Visit) load(fn func(ctx context.Context, v *Visit) func()) {
	defer close(v.loaded)
	apply := fn(v.ctx, v)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.ctx.Err() != nil {
		v.log.Debug("screen closed before load finished, result dropped")
		return
	}
	apply()
	v.loading = false
}

func hasRegion(regions []remote.Region, id int64) bool {
	for _, r := range regions {
		if r.ID == id {
			return true
		}
	}
	return false
}

func redirectSnapshot(kind Kind) Snapshot {
	return Snapshot{Kind: kind, Navigate: nav.DepotList, Regions: []remote.Region{}, SubRegions: []remote.SubRegion{}}
}

// Package screens holds the server side state of the depot screens. Each
// visit owns its selection and draft; nothing is shared between visits and a
// visit is gone after navigation away, a successful submit, or idling past
// the TTL.
package screens

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cementops/admin/internal/depotform"
	"cementops/admin/internal/detail"
	"cementops/admin/internal/refdata"
	"cementops/admin/internal/remote"
	"cementops/admin/internal/selection"
)

var (
	ErrUnknownKind = errors.New("unknown screen kind")
	ErrMissingID   = errors.New("depot id required")
	ErrInvalidID   = errors.New("invalid depot id")
)

type API interface {
	refdata.DepotSource
	depotform.Writer
}

type Store struct {
	api    API
	loader *refdata.Loader
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Logger

	mu     sync.Mutex
	visits map[string]*Visit
}

type Option func(*Store)

func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *logrus.Logger) Option { return func(s *Store) { s.log = l } }

func NewStore(api API, opts ...Option) *Store {
	s := &Store{
		api:    api,
		loader: refdata.NewLoader(api),
		ttl:    30 * time.Minute,
		now:    time.Now,
		log:    logrus.StandardLogger(),
		visits: map[string]*Visit{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a visit and its initial load in the background. The load keeps
// the values of ctx (credentials, request logger) but not its cancellation:
// it lives as long as the visit. Edit and view visits without an id return
// ErrMissingID together with a redirect snapshot.
func (s *Store) Open(ctx context.Context, kind Kind, rawID string) (*Visit, Snapshot, error) {
	if !kind.Valid() {
		return nil, Snapshot{}, ErrUnknownKind
	}

	var depotID int64
	if kind.needsID() {
		rawID = strings.TrimSpace(rawID)
		if rawID == "" {
			return nil, redirectSnapshot(kind), ErrMissingID
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			return nil, Snapshot{}, ErrInvalidID
		}
		depotID = id
	}

	vctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	id := uuid.NewString()
	v := &Visit{
		id:       id,
		kind:     kind,
		depotID:  depotID,
		log:      s.log.WithFields(logrus.Fields{"screen_id": id, "screen": string(kind)}),
		ctx:      vctx,
		cancel:   cancel,
		loaded:   make(chan struct{}),
		onDone:   s.remove,
		loading:  true,
		lastSeen: s.now(),
		sel:      selection.NewController(selection.State{}),
	}
	switch kind {
	case KindAddDepot:
		v.form = depotform.NewCreate(s.api, v.log)
	case KindEditDepot:
		v.form = depotform.NewUpdate(s.api, depotID, v.log)
	}

	s.mu.Lock()
	s.visits[id] = v
	s.mu.Unlock()

	if kind == KindAddDepot {
		go v.load(s.loadAdd)
	} else {
		go v.load(s.loadDepot)
	}

	v.log.Debug("screen opened")
	return v, v.Snapshot(), nil
}

// loadAdd tolerates one collection failing; the form shows what loaded.
func (s *Store) loadAdd(ctx context.Context, v *Visit) func() {
	res := s.loader.Load(ctx)
	return func() {
		v.parents = res.Parents
		v.children = res.Children
		v.sel.SetChildren(res.Children)
		for _, fe := range res.Errors {
			v.loadErrs = append(v.loadErrs, loadMessage(fe.Resource))
			v.log.WithError(fe).Warn("reference data load failed")
		}
		v.ready = true
	}
}

// loadDepot is all-or-nothing: the edit form is unusable without the depot
// and both collections.
func (s *Store) loadDepot(ctx context.Context, v *Visit) func() {
	data, err := refdata.LoadDepot(ctx, s.api, v.depotID)
	return func() {
		if err != nil {
			v.loadErrs = []string{"Failed to load depot data. Please try again."}
			v.log.WithError(err).Warn("depot screen load failed")
			return
		}
		v.parents = data.Parents
		v.children = data.Children
		v.sel = selection.NewController(selection.FromDepot(data.Depot))
		v.sel.SetChildren(data.Children)
		v.name = data.Depot.Name
		if v.kind == KindViewDepot {
			v.depot = detail.DepotFieldsFrom(data)
		}
		v.ready = true
	}
}

// Get returns a live visit and marks it as seen.
func (s *Store) Get(id string) (*Visit, bool) {
	s.mu.Lock()
	v, ok := s.visits[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	v.touch(s.now())
	return v, true
}

// Discard ends a visit on navigation away. A load still in flight is
// cancelled and its result dropped.
func (s *Store) Discard(id string) bool {
	s.mu.Lock()
	v, ok := s.visits[id]
	delete(s.visits, id)
	s.mu.Unlock()
	if ok {
		v.close()
		v.log.Debug("screen discarded")
	}
	return ok
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	delete(s.visits, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visits)
}

// Sweep discards visits idle for longer than the TTL.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	candidates := make([]*Visit, 0, len(s.visits))
	for _, v := range s.visits {
		candidates = append(candidates, v)
	}
	s.mu.Unlock()

	n := 0
	for _, v := range candidates {
		if v.idleSince().Before(cutoff) && s.Discard(v.id) {
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.WithField("count", n).Debug("expired screens swept")
			}
		}
	}
}

// Close discards every visit.
func (s *Store) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.visits))
	for id := range s.visits {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Discard(id)
	}
}

func loadMessage(resource string) string {
	switch resource {
	case remote.ResourceParents:
		return "Failed to load regions."
	case remote.ResourceChildren:
		return "Failed to load sub-regions."
	default:
		return "Failed to load " + resource + "."
	}
}

package directory

import (
	"context"
	"sync"

	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/models"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// CacheState is what a ProfileListCache exposes to its consumer.
type CacheState struct {
	Status   Status                     `json:"status"`
	Profiles []models.ProfileWithGroups `json:"profiles"`
	Loading  bool                       `json:"loading"`
	Err      error                      `json:"-"`
	Message  string                     `json:"error,omitempty"`

	version uint64
}

type fetchFunc func(ctx context.Context) ([]models.ProfileWithGroups, error)

// ProfileListCache keeps the current user's decorated profile list in memory
// and refreshes it on demand, on observed changes and on reconnect. When
// loads overlap the most recently requested one wins; older results are
// dropped whenever they complete.
type ProfileListCache struct {
	Profiles *ProfileService
	Listener events.Listener
	// OnChange is called with every new state, one call at a time.
	OnChange func(CacheState)

	fetch   fetchFunc
	refetch chan struct{}

	mu        sync.Mutex
	state     CacheState
	requested uint64
	applied   uint64
	fetchKey  uint64

	notifyMu sync.Mutex
	emitted  uint64
}

func NewProfileListCache(profiles *ProfileService, listener events.Listener) *ProfileListCache {
	return &ProfileListCache{
		Profiles: profiles,
		Listener: listener,
		fetch:    profiles.OwnedProfiles,
		refetch:  make(chan struct{}, 1),
		state:    CacheState{Status: StatusIdle, Profiles: []models.ProfileWithGroups{}},
	}
}

func (c *ProfileListCache) State() CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refetch asks a running cache for a fresh fetch. Calls made while one is
// already pending collapse into it.
func (c *ProfileListCache) Refetch() {
	c.mu.Lock()
	c.fetchKey++
	c.mu.Unlock()

	select {
	case c.refetch <- struct{}{}:
	default:
	}
}

// Run fetches the list and keeps it current until ctx is done. All
// subscriptions it made are released before it returns.
func (c *ProfileListCache) Run(ctx context.Context) error {
	owner, err := c.Profiles.Session.CurrentUser(ctx)
	if err != nil {
		c.finish(ctx, c.begin(), nil, c.Profiles.fail(ctx, "ownedProfiles", err))
		return err
	}

	var inflight sync.WaitGroup
	defer inflight.Wait()

	c.load(ctx, &inflight, c.fetch)

	sub := ObserveProfiles(ctx, c.Profiles.Store, c.Listener,
		ObserveOptions{Owner: owner, Limit: c.Profiles.ListLimit},
		func(snap Snapshot) {
			if !snap.IsSynced {
				return
			}
			items := snap.Items
			c.load(ctx, &inflight, func(ctx context.Context) ([]models.ProfileWithGroups, error) {
				profiles, err := c.Profiles.decorate(ctx, items, owner)
				if err != nil {
					return nil, c.Profiles.fail(ctx, "observeProfiles", err)
				}
				return profiles, nil
			})
		})
	defer sub.Unsubscribe()

	status, stop := c.Listener.Listen(events.ChannelDatastore)
	defer stop()

	online := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.refetch:
			c.load(ctx, &inflight, c.fetch)
		case msg, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			ns, isStatus := msg.Data.(events.NetworkStatus)
			if msg.Event != events.EventNetworkStatus || !isStatus {
				continue
			}
			if ns.Online && !online {
				c.Profiles.logger(ctx).Info().Str("owner", owner).Msg("Back online, refetching profiles")
				c.load(ctx, &inflight, c.fetch)
			}
			online = ns.Online
		}
	}
}

// begin takes the next sequence number and marks the cache as loading.
func (c *ProfileListCache) begin() uint64 {
	c.mu.Lock()
	c.requested++
	seq := c.requested
	c.state.Loading = true
	if c.state.Status == StatusIdle {
		c.state.Status = StatusLoading
	}
	c.state.version++
	c.mu.Unlock()

	c.emit()
	return seq
}

func (c *ProfileListCache) load(ctx context.Context, wg *sync.WaitGroup, produce fetchFunc) {
	seq := c.begin()
	wg.Add(1)
	go func() {
		defer wg.Done()
		profiles, err := produce(ctx)
		if ctx.Err() != nil {
			return
		}
		c.finish(ctx, seq, profiles, err)
	}()
}

func (c *ProfileListCache) finish(ctx context.Context, seq uint64, profiles []models.ProfileWithGroups, err error) {
	c.mu.Lock()
	if seq <= c.applied {
		c.mu.Unlock()
		c.Profiles.logger(ctx).Debug().Uint64("seq", seq).Msg("Discarding stale profile list")
		return
	}
	c.applied = seq
	if err != nil {
		c.state.Status = StatusError
		c.state.Err = err
		c.state.Message = FormatError(err)
	} else {
		if profiles == nil {
			profiles = []models.ProfileWithGroups{}
		}
		c.state.Status = StatusReady
		c.state.Profiles = profiles
		c.state.Err = nil
		c.state.Message = ""
	}
	c.state.Loading = c.applied < c.requested
	c.state.version++
	c.mu.Unlock()

	c.emit()
}

// emit delivers the latest state if it has not been delivered yet.
func (c *ProfileListCache) emit() {
	if c.OnChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	st := c.State()
	if st.version <= c.emitted {
		return
	}
	c.emitted = st.version
	c.OnChange(st)
}

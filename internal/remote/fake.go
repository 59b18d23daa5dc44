package remote

// FakeStore records pushes and serves a scripted schedule for tests.
type FakeStore struct {
	// Schedule is the raw document served by FetchSchedule.
	Schedule []byte

	// FetchFails forces FetchSchedule to report absence.
	FetchFails bool

	// FetchCalls counts FetchSchedule invocations.
	FetchCalls int

	// Weights contains all pushed weight records.
	Weights []WeightRecord

	// MealNotifications contains all pushed meal notifications.
	MealNotifications []MealNotification

	// ContainerStatuses contains all pushed container statuses.
	ContainerStatuses []ContainerStatus

	// PushFails forces every push to fail without recording.
	PushFails bool

	// FailWeightsAfter, when > 0, accepts that many weight pushes and
	// fails the rest. Used to exercise partial flushes.
	FailWeightsAfter int

	// Online controls Reachable.
	Online bool

	// Closed tracks whether Close was called.
	Closed bool
}

// NewFakeStore creates a reachable FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{Online: true}
}

// FetchSchedule returns the scripted schedule.
func (f *FakeStore) FetchSchedule() ([]byte, bool) {
	f.FetchCalls++
	if f.FetchFails || len(f.Schedule) == 0 {
		return nil, false
	}
	return f.Schedule, true
}

// PushWeight records the weight record unless scripted to fail.
func (f *FakeStore) PushWeight(rec WeightRecord) bool {
	if f.PushFails {
		return false
	}
	if f.FailWeightsAfter > 0 && len(f.Weights) >= f.FailWeightsAfter {
		return false
	}
	f.Weights = append(f.Weights, rec)
	return true
}

// PushMealNotification records the notification unless scripted to fail.
func (f *FakeStore) PushMealNotification(n MealNotification) bool {
	if f.PushFails {
		return false
	}
	f.MealNotifications = append(f.MealNotifications, n)
	return true
}

// PushContainerStatus records the status unless scripted to fail.
func (f *FakeStore) PushContainerStatus(st ContainerStatus) bool {
	if f.PushFails {
		return false
	}
	f.ContainerStatuses = append(f.ContainerStatuses, st)
	return true
}

// Reachable reports the scripted connectivity.
func (f *FakeStore) Reachable() bool {
	return f.Online
}

// Close marks the store as closed.
func (f *FakeStore) Close() error {
	f.Closed = true
	return nil
}

package playwait

// lifecycleEntry is one pending-or-settled lifecycle wait.
type lifecycleEntry struct {
	future   *Future
	listener ListenerID
}

// lifecycleTable maps each lifecycle event to the future of its next
// occurrence within the current reset cycle.
type lifecycleTable map[Event]*lifecycleEntry

// newLifecycleTable subscribes once to every lifecycle event.
func newLifecycleTable(p Player) lifecycleTable {
	t := make(lifecycleTable, len(LifecycleEvents))
	for _, e := range LifecycleEvents {
		f := newFuture()
		entry := &lifecycleEntry{future: f}
		entry.listener = p.Once(e, func(Event) { f.settle(nil) })

		// Ready fires once per player, not per reset cycle: a player that is
		// already ready never signals it again, including after a reset.
		// Checked after subscribing so a signal racing the check is kept.
		if e == EventReady && p.IsReady() {
			p.Off(e, entry.listener)
			f.settle(nil)
		}
		t[e] = entry
	}
	return t
}

// abandon removes the listeners of entries that never fired. Their futures
// stay pending forever.
func (t lifecycleTable) abandon(p Player) {
	for e, entry := range t {
		if !entry.future.Settled() {
			p.Off(e, entry.listener)
		}
	}
}

// pending returns the lifecycle events that have not fired this cycle.
func (t lifecycleTable) pending() []Event {
	var events []Event
	for _, e := range LifecycleEvents {
		if entry, ok := t[e]; ok && !entry.future.Settled() {
			events = append(events, e)
		}
	}
	return events
}

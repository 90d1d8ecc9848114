package insteon

// Subscribe registers fn to be called for every newly registered device.
//
// Delivery is at-least-once: a device that is deregistered and registered
// again is announced again. Callbacks run synchronously on the goroutine
// calling Register and must not call back into Register.
//
// Returns a function that removes the subscription.
func (r *Registry) Subscribe(fn func(Device)) (unsubscribe func()) {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

// notify fans a new device out to every subscriber.
// A panicking subscriber is logged and does not stop the others.
func (r *Registry) notify(d Device) {
	r.subMu.Lock()
	subs := make([]func(Device), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.subMu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("new device subscriber panic recovered",
						"device", Label(d),
						"panic", p,
					)
				}
			}()
			fn(d)
		}()
	}
}

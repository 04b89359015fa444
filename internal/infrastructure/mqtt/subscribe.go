package mqtt

import "fmt"

// Subscribe routes messages matching filter to handler. The subscription
// is remembered and replayed after every reconnect.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := ValidateFilter(filter); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.remember(filter, subscription{qos: qos, handler: handler})
	if err := await(c.client.Subscribe(filter, qos, c.wrapHandler(handler)), ErrSubscribeFailed, defaultPublishTimeout); err != nil {
		c.forget(filter)
		return err
	}
	return nil
}

// Unsubscribe drops filter. It is forgotten even when the link is down, so
// a later reconnect will not restore it.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	c.forget(filter)
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Unsubscribe(filter), ErrUnsubscribeFailed, defaultPublishTimeout)
}

func (c *Client) remember(filter string, sub subscription) {
	c.subMu.Lock()
	if c.subs == nil {
		c.subs = make(map[string]subscription)
	}
	c.subs[filter] = sub
	c.subMu.Unlock()
}

func (c *Client) forget(filter string) {
	c.subMu.Lock()
	delete(c.subs, filter)
	c.subMu.Unlock()
}

// SubscriptionCount returns the number of remembered filters.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs)
}

// HasSubscription reports whether filter is remembered verbatim.
func (c *Client) HasSubscription(filter string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subs[filter]
	return ok
}

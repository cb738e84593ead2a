// bus.go
package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path. Strings and ints are the
// expected kinds; any comparable value works as a trie key.
type Token = any

// Wildcard tokens, valid in subscriptions only.
// "+" matches exactly one token, "#" matches any remaining tail.
const (
	WildOne  = "+"
	WildTail = "#"
)

// Topic is an immutable sequence of tokens.
type Topic struct {
	toks []Token
}

// T builds a topic from tokens.
func T(tokens ...Token) Topic { return Topic{toks: tokens} }

func (t Topic) Len() int        { return len(t.toks) }
func (t Topic) At(i int) Token  { return t.toks[i] }
func (t Topic) IsZero() bool    { return len(t.toks) == 0 }

// Append returns a new topic with extra tokens; the receiver is unchanged.
func (t Topic) Append(tokens ...Token) Topic {
	out := make([]Token, 0, len(t.toks)+len(tokens))
	out = append(out, t.toks...)
	out = append(out, tokens...)
	return Topic{toks: out}
}

func (t Topic) Equal(o Topic) bool {
	if len(t.toks) != len(o.toks) {
		return false
	}
	for i := range t.toks {
		if t.toks[i] != o.toks[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if n.children == nil {
		if !create {
			return nil
		}
		n.children = map[Token]*node{}
	}
	c, ok := n.children[tok]
	if !ok {
		if !create {
			return nil
		}
		c = &node{}
		n.children[tok] = c
	}
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu     sync.RWMutex
	root   *node
	qLen   int
	nextID uint32 // reply-topic counter
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

// NewMessage is a convenience constructor.
func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic.toks {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	// Deliver retained messages matching the (possibly wildcarded) pattern.
	b.deliverRetained(b.root, sub.topic.toks, sub)
}

// deliverRetained walks the trie delivering retained messages under nodes
// that match the remaining pattern.
func (b *Bus) deliverRetained(n *node, pattern []Token, sub *Subscription) {
	if len(pattern) == 0 {
		if n.retained != nil {
			trySend(sub.ch, n.retained)
		}
		return
	}
	tok := pattern[0]
	switch tok {
	case Token(WildTail):
		b.allRetained(n, sub)
	case Token(WildOne):
		for _, c := range n.children {
			b.deliverRetained(c, pattern[1:], sub)
		}
	default:
		if c := n.child(tok, false); c != nil {
			b.deliverRetained(c, pattern[1:], sub)
		}
	}
}

func (b *Bus) allRetained(n *node, sub *Subscription) {
	if n.retained != nil {
		trySend(sub.ch, n.retained)
	}
	for _, c := range n.children {
		b.allRetained(c, sub)
	}
}

// Publish delivers a message to all subscribers whose pattern matches its
// topic, and stores/clears it as retained if flagged.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match(b.root, msg.Topic.toks, msg)

	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic.toks {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
}

// match walks subscription patterns against a concrete topic.
func (b *Bus) match(n *node, rest []Token, msg *Message) {
	// "a/#" also matches "a" itself.
	if tail := n.child(Token(WildTail), false); tail != nil {
		deliver(tail.subs, msg)
	}
	if len(rest) == 0 {
		deliver(n.subs, msg)
		return
	}
	if c := n.child(rest[0], false); c != nil {
		b.match(c, rest[1:], msg)
	}
	if c := n.child(Token(WildOne), false); c != nil {
		b.match(c, rest[1:], msg)
	}
}

func deliver(subs []*Subscription, msg *Message) {
	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			// drop oldest if queue full
			select {
			case <-sub.ch:
			default:
			}
			trySend(sub.ch, msg)
		}
	}
}

func trySend(ch chan *Message, msg *Message) {
	select {
	case ch <- msg:
	default:
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range sub.topic.toks {
		c := n.child(t, false)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	// Prune empty nodes.
	for i := len(sub.topic.toks) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic.toks[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Reply publishes a response on the request's ReplyTo topic, if any.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if req.ReplyTo.IsZero() {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// RequestWait publishes msg with a fresh ReplyTo topic and blocks until a
// reply arrives or ctx is done.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	id := atomic.AddUint32(&c.bus.nextID, 1)
	msg.ReplyTo = T("_reply", c.id, int(id))
	sub := c.Subscribe(msg.ReplyTo)
	defer c.Unsubscribe(sub)

	c.Publish(msg)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-sub.ch:
		return reply, nil
	}
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

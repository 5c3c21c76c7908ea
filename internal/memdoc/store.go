package memdoc

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/framegraph/internal/document"
)

// ErrUnknownKind is returned by CreateNode for kinds without a registered schema.
var ErrUnknownKind = errors.New("unknown node kind")

// DefaultScopeCacheSize bounds the scope label cache.
const DefaultScopeCacheSize = 256

// Document implements document.Document using slices, maps and a mutex for
// thread-safe concurrent access.
type Document struct {
	mu      sync.RWMutex
	kinds   map[string]Schema
	nodes   []*node
	links   []*link
	nextID  int
	journal []Event

	// scopes caches FindScope results by label. It is owned by this document
	// and invalidated whenever a frame is relabeled or removed.
	scopes *lru.Cache[string, *node]
}

var _ document.Document = (*Document)(nil)

// Option configures a Document.
type Option func(*config)

type config struct {
	cacheSize int
	kinds     []Schema
}

// WithScopeCacheSize overrides DefaultScopeCacheSize.
func WithScopeCacheSize(size int) Option {
	return func(c *config) { c.cacheSize = size }
}

// WithKinds registers schemas at construction.
func WithKinds(schemas ...Schema) Option {
	return func(c *config) { c.kinds = append(c.kinds, schemas...) }
}

// New creates a new, empty in-memory document with the built-in kinds registered.
func New(opts ...Option) (*Document, error) {
	cfg := config{cacheSize: DefaultScopeCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	cache, err := lru.New[string, *node](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("memdoc: scope cache: %w", err)
	}
	d := &Document{
		kinds:  make(map[string]Schema),
		scopes: cache,
	}
	d.kinds[document.KindFrame] = FrameSchema()
	d.kinds[document.KindPassthrough] = PassthroughSchema()
	for _, s := range cfg.kinds {
		if err := d.RegisterKind(s); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// RegisterKind adds or replaces a kind schema. Built-in kinds cannot be replaced.
func (d *Document) RegisterKind(s Schema) error {
	if s.Kind == "" {
		return fmt.Errorf("memdoc: schema kind cannot be empty")
	}
	if s.Kind == document.KindFrame || s.Kind == document.KindPassthrough {
		return fmt.Errorf("memdoc: kind %q is built in", s.Kind)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds[s.Kind] = s
	return nil
}

// Kinds returns the registered kind names.
func (d *Document) Kinds() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.kinds))
	for k := range d.kinds {
		out = append(out, k)
	}
	return out
}

// CreateNode implements document.Document.
func (d *Document) CreateNode(kind string) (document.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	schema, ok := d.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	d.nextID++
	n := newNode(d, d.nextID, schema)
	d.nodes = append(d.nodes, n)
	d.record(OpCreateNode, n.describe())
	return n, nil
}

// RemoveNode implements document.Document. Links attached to the node are
// removed first; children are moved to the root level.
func (d *Document) RemoveNode(handle document.Node) error {
	n, err := asNode(handle)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if n.removed {
		return fmt.Errorf("%w: node %s", document.ErrStaleHandle, n.describe())
	}
	kept := d.links[:0]
	for _, l := range d.links {
		if l.from.node == n || l.to.node == n {
			l.removed = true
			d.record(OpRemoveLink, l.describe())
			continue
		}
		kept = append(kept, l)
	}
	d.links = kept

	for _, other := range d.nodes {
		if other.parent == n {
			other.parent = nil
		}
	}
	for i, other := range d.nodes {
		if other == n {
			d.nodes = append(d.nodes[:i], d.nodes[i+1:]...)
			break
		}
	}
	n.removed = true
	if n.kind == document.KindFrame {
		d.scopes.Remove(n.label)
	}
	d.record(OpRemoveNode, n.describe())
	return nil
}

// CreateLink implements document.Document. An input socket holds at most one
// link; an existing link into the target socket is replaced.
func (d *Document) CreateLink(fromHandle, toHandle document.Port) (document.Link, error) {
	from, err := asPort(fromHandle)
	if err != nil {
		return nil, err
	}
	to, err := asPort(toHandle)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if from.node.removed || to.node.removed {
		return nil, fmt.Errorf("%w: cannot link removed nodes", document.ErrStaleHandle)
	}
	if from.dir != document.Output {
		return nil, fmt.Errorf("memdoc: link source %s is not an output socket", from.describe())
	}
	if to.dir != document.Input {
		return nil, fmt.Errorf("memdoc: link target %s is not an input socket", to.describe())
	}

	kept := d.links[:0]
	for _, l := range d.links {
		if l.to == to {
			l.removed = true
			d.record(OpRemoveLink, l.describe())
			continue
		}
		kept = append(kept, l)
	}
	d.links = kept

	l := &link{from: from, to: to}
	d.links = append(d.links, l)
	d.record(OpCreateLink, l.describe())
	return l, nil
}

// RemoveLink implements document.Document.
func (d *Document) RemoveLink(handle document.Link) error {
	l, ok := handle.(*link)
	if !ok || l == nil {
		return fmt.Errorf("memdoc: foreign link handle %T", handle)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if l.removed {
		return fmt.Errorf("%w: link %s", document.ErrStaleHandle, l.describe())
	}
	for i, other := range d.links {
		if other == l {
			d.links = append(d.links[:i], d.links[i+1:]...)
			break
		}
	}
	l.removed = true
	d.record(OpRemoveLink, l.describe())
	return nil
}

// Links implements document.Document.
func (d *Document) Links() []document.Link {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]document.Link, 0, len(d.links))
	for _, l := range d.links {
		out = append(out, l)
	}
	return out
}

// ListChildren implements document.Document.
func (d *Document) ListChildren(scope document.Node) []document.Node {
	var parent *node
	if scope != nil {
		p, err := asNode(scope)
		if err != nil {
			return nil
		}
		parent = p
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []document.Node
	for _, n := range d.nodes {
		if n.parent == parent {
			out = append(out, n)
		}
	}
	return out
}

// FindScope implements document.Document.
func (d *Document) FindScope(label string) (document.Node, bool) {
	if cached, ok := d.scopes.Get(label); ok {
		d.mu.RLock()
		valid := !cached.removed && cached.label == label
		d.mu.RUnlock()
		if valid {
			return cached, true
		}
		d.scopes.Remove(label)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, n := range d.nodes {
		if n.kind == document.KindFrame && n.label == label {
			d.scopes.Add(label, n)
			return n, true
		}
	}
	return nil, false
}

// Nodes returns every live node in creation order.
func (d *Document) Nodes() []document.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]document.Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, n)
	}
	return out
}

// Lookup returns the direct child of scope carrying label.
func (d *Document) Lookup(scope document.Node, label string) (document.Node, bool) {
	for _, n := range d.ListChildren(scope) {
		if n.Label() == label {
			return n, true
		}
	}
	return nil, false
}

func asNode(handle document.Node) (*node, error) {
	n, ok := handle.(*node)
	if !ok || n == nil {
		return nil, fmt.Errorf("memdoc: foreign node handle %T", handle)
	}
	return n, nil
}

func asPort(handle document.Port) (*port, error) {
	p, ok := handle.(*port)
	if !ok || p == nil {
		return nil, fmt.Errorf("memdoc: foreign port handle %T", handle)
	}
	return p, nil
}
